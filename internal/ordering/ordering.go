// Package ordering implements manual ordering of sibling rows through an
// integer order_index column.
//
// Every sibling group (categories sharing a parent within a module, contents
// sharing a category) follows one discipline: moving a row swaps it with its
// neighbour in display order, then the whole group is renumbered densely from
// zero. Stores apply the resulting changes inside a single transaction, which
// also repairs duplicate indices left behind by direct order_index writes.
package ordering

import (
	"errors"
	"fmt"
	"strings"
)

// Direction is the way a row moves in its sibling group.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

var (
	// ErrBoundary is returned when a row is already first (up) or last (down).
	ErrBoundary = errors.New("ordering: row is already at the edge of its group")
	// ErrNotInGroup is returned when the moved id is absent from the group.
	ErrNotInGroup = errors.New("ordering: row is not part of the group")
	// ErrInvalidDirection is returned for anything but "up" or "down".
	ErrInvalidDirection = errors.New(`ordering: direction must be "up" or "down"`)
)

// ParseDirection parses a case-insensitive direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidDirection, s)
}

// Item is a row's identity and its current position value.
type Item struct {
	ID         int64
	OrderIndex int
}

// Move returns a copy of ids, which must already be in display order, with
// id swapped with its neighbour in direction dir.
func Move(ids []int64, id int64, dir Direction) ([]int64, error) {
	pos := -1
	for i, v := range ids {
		if v == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, ErrNotInGroup
	}

	var target int
	switch dir {
	case Up:
		target = pos - 1
	case Down:
		target = pos + 1
	default:
		return nil, ErrInvalidDirection
	}
	if target < 0 || target >= len(ids) {
		return nil, ErrBoundary
	}

	out := make([]int64, len(ids))
	copy(out, ids)
	out[pos], out[target] = out[target], out[pos]
	return out, nil
}

// Assign numbers order densely from zero and returns only the items whose
// index differs from current, so callers write the minimum set of rows.
func Assign(current []Item, order []int64) []Item {
	was := make(map[int64]int, len(current))
	for _, it := range current {
		was[it.ID] = it.OrderIndex
	}

	var changed []Item
	for i, id := range order {
		if idx, ok := was[id]; ok && idx == i {
			continue
		}
		changed = append(changed, Item{ID: id, OrderIndex: i})
	}
	return changed
}

// IDs extracts the ids of items in their given order.
func IDs(items []Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// Next returns the index for a row appended to a group whose highest index
// is maxIndex; valid is false for an empty group, which starts at zero.
func Next(maxIndex int, valid bool) int {
	if !valid {
		return 0
	}
	return maxIndex + 1
}
