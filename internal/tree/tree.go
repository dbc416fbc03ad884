// Package tree assembles the category listing of a module into a forest.
//
// Category rows come out of the database flat, each carrying a nullable
// parent_id. Build attaches children to their top-level parent and returns
// the roots. Only two levels are materialised: a row whose parent is not a
// root (a grandchild, or a child of a row that was filtered out) cannot be
// placed and is reported back as dropped instead of being silently lost.
package tree

import "guidebook/internal/models"

// Build partitions rows into roots and children, preserving input order in
// both the root list and every child list. It returns the roots and the ids
// of rows that could not be attached.
func Build(rows []models.Category) (roots []models.CategoryNode, dropped []int64) {
	roots = make([]models.CategoryNode, 0, len(rows))
	index := make(map[int64]int, len(rows))

	var children []models.Category
	for _, c := range rows {
		if c.IsRoot() {
			index[c.ID] = len(roots)
			roots = append(roots, models.CategoryNode{Category: c, Children: []models.CategoryNode{}})
			continue
		}
		children = append(children, c)
	}

	for _, c := range children {
		i, ok := index[*c.ParentID]
		if !ok {
			dropped = append(dropped, c.ID)
			continue
		}
		roots[i].Children = append(roots[i].Children, models.CategoryNode{
			Category: c,
			Children: []models.CategoryNode{},
		})
	}

	return roots, dropped
}
