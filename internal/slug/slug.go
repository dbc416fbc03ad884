// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings
// and collision-free slug resolution against a storage scope.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmpty is returned by Validate when a title produces no slug characters.
var ErrEmpty = errors.New("slug: title has no characters usable in a slug")

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space, or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespace matches runs of spaces, tabs and newlines.
	whitespace = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// foldTable covers letters that have no canonical decomposition, so NFD
// alone would leave them untouched and the final filter would drop them.
var foldTable = strings.NewReplacer(
	"đ", "d",
	"ð", "d",
	"ø", "o",
	"ł", "l",
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"þ", "th",
	"ı", "i",
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hướng dẫn cài đặt 2026" → "huong-dan-cai-dat-2026"
func Generate(s string) string {
	result := strings.Map(spaceToASCII, s)
	result = strings.ToLower(strings.TrimSpace(result))
	result = fold(result)
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// Validate returns the slug for s, or ErrEmpty if nothing usable remains.
func Validate(s string) (string, error) {
	out := Generate(s)
	if out == "" {
		return "", ErrEmpty
	}
	return out, nil
}

// spaceToASCII turns every Unicode space (NBSP, U+3000, thin space, \v)
// into a plain space so the ASCII-only \s patterns see it.
func spaceToASCII(r rune) rune {
	if unicode.IsSpace(r) || unicode.Is(unicode.Zs, r) {
		return ' '
	}
	return r
}

// fold strips diacritics: "ế" → "e", "ñ" → "n", "đ" → "d".
func fold(s string) string {
	s = foldTable.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// TakenFunc reports whether candidate is already used in the caller's scope.
// The scope (module, excluded row) is captured by the closure.
type TakenFunc func(ctx context.Context, candidate string) (bool, error)

// Unique returns base if it is free, otherwise the first free "base-N"
// with N counting up from 1. The loop ends after at most one probe per
// existing row plus one, since each probe that collides names a distinct row.
//
// Unique does not lock anything; two concurrent writers can both see the
// same candidate as free. The unique index on the slug column is the
// backstop for that case.
func Unique(ctx context.Context, base string, taken TakenFunc) (string, error) {
	if base == "" {
		return "", ErrEmpty
	}

	candidate := base
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
