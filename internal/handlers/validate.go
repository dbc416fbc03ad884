package handlers

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation limits, matching the column sizes in the schema.
const (
	maxModuleNameLen    = 200
	maxModuleSlugLen    = 200
	maxIconLen          = 100
	maxTitleLen         = 300
	maxDescriptionLen   = 5_000
	maxHTMLLen          = 1_000_000
	maxMetaDescLen      = 500
	maxFeaturedImageLen = 1_000
)

// tooLong returns a message when s exceeds max runes, or "".
func tooLong(field string, s string, max int) string {
	if utf8.RuneCountInString(s) > max {
		return fmt.Sprintf("%s is too long (max %d characters)", field, max)
	}
	return ""
}

// validateModule checks module inputs and returns the first error found.
func validateModule(name, slug string, icon *string) string {
	if strings.TrimSpace(name) == "" {
		return "Name is required"
	}
	if strings.TrimSpace(slug) == "" {
		return "Slug is required"
	}
	if msg := tooLong("Name", name, maxModuleNameLen); msg != "" {
		return msg
	}
	if msg := tooLong("Slug", slug, maxModuleSlugLen); msg != "" {
		return msg
	}
	if icon != nil {
		return tooLong("Icon", *icon, maxIconLen)
	}
	return ""
}

// validateTitle checks a category or content title.
func validateTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Title is required"
	}
	return tooLong("Title", title, maxTitleLen)
}

// validateOrderIndex rejects negative explicit positions.
func validateOrderIndex(idx *int) string {
	if idx != nil && *idx < 0 {
		return "order_index must be >= 0"
	}
	return ""
}

// validateContentFields checks the optional content fields.
func validateContentFields(html string, meta, image *string) string {
	if msg := tooLong("HTML content", html, maxHTMLLen); msg != "" {
		return msg
	}
	if meta != nil {
		if msg := tooLong("Meta description", *meta, maxMetaDescLen); msg != "" {
			return msg
		}
	}
	if image != nil {
		return tooLong("Featured image", *image, maxFeaturedImageLen)
	}
	return ""
}
