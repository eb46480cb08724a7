// Package slug derives the URL-safe identifier that doubles as an idea's key.
package slug

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases title, collapses every run of characters outside [a-z0-9]
// into a single hyphen and trims hyphens from both ends.
func Make(title string) string {
	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}
