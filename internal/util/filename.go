// Package util provides common file utility functions.
package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// pathSeparators are replaced in names used as a single path element.
var pathSeparators = strings.NewReplacer("/", "-", "\\", "-", "\x00", "")

// SafeName converts free text into a single path element.
//
// Rules:
//  1. Normalize to NFC so visually equal names map to one directory
//  2. Replace path separators with dashes and drop NUL bytes
//  3. Trim surrounding whitespace
//  4. Fall back when the result is empty, "." or ".."
//
// Examples:
//
//	"Maps"              → "Maps"
//	"Bar/Line Charts"   → "Bar-Line Charts"
//	"  "                → fallback
//	".."                → fallback
func SafeName(name, fallback string) string {
	s := norm.NFC.String(name)
	s = pathSeparators.Replace(s)
	s = strings.TrimSpace(s)

	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}
