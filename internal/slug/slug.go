// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns arbitrary strings into lowercase hyphenated ASCII
// tokens, safe for object storage keys.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches runs of anything that isn't a letter or digit.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

	// foldMarks decomposes accented letters and drops the combining marks,
	// so "Büro" becomes "Buro".
	foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Generate creates a slug from s, at most maxLen bytes long. A maxLen of
// zero or less means no limit. Cuts never leave a trailing hyphen.
// Example: "Bürostühle, 2. OG" → "burostuhle-2-og"
func Generate(s string, maxLen int) string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}
	result := nonAlphanumeric.ReplaceAllString(strings.ToLower(folded), "-")
	result = strings.Trim(result, "-")
	if maxLen > 0 && len(result) > maxLen {
		result = strings.TrimRight(result[:maxLen], "-")
	}
	return result
}
