// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug generates ASCII identifiers from arbitrary Unicode strings.
//
// # Usage
//
// Slugs are the identity of catalogue records from sources that have no stable
// numeric id (e.g. "makusi_a_bizarra"). Two titles that differ only by case,
// accents or punctuation produce the same slug, which is the intended collision
// behaviour for a best-effort title key.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// From converts s into a lowercase ASCII slug whose words are joined by sep.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFD (decomposes accented chars: é → e + combining acute).
// 2. Removes combining marks (accents).
// 3. Converts to lowercase.
// 4. Collapses every run of non [a-z0-9] characters into a single sep.
// 5. Trims leading/trailing separators.
func From(s string, sep rune) string {
	// 1. Normalize and remove accents
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, _ := transform.String(t, s)

	// 2. Lowercase
	result = strings.ToLower(result)

	// 3. Keep ASCII alphanumerics, collapse everything else
	var builder strings.Builder
	builder.Grow(len(result))

	pendingSep := false
	for _, r := range result {
		if isASCIIAlnum(r) {
			if pendingSep && builder.Len() > 0 {
				builder.WriteRune(sep)
			}
			builder.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}

	return builder.String()
}

// Key builds a prefixed identity key ("<prefix>_<slug>").
//
// It returns an empty string when s has no usable characters, so callers can
// discard the item instead of colliding on a bare prefix.
func Key(prefix, s string) string {
	body := From(s, '_')
	if body == "" {
		return ""
	}
	return prefix + "_" + body
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
