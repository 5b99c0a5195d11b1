// Package keys canonicalizes raw keyboard identifiers so that bindings from a
// trial specification and events from a host compare reliably.
package keys

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Canonical spellings of the named keys the engine cares about.
const (
	Space  = " "
	Enter  = "Enter"
	Escape = "Escape"
)

// Normalize returns the canonical form of a raw key identifier.
//
// The literal space is returned untouched; trimming it would collapse it to
// "" and break every space-bar comparison. Other input is trimmed, the names
// space/enter/escape/esc are mapped case-insensitively, a single remaining
// character is lower-cased, and longer names pass through as-is.
func Normalize(raw string) string {
	if raw == Space {
		return Space
	}
	k := strings.TrimSpace(raw)
	switch strings.ToLower(k) {
	case "space":
		return Space
	case "enter":
		return Enter
	case "escape", "esc":
		return Escape
	}
	if utf8.RuneCountInString(k) == 1 {
		return strings.ToLower(k)
	}
	return k
}

// NormalizeOr normalizes raw and substitutes fallback when the result is empty.
func NormalizeOr(raw, fallback string) string {
	if k := Normalize(raw); k != "" {
		return k
	}
	return Normalize(fallback)
}

// Expand returns the identifiers a host may report for a canonical key. A
// single letter matches both cases because physical key caps report either.
func Expand(key string) []string {
	r, size := utf8.DecodeRuneInString(key)
	if size == len(key) && size > 0 && unicode.IsLetter(r) {
		lower, upper := string(unicode.ToLower(r)), string(unicode.ToUpper(r))
		if lower == upper {
			return []string{key}
		}
		return []string{lower, upper}
	}
	return []string{key}
}

// ExpandAll expands every key and returns the de-duplicated union in input order.
func ExpandAll(ks ...string) []string {
	seen := make(map[string]struct{}, len(ks)*2)
	out := make([]string, 0, len(ks)*2)
	for _, k := range ks {
		for _, v := range Expand(k) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
