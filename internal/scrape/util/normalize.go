package util

import (
	"regexp"
	"strings"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]`)

// Slug lowercases s and replaces every character outside [a-z0-9] with '_'.
func Slug(s string) string {
	return nonSlugRe.ReplaceAllString(strings.ToLower(s), "_")
}
