package common

import (
	"strings"

	"github.com/gosimple/slug"
)

// HasAnyFold returns true if s contains any of the substrings, ignoring case.
func HasAnyFold(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// Slugify turns a free-form name into a lowercase, dash separated catalog identifier.
func Slugify(s string) string {
	return slug.Make(s)
}
