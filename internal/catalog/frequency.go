package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// updateFrequencies maps the textual expected update frequencies onto the
// day codes stored by the catalog.
var updateFrequencies = map[string]string{
	"adhoc":              "-2",
	"as needed":          "-2",
	"never":              "-1",
	"live":               "0",
	"every day":          "1",
	"daily":              "1",
	"every week":         "7",
	"weekly":             "7",
	"every two weeks":    "14",
	"fortnightly":        "14",
	"every month":        "30",
	"monthly":            "30",
	"every three months": "90",
	"quarterly":          "90",
	"every six months":   "180",
	"semiannually":       "180",
	"every year":         "365",
	"yearly":             "365",
	"annually":           "365",
}

// UpdateFrequencyCode converts an expected update frequency into its day code.
// Numeric codes that the catalog knows are returned unchanged.
func UpdateFrequencyCode(freq string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(freq))
	if code, ok := updateFrequencies[key]; ok {
		return code, nil
	}
	if _, err := strconv.Atoi(key); err == nil {
		for _, code := range updateFrequencies {
			if code == key {
				return code, nil
			}
		}
	}
	return "", fmt.Errorf("invalid update frequency %q", freq)
}
