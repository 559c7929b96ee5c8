package httpmetrics

import (
	"regexp"
	"strings"
)

var uuidRegex = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// NormalizePath collapses ids so unmatched paths do not explode label cardinality.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}

	parts := strings.Split(strings.ToLower(path), "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if uuidRegex.MatchString(part) {
			parts[i] = "{id}"
		} else if isNumeric(part) {
			parts[i] = "{param}"
		}
	}

	return strings.Join(parts, "/")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
