package stubs

import "strings"

func segments(rel string) int {
	return strings.Count(rel, "/") + 1
}

// patternDepth returns how many path segments a pattern can match, or 0
// when "**" makes it unbounded.
func patternDepth(pattern string) int {
	if strings.Contains(pattern, "**") {
		return 0
	}
	return segments(pattern)
}
