package history

import "strings"

// GenerateDiff compares oldText and newText line by line at equal positions. It does
// not search for a minimal edit script: a line inserted near the top shifts
// every following line, and each shifted line shows up as removed+added.
// Identical lines at the same index produce no entry.
func GenerateDiff(oldText, newText string) []DiffLine {
	a, b := splitLines(oldText), splitLines(newText)
	diff := []DiffLine{}

	for i := 0; i < max(len(a), len(b)); i++ {
		switch {
		case i >= len(a):
			diff = append(diff, DiffLine{Type: Added, Line: i + 1, Content: b[i]})
		case i >= len(b):
			diff = append(diff, DiffLine{Type: Removed, Line: i + 1, Content: a[i]})
		case a[i] != b[i]:
			diff = append(diff,
				DiffLine{Type: Removed, Line: i + 1, Content: a[i]},
				DiffLine{Type: Added, Line: i + 1, Content: b[i]},
			)
		}
	}
	return diff
}

// splitLines treats the empty string as zero lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
