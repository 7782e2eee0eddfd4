package linkpreview

import (
	"strings"
	"unicode"
)

const (
	titleMaxLines       = 2
	descriptionMaxLines = 3
)

// normalizeText folds untrusted page text into at most maxLines display lines.
// Returns nil when nothing displayable is left.
func normalizeText(s string, maxLines int) *string {
	if s == "" || maxLines <= 0 {
		return nil
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)

	lines := make([]string, 0, maxLines)
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxLines {
			break
		}
	}
	if len(lines) == 0 {
		return nil
	}

	result := strings.Join(lines, "\n")
	return &result
}
