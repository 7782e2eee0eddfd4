package linkpreview

import (
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>()]+`)

// ExtractFirstURL returns the first http(s) URL in message text with trailing
// punctuation removed, or "".
func ExtractFirstURL(content string) string {
	match := urlRegex.FindString(content)
	if match == "" {
		return ""
	}
	return strings.TrimRight(match, ".,;:!?)]\"'")
}
