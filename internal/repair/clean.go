package repair

import (
	"regexp"
	"strings"
)

var (
	fenceOpen   = regexp.MustCompile("^```[A-Za-z]*[ \t]*\\r?\\n?")
	fenceClose  = regexp.MustCompile("\\r?\\n?```[ \t]*$")
	noisePrefix = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^here\s+is\s+(?:the\s+|your\s+)?(?:\w+\s+){0,3}json(?:\s+object)?\s*[:.]?\s*`),
		regexp.MustCompile(`(?i)^json\s*:\s*`),
	}
)

// Clean isolates the JSON object in a model response. It trims whitespace,
// drops markdown fences and known lead-in phrases, then keeps the text from
// the first '{' to the last '}'. It returns "" when no object is present.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(fenceOpen.ReplaceAllString(s, ""))
	s = strings.TrimSpace(fenceClose.ReplaceAllString(s, ""))
	for _, re := range noisePrefix {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(fenceOpen.ReplaceAllString(s, ""))

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
