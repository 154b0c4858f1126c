package voice

import (
	"regexp"
	"strings"
)

var (
	// annotation matches whisper's environmental notes such as
	// "(keyboard clicking)", "[laughter]" or "[BLANK_AUDIO]".
	annotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z_\s]*[\)\]]`)

	// timestamp matches segment prefixes like "[00:00:00.000 --> 00:00:02.000]".
	timestamp = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3} --> \d{2}:\d{2}:\d{2}\.\d{3}\]`)

	spaces = regexp.MustCompile(`\s+`)
)

// hallucinations are phrases whisper produces from silence.
var hallucinations = map[string]bool{
	"...":                     true,
	"you":                     true,
	"thank you.":              true,
	"thank you":               true,
	"thanks for watching!":    true,
	"thank you for watching.": true,
	"bye.":                    true,
	"bye!":                    true,
	"the end.":                true,
}

// CleanTranscription normalizes whitespace and removes whisper artifacts:
// timestamps, bracketed annotations and phrases hallucinated from silence.
func CleanTranscription(s string) string {
	s = timestamp.ReplaceAllString(s, " ")
	s = annotation.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))

	if hallucinations[strings.ToLower(s)] {
		return ""
	}
	return s
}
