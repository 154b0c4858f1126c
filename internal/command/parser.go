// Package command turns what the cook types or says into intents.
package command

import (
	"regexp"
	"strings"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches input to intents using keywords and simple patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(done|next|finished|ok|d|n)$`), domain.IntentDone},
		{regexp.MustCompile(`(?i)^(i'?m )?(done|finished)( with (this|that|it))?$`), domain.IntentDone},
		{regexp.MustCompile(`(?i)^(next step|step done|mark done)$`), domain.IntentDone},
		{regexp.MustCompile(`(?i)^(stop|cancel|abort|abandon)( cooking| session)?$`), domain.IntentStop},
		{regexp.MustCompile(`(?i)^(status|where|progress|info|s)$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^(how long|time left|what'?s (next|left))\??$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^(quit|exit|q|bye)$`), domain.IntentQuit},
	}
	return p
}

// Parse converts input into an intent. Spoken input often carries
// trailing punctuation, which is ignored.
func (p *KeywordParser) Parse(input string) domain.Intent {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.Intent{Type: domain.IntentUnknown}
	}
	p.log.Debug("parsing input: %q", trimmed)

	normalized := strings.TrimRight(trimmed, ".!,")
	if normalized == "" {
		normalized = trimmed
	}

	for _, rule := range p.patterns {
		if rule.regex.MatchString(normalized) {
			p.log.Debug("matched intent: %s", rule.intent)
			return domain.Intent{Type: rule.intent}
		}
	}

	p.log.Debug("no match, returning unknown intent")
	return domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}
}

// Help lists the phrases the parser understands.
func Help() string {
	return strings.Join([]string{
		"done / next     finish the current step",
		"stop / cancel   stop the cooking session",
		"status          show where the session is",
		"help            show this help",
		"quit            leave; the session keeps running",
	}, "\n")
}
