package layers

import (
	"regexp"
	"strings"

	"github.com/hpungsan/wisdom/internal/wisdom"
)

const (
	narrativeFallbackChars = 200
	somaticFallbackChars   = 150
	maxSensoryAdjectives   = 3
)

// Fixed temporal-auditory phrases, chosen by a presence check on the raw text.
const (
	QuietPhrase   = "A quiet stillness holds the moment."
	LoudPhrase    = "A loud, restless noise fills the moment."
	DefaultPhrase = "Time moves at an ordinary pace."
)

var (
	firstPersonRe = regexp.MustCompile(`(?i)\b(?:i|me|my|mine|myself|we|us|our)\b`)
	seeingVerbRe  = regexp.MustCompile(`(?i)\b(?:see|sees|saw|seen|seeing|look|looks|looked|looking|notice\w*|watch\w*)\b`)
	sensoryAdjRe  = regexp.MustCompile(`(?i)\b(?:warm|cold|cool|hot|soft|rough|smooth|sharp|silky|velvety|gritty|icy|tender|heavy|damp|dry|sticky|crisp|coarse|fuzzy)\b`)
)

// neutralPhrases fill any layer that neither patterns nor fallbacks could populate.
var neutralPhrases = map[wisdom.LayerName]string{
	wisdom.LayerNarrative:        "An untold story.",
	wisdom.LayerSomatic:          "No bodily or emotional signal surfaced.",
	wisdom.LayerAttention:        "No specific focus of attention surfaced.",
	wisdom.LayerSynesthetic:      "No distinct sensory texture surfaced.",
	wisdom.LayerTemporalAuditory: DefaultPhrase,
}

// NeutralPhrase returns the last-resort value for a layer.
func NeutralPhrase(layer wisdom.LayerName) string {
	return neutralPhrases[layer]
}

// fallbackRule derives a layer value from the whole text when no pattern group
// matched. It may return "" to defer to the neutral phrase.
type fallbackRule struct {
	layer wisdom.LayerName
	fn    func(text string, paragraphs []string) string
}

var fallbacks = []fallbackRule{
	{wisdom.LayerNarrative, narrativeFallback},
	{wisdom.LayerSomatic, somaticFallback},
	{wisdom.LayerAttention, attentionFallback},
	{wisdom.LayerSynesthetic, synestheticFallback},
	{wisdom.LayerTemporalAuditory, temporalAuditoryFallback},
}

func narrativeFallback(text string, paragraphs []string) string {
	source := strings.TrimSpace(text)
	if len(paragraphs) > 0 {
		source = paragraphs[0]
	}
	return strings.TrimSpace(wisdom.Truncate(source, narrativeFallbackChars))
}

func somaticFallback(_ string, paragraphs []string) string {
	for _, p := range paragraphs {
		if firstPersonRe.MatchString(p) {
			return strings.TrimSpace(wisdom.Truncate(p, somaticFallbackChars))
		}
	}
	return ""
}

func attentionFallback(text string, _ []string) string {
	for _, s := range strings.SplitAfter(text, ".") {
		body, terminated := strings.CutSuffix(s, ".")
		if !seeingVerbRe.MatchString(body) {
			continue
		}
		// The unterminated tail gets no period added.
		if terminated {
			return collapseSpace(body) + "."
		}
		return collapseSpace(body)
	}
	return ""
}

func synestheticFallback(text string, _ []string) string {
	var adjectives []string
	seen := make(map[string]bool)
	for _, m := range sensoryAdjRe.FindAllString(text, -1) {
		adj := strings.ToLower(m)
		if seen[adj] {
			continue
		}
		seen[adj] = true
		adjectives = append(adjectives, adj)
		if len(adjectives) == maxSensoryAdjectives {
			break
		}
	}
	if len(adjectives) == 0 {
		return ""
	}
	return "Texture of the moment: " + joinAnd(adjectives) + "."
}

func temporalAuditoryFallback(text string, _ []string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "quiet"):
		return QuietPhrase
	case strings.Contains(lower, "loud"), strings.Contains(lower, "noise"):
		return LoudPhrase
	default:
		return DefaultPhrase
	}
}

// joinAnd renders ["a"] as "a", ["a","b"] as "a and b", ["a","b","c"] as "a, b and c".
func joinAnd(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	}
	return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
}
