package layers

import "github.com/hpungsan/wisdom/internal/wisdom"

// Source says which stage produced a layer's value.
type Source string

const (
	SourcePattern  Source = "pattern"
	SourceFallback Source = "fallback"
	SourceNeutral  Source = "neutral"
)

// Match explains how one layer got its value.
type Match struct {
	Layer  wisdom.LayerName `json:"layer"`
	Source Source           `json:"source"`

	// Group is the pattern group name; empty unless Source is pattern
	Group string `json:"group,omitempty"`

	// Paragraph is the zero-based paragraph index, or -1 when not from a paragraph pass
	Paragraph int `json:"paragraph"`

	Value string `json:"value"`
}

// Classify decomposes text into the five layers. Every field of the result is
// non-empty, for any input including "".
func Classify(text string) wisdom.LayerSet {
	set, _ := classify(text)
	return set
}

// Explain classifies text and reports, in wisdom.LayerOrder, where each value came from.
func Explain(text string) []Match {
	_, matches := classify(text)
	return matches
}

func classify(text string) (wisdom.LayerSet, []Match) {
	text = normalizeNewlines(text)
	paragraphs := splitParagraphs(text)

	var set wisdom.LayerSet
	found := make(map[wisdom.LayerName]Match, len(rules))

	for pi, p := range paragraphs {
		sentences := splitSentences(p)
		for _, rule := range rules {
			if set.Get(rule.layer) != "" {
				continue
			}
			for _, g := range rule.groups {
				if !g.re.MatchString(p) {
					continue
				}
				value := matchingSentences(sentences, g.re)
				if value == "" {
					// match straddled a sentence boundary
					continue
				}
				set.Set(rule.layer, value)
				found[rule.layer] = Match{
					Layer:     rule.layer,
					Source:    SourcePattern,
					Group:     g.name,
					Paragraph: pi,
					Value:     value,
				}
				break
			}
		}
	}

	for _, fb := range fallbacks {
		if set.Get(fb.layer) != "" {
			continue
		}
		if value := fb.fn(text, paragraphs); value != "" {
			set.Set(fb.layer, value)
			found[fb.layer] = Match{Layer: fb.layer, Source: SourceFallback, Paragraph: -1, Value: value}
		}
	}

	for _, name := range set.Missing() {
		value := NeutralPhrase(name)
		set.Set(name, value)
		found[name] = Match{Layer: name, Source: SourceNeutral, Paragraph: -1, Value: value}
	}

	matches := make([]Match, 0, len(wisdom.LayerOrder))
	for _, name := range wisdom.LayerOrder {
		matches = append(matches, found[name])
	}
	return set, matches
}
