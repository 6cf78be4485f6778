package layers

import (
	"regexp"
	"strings"
)

// paragraphBreak matches a blank line, allowing spaces or tabs on it.
var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// splitParagraphs splits text on blank lines. Paragraphs are trimmed and
// empty ones dropped, so whitespace-only input yields nil.
func splitParagraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}
	return paragraphs
}

// splitSentences cuts a paragraph after runs of '.', '!' or '?' that are
// followed by whitespace or the end of the paragraph. Terminators stay attached.
func splitSentences(paragraph string) []string {
	var sentences []string
	start := 0
	runes := []rune(paragraph)
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 == len(runes) || isSpace(runes[j+1]) {
			if s := strings.TrimSpace(string(runes[start : j+1])); s != "" {
				sentences = append(sentences, s)
			}
			start = j + 1
		}
		i = j
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

// matchingSentences joins, with single spaces, every sentence that re matches.
func matchingSentences(sentences []string, re *regexp.Regexp) string {
	var picked []string
	for _, s := range sentences {
		if re.MatchString(s) {
			picked = append(picked, collapseSpace(s))
		}
	}
	return strings.Join(picked, " ")
}

// collapseSpace folds internal newlines and runs of blanks into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
