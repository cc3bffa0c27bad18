package transcription

import (
	"strings"
	"unicode"
)

const (
	defaultSummaryWords = 60
	titleWords          = 8
	maxKeyPoints        = 3
)

// Summarize builds an extractive summary: the title comes from the first
// sentence and the text keeps leading sentences up to the word limit.
func Summarize(text string, tmpl *SummaryTemplate) Summary {
	limit := defaultSummaryWords
	if tmpl != nil && tmpl.MaxWords > 0 {
		limit = tmpl.MaxWords
	}

	sentences := splitSentences(text)
	summary := Summary{WordCount: len(strings.Fields(text))}
	if len(sentences) == 0 {
		return summary
	}

	summary.Title = truncateWords(strings.TrimRight(sentences[0], ".!?"), titleWords)

	var kept []string
	words := 0
	for _, s := range sentences {
		n := len(strings.Fields(s))
		if words > 0 && words+n > limit {
			break
		}
		kept = append(kept, s)
		words += n
	}
	summary.Text = truncateWords(strings.Join(kept, " "), limit)

	for i := 0; i < len(sentences) && i < maxKeyPoints; i++ {
		summary.KeyPoints = append(summary.KeyPoints, sentences[i])
	}
	return summary
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return out
}

func truncateWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ") + "..."
}
