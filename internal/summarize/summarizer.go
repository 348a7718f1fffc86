package summarize

import (
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// style is one summary template: an optional prefix phrase, an optional
// connective inserted after the first sentence, and a selection weight.
type style struct {
	prefix  string
	midText string
	weight  float64
}

// styles is the fixed template table; weights sum to 1.0.
var styles = []style{
	{prefix: "", midText: "", weight: 0.3},

	{prefix: "The article covers ", midText: "", weight: 0.1},
	{prefix: "A look at ", midText: "", weight: 0.1},
	{prefix: "An exploration of ", midText: "", weight: 0.05},

	{prefix: "", midText: ", according to this article", weight: 0.1},
	{prefix: "", midText: ", as explained in the piece", weight: 0.1},
	{prefix: "", midText: ", the article highlights", weight: 0.1},
	{prefix: "", midText: ", the report suggests", weight: 0.05},

	{prefix: "In this analysis of ", midText: ", the author argues that", weight: 0.05},
	{prefix: "The piece discusses ", midText: " and emphasizes", weight: 0.05},
}

// sentencePattern splits on terminal punctuation followed by whitespace or
// end of input.
var sentencePattern = regexp.MustCompile(`[^.!?]*[.!?](\s|$)`)

// sentenceWindow bounds how far into the text sentences are pulled from,
// to avoid unrelated trailing content.
const sentenceWindow = 800

// Summarizer condenses article text to a character budget, varying phrasing
// through weighted-random style templates while preserving whole sentences.
type Summarizer struct {
	rng *rand.Rand
}

// NewSummarizer creates a summarizer. A nil rng falls back to a time-seeded
// source; tests inject a fixed seed for deterministic style selection.
func NewSummarizer(rng *rand.Rand) *Summarizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Summarizer{rng: rng}
}

// Summarize builds a summary of at most maxChars characters. Whole sentences
// are appended in order while they fit; only the last-resort fallback may cut
// inside a sentence.
func (s *Summarizer) Summarize(text string, maxChars int) string {
	if text == "" || maxChars <= 0 {
		return ""
	}
	return buildSummary(s.pickStyle(), text, maxChars)
}

// pickStyle draws one uniform value against the cumulative weight distribution.
func (s *Summarizer) pickStyle() style {
	total := 0.0
	for _, st := range styles {
		total += st.weight
	}
	r := s.rng.Float64() * total

	cumulative := 0.0
	for _, st := range styles {
		cumulative += st.weight
		if r <= cumulative {
			return st
		}
	}
	return style{}
}

func buildSummary(st style, text string, maxChars int) string {
	sentences := extractSentences(text)
	if len(sentences) == 0 {
		return cutFirstParagraph(st.prefix, text, maxChars)
	}

	// Mid-sentence connective needs at least two sentences, and the opening
	// (prefix + first sentence + connective) must fit the budget.
	if st.midText != "" && len(sentences) >= 2 {
		opening := st.prefix + sentences[0] + st.midText + " "
		if len(opening) <= maxChars {
			return appendSentences(opening, sentences[1:], maxChars)
		}
	}

	summary := appendSentences(st.prefix, sentences, maxChars)
	if summary == strings.TrimSpace(st.prefix) || summary == "" {
		// Not even one sentence fit after the prefix.
		return cutFirstParagraph(st.prefix, text, maxChars)
	}
	return summary
}

// appendSentences adds whole sentences while the running total stays within
// maxChars.
func appendSentences(opening string, sentences []string, maxChars int) string {
	summary := opening
	length := len(summary)
	for _, sentence := range sentences {
		if sentence == "" {
			continue
		}
		if length+len(sentence) > maxChars {
			break
		}
		summary += sentence + " "
		length += len(sentence) + 1
	}
	return strings.TrimSpace(summary)
}

// extractSentences splits a bounded prefix of the text on terminal
// punctuation.
func extractSentences(text string) []string {
	window := text
	if runes := []rune(text); len(runes) > sentenceWindow {
		window = string(runes[:sentenceWindow])
	}
	raw := sentencePattern.FindAllString(window, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// cutFirstParagraph is the fallback when no usable sentence exists: cut the
// first paragraph at the last terminal punctuation inside the window, else
// at the last whitespace past 80% of the window, else hard-cut.
func cutFirstParagraph(prefix, text string, maxChars int) string {
	firstPara, _, _ := strings.Cut(text, "\n\n")

	budget := maxChars - len(prefix)
	if budget <= 0 {
		return strings.TrimSpace(prefix)
	}
	if len(firstPara) <= budget {
		return strings.TrimSpace(prefix + strings.TrimSpace(firstPara))
	}

	cut := firstPara[:budget]
	lastEnd := -1
	for _, p := range []string{".", "?", "!"} {
		if i := strings.LastIndex(cut, p); i > lastEnd {
			lastEnd = i
		}
	}
	if lastEnd > 0 {
		return strings.TrimSpace(prefix + strings.TrimSpace(firstPara[:lastEnd+1]))
	}

	if lastSpace := strings.LastIndex(cut, " "); lastSpace > budget*8/10 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(prefix + strings.TrimSpace(cut))
}
