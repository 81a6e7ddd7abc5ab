package analysis

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// classify turns one raw provider answer into a Response: whether the
// brand is mentioned, its position when the answer is a ranked list, which
// competitors appear, and the overall tone.
func classify(providerName string, prompt domain.Prompt, answer string, brand string, competitors []string) domain.Response {
	resp := domain.Response{
		Provider:  providerName,
		PromptID:  prompt.ID,
		Prompt:    prompt.Text,
		RawText:   answer,
		Sentiment: classifySentiment(answer),
	}

	resp.BrandMentioned = mentionsName(answer, brand)
	if resp.BrandMentioned {
		resp.BrandPosition = listPosition(answer, brand)
	}
	for _, name := range competitors {
		if mentionsName(answer, name) {
			resp.CompetitorsMentioned = append(resp.CompetitorsMentioned, name)
		}
	}
	return resp
}

// mentionsName reports whether text contains name as a whole word,
// case-insensitively.
func mentionsName(text, name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(text)
	target := strings.ToLower(name)
	for idx := 0; ; {
		i := strings.Index(lower[idx:], target)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(target)
		if boundaryAt(lower, start-1) && boundaryAt(lower, end) {
			return true
		}
		idx = start + 1
	}
}

func boundaryAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

var listItemRe = regexp.MustCompile(`^\s*(\d+)[.)\]:]\s+(.*)`)

// listPosition extracts the brand's 1-based rank when the answer contains
// a numbered list naming it. Returns 0 when the answer has no usable
// ranking, which callers treat as "mentioned but not positioned".
func listPosition(answer, brand string) int {
	for _, line := range strings.Split(answer, "\n") {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if mentionsName(m[2], brand) {
			pos := 0
			for _, c := range m[1] {
				pos = pos*10 + int(c-'0')
			}
			return pos
		}
	}
	return 0
}

var (
	positiveWords = []string{
		"best", "excellent", "great", "leading", "top", "popular",
		"recommended", "reliable", "innovative", "outstanding", "trusted",
		"powerful", "impressive", "strong",
	}
	negativeWords = []string{
		"worst", "poor", "bad", "unreliable", "disappointing", "avoid",
		"expensive", "limited", "weak", "outdated", "struggles", "lacks",
	}
)

// classifySentiment does a coarse lexicon count over the whole answer.
// Ties and empty answers are neutral.
func classifySentiment(answer string) domain.Sentiment {
	lower := strings.ToLower(answer)
	score := 0
	for _, w := range positiveWords {
		score += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		score -= strings.Count(lower, w)
	}
	switch {
	case score > 0:
		return domain.SentimentPositive
	case score < 0:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
