// Package tokens estimates token counts for provider calls whose upstream
// API omits usage figures, so per-run usage totals stay meaningful.
package tokens

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecMu    sync.RWMutex
	codecCache = make(map[tokenizer.Encoding]tokenizer.Codec)
)

// Estimate counts the tokens of text for the given model. Unknown models
// fall back to the cl100k encoding; if the tokenizer itself fails, a
// rune-count heuristic (4 runes per token) keeps the estimate non-zero.
func Estimate(model, text string) int {
	if text == "" {
		return 0
	}
	codec, err := codecFor(model)
	if err != nil {
		return utf8.RuneCountInString(text)/4 + 1
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return utf8.RuneCountInString(text)/4 + 1
	}
	return len(ids)
}

func codecFor(model string) (tokenizer.Codec, error) {
	if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return codec, nil
	}

	encoding := tokenizer.Cl100kBase
	lower := strings.ToLower(model)
	if strings.HasPrefix(lower, "gpt-4o") || strings.HasPrefix(lower, "gpt-4.1") ||
		strings.HasPrefix(lower, "gpt-5") || strings.HasPrefix(lower, "o1") ||
		strings.HasPrefix(lower, "o3") || strings.HasPrefix(lower, "o4") {
		encoding = tokenizer.O200kBase
	}

	codecMu.RLock()
	if cached, ok := codecCache[encoding]; ok {
		codecMu.RUnlock()
		return cached, nil
	}
	codecMu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}

	codecMu.Lock()
	codecCache[encoding] = codec
	codecMu.Unlock()
	return codec, nil
}
