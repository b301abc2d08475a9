package knowledge

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/xiaot623/fingenie/internal/domain"
)

const budgetEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens estimates the prompt size of text. It uses the cl100k_base
// encoding when it can be loaded and a quarter of the rune count otherwise.
func CountTokens(text string) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(budgetEncoding)
		if err == nil {
			enc = e
		}
	})
	if enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// TrimToBudget drops the lowest ranked hits until the formatted result
// fits in maxTokens. A non-positive budget disables trimming.
func TrimToBudget(res domain.RetrievalResult, maxTokens int) domain.RetrievalResult {
	if maxTokens <= 0 {
		return res
	}
	hits := res.Hits
	for len(hits) > 0 && CountTokens(Format(domain.RetrievalResult{Hits: hits})) > maxTokens {
		hits = hits[:len(hits)-1]
	}
	return domain.RetrievalResult{Query: res.Query, Hits: hits}
}
