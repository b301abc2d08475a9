package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/fingenie/internal/domain"
)

func sampleResult() domain.RetrievalResult {
	return domain.RetrievalResult{
		Query: "isa",
		Hits: []domain.Hit{
			{ID: "b", Document: "Fixed Rate ISA", Metadata: map[string]any{"url": "https://x/isa", "chunk_index": 1}, Score: 0.9},
			{ID: "a", Document: "Everyday Saver", Metadata: map[string]any{"url": "https://x/saver", "chunk_index": 0}, Score: 0.5},
		},
	}
}

func TestFormat(t *testing.T) {
	want := "Information from map[chunk_index:1 url:https://x/isa]:\nFixed Rate ISA" +
		"\n\n" +
		"Information from map[chunk_index:0 url:https://x/saver]:\nEveryday Saver"
	assert.Equal(t, want, Format(sampleResult()))
}

func TestFormatIsIdempotent(t *testing.T) {
	res := sampleResult()
	first := Format(res)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Format(res))
	}
}

func TestFormatEmptyResult(t *testing.T) {
	assert.Equal(t, "", Format(domain.RetrievalResult{}))
	out := Format(domain.RetrievalResult{Hits: []domain.Hit{{Document: "doc"}}})
	assert.Equal(t, "Information from map[]:\ndoc", out)
}

func TestTrimToBudget(t *testing.T) {
	res := sampleResult()
	res.Hits[1].Document = strings.Repeat("savings ", 400)

	assert.Equal(t, res, TrimToBudget(res, 0))

	trimmed := TrimToBudget(res, 50)
	assert.Len(t, trimmed.Hits, 1)
	assert.Equal(t, "b", trimmed.Hits[0].ID)
	assert.Equal(t, "isa", trimmed.Query)

	assert.Empty(t, TrimToBudget(res, 1).Hits)
}
