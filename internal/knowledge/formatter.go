package knowledge

import (
	"fmt"
	"strings"

	"github.com/xiaot623/fingenie/internal/domain"
)

const blockSeparator = "\n\n"

// Format renders every hit as "Information from {metadata}:\n{doc}" and
// joins the blocks with a blank line. fmt prints map keys in sorted
// order, so the output is stable for a given result.
func Format(res domain.RetrievalResult) string {
	blocks := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		blocks = append(blocks, formatHit(h))
	}
	return strings.Join(blocks, blockSeparator)
}

func formatHit(h domain.Hit) string {
	meta := h.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return fmt.Sprintf("Information from %v:\n%s", meta, h.Document)
}
