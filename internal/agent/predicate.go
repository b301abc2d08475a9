package agent

import (
	"strings"

	"github.com/xiaot623/fingenie/internal/domain"
)

// Predicate decides whether a received message ends the conversation.
type Predicate func(msg domain.Message) bool

// Never is a predicate that never fires.
func Never(domain.Message) bool { return false }

// ExactWords matches when the whole message, trimmed and lowercased, equals
// one of words.
func ExactWords(words ...string) Predicate {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return func(msg domain.Message) bool {
		_, ok := set[strings.ToLower(strings.TrimSpace(msg.Content))]
		return ok
	}
}

// Contains matches case-insensitively on a substring.
func Contains(substr string) Predicate {
	needle := strings.ToLower(substr)
	return func(msg domain.Message) bool {
		return strings.Contains(strings.ToLower(msg.Content), needle)
	}
}

// Any fires when at least one of preds fires.
func Any(preds ...Predicate) Predicate {
	return func(msg domain.Message) bool {
		for _, p := range preds {
			if p != nil && p(msg) {
				return true
			}
		}
		return false
	}
}

// ExitWords are the words a person types to leave a conversation.
var ExitWords = ExactWords("quit", "exit", "bye")
