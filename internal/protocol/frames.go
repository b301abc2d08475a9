// Package protocol defines the WebSocket frames exchanged with the chat page.
// Outbound frames are JSON objects; inbound frames are plain text replies.
package protocol

// Frame types from server to client
const (
	TypeInputPrompt = "input_prompt"
	TypeBot         = "bot"
	TypeStatus      = "status"
	TypeError       = "error"
)

// InputPromptText is the content of every input_prompt frame.
const InputPromptText = "Please provide your response:"

// Frame is a single outbound message.
type Frame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Agent   string `json:"agent,omitempty"`
}

// Bot is a message spoken by the named agent.
func Bot(agent, content string) Frame {
	return Frame{Type: TypeBot, Agent: agent, Content: content}
}

func Status(content string) Frame {
	return Frame{Type: TypeStatus, Content: content}
}

func Error(content string) Frame {
	return Frame{Type: TypeError, Content: content}
}

func InputPrompt() Frame {
	return Frame{Type: TypeInputPrompt, Content: InputPromptText}
}
