package model

// Chat roles as sent by the client. Anything that is not RoleUser is treated
// as a prior assistant turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation history supplied by the client.
// The gateway never stores history; extra client fields (timestamps, tone
// badges) are ignored on decode.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
