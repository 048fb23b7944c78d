package kommo

import "time"

// MessagesPath is the chat API endpoint used for outgoing messages.
const MessagesPath = "/api/v4/chats/messages"

// Default values
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMsgIDPrefix  = "wamid-"
	MessageTypeOutgoing = "outgoing"
)

// Config holds the outbound API settings.
type Config struct {
	// BaseURL is the account URL, e.g. https://example.kommo.com
	BaseURL string

	// AccessToken is the bearer credential for the chat API
	AccessToken string

	// Timeout bounds a single send attempt (default: 10s)
	Timeout time.Duration

	// MsgIDPrefix is prepended to the millisecond timestamp in msgid (default: "wamid-")
	MsgIDPrefix string
}

// MessageText is the text payload of a chat message.
type MessageText struct {
	Text string `json:"text"`
}

// OutgoingMessage is one reply sent into a conversation.
type OutgoingMessage struct {
	Type           string      `json:"type"`
	Message        MessageText `json:"message"`
	ConversationID string      `json:"conversation_id"`
	MsgID          string      `json:"msgid"`
}

// SendRequest is the JSON body of POST /api/v4/chats/messages.
type SendRequest struct {
	Messages []OutgoingMessage `json:"messages"`
}

// Outcome describes a finished dispatch attempt. It is informational only.
type Outcome struct {
	DeliveryID string
	MsgID      string
	Delivered  bool
	StatusCode int
	Err        error
}
