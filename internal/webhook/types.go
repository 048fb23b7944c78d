package webhook

import (
	"context"

	"github.com/wamid/kommobot/internal/kommo"
)

//go:generate mockgen -destination=mocks/mock_sender.go -package=mocks github.com/wamid/kommobot/internal/webhook Sender

// Sender delivers a reply into a conversation. Implementations report the
// outcome but never fail the caller.
type Sender interface {
	Dispatch(ctx context.Context, conversationID, text string) kommo.Outcome
}

// Classifier picks the reply text for an inbound message.
type Classifier interface {
	Classify(text string) string
}

// Config holds webhook server configuration.
type Config struct {
	// Listen is the host:port the server binds to
	Listen string

	// Path is the URL path of the chat webhook (default: "/chat/webhook")
	Path string

	// Secret is the HMAC-SHA1 channel secret. Empty means open mode.
	Secret string

	// SignatureHeader carries the hex digest (default: "X-Signature")
	SignatureHeader string

	// MaxBodySize is the maximum allowed request body size in bytes (default: 100KB)
	MaxBodySize int64

	// DispatchEnabled is true when an access token is configured
	DispatchEnabled bool

	// AsyncDispatch acknowledges before the outbound attempt finishes
	AsyncDispatch bool
}

// AckResponse is the JSON response for accepted webhook calls.
type AckResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultPath            = "/chat/webhook"
	DefaultSignatureHeader = "X-Signature"
	DefaultMaxBodySize     = 102400 // 100 KB, express.json() default
	HealthPath             = "/health"
)
