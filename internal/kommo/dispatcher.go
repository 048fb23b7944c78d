package kommo

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/wamid/kommobot/internal/log"
)

// Dispatcher sends one reply per call and swallows failures after logging them.
type Dispatcher struct {
	client  *Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewDispatcher creates a dispatcher for cfg. It does not check whether
// cfg.AccessToken is set; callers only build one when it is.
func NewDispatcher(cfg Config, client *Client, logger *slog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MsgIDPrefix == "" {
		cfg.MsgIDPrefix = DefaultMsgIDPrefix
	}
	if client == nil {
		client = NewClient(cfg, nil)
	}
	return &Dispatcher{
		client:  client,
		prefix:  cfg.MsgIDPrefix,
		timeout: cfg.Timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// NewMsgID returns prefix + Unix milliseconds. Two calls within the same
// millisecond collide.
func NewMsgID(prefix string, t time.Time) string {
	return prefix + strconv.FormatInt(t.UnixMilli(), 10)
}

// Dispatch makes a single delivery attempt of text into conversationID.
// Failures are logged and reported in the Outcome, never returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, conversationID, text string) Outcome {
	out := Outcome{
		DeliveryID: uuid.NewString(),
		MsgID:      NewMsgID(d.prefix, d.now()),
	}

	msg := OutgoingMessage{
		Type:           MessageTypeOutgoing,
		Message:        MessageText{Text: text},
		ConversationID: conversationID,
		MsgID:          out.MsgID,
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	status, err := d.client.SendMessages(ctx, []OutgoingMessage{msg})
	out.StatusCode = status
	logger := log.WithConversation(d.logger, conversationID).With(
		"delivery_id", out.DeliveryID,
		"msgid", out.MsgID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err != nil {
		out.Err = err
		logger.Error("send message failed", "status", status, "reason", failureReason(err))
		return out
	}

	out.Delivered = true
	logger.Info("message sent", "status", status)
	return out
}

// failureReason returns the client's error code without exposing the error
// text, which may carry request details.
func failureReason(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok && code != "" {
			return code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return "internal"
}
