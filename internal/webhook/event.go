package webhook

import (
	"bytes"
	"encoding/json"
)

// IncomingEvent is the part of a chat webhook the bot reads.
type IncomingEvent struct {
	ConversationID string
	Text           string
}

// ParseEvent extracts the conversation id and message text from body.
// It never fails: anything missing, mistyped or unparseable becomes "".
// A numeric conversation_id is kept as its literal text, so replies always
// carry the id as a JSON string.
func ParseEvent(body []byte) IncomingEvent {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return IncomingEvent{}
	}

	ev := IncomingEvent{
		ConversationID: scalarString(top["conversation_id"], true),
	}

	var message map[string]json.RawMessage
	if err := json.Unmarshal(top["message"], &message); err == nil {
		ev.Text = scalarString(message["text"], false)
	}
	return ev
}

func scalarString(raw json.RawMessage, allowNumber bool) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case allowNumber && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	default:
		return ""
	}
}
