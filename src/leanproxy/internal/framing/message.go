package framing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind classifies a JSON-RPC envelope.
type Kind int

const (
	// KindRequest is a call that expects a response (method and id present).
	KindRequest Kind = iota
	// KindNotification is a call with no id; no response will follow.
	KindNotification
	// KindResponse carries a result or error correlated by id.
	KindResponse
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Message is the decoded JSON-RPC envelope of a single frame. Params, Result
// and ID are kept raw: the proxy routes envelopes, it does not interpret them
// beyond the method name.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error member of a JSON-RPC response.
type ResponseError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Kind reports whether the message is a request, notification or response.
func (m Message) Kind() Kind {
	if m.Method == "" {
		return KindResponse
	}
	if len(m.ID) == 0 || bytes.Equal(m.ID, []byte("null")) {
		return KindNotification
	}
	return KindRequest
}

// Parse decodes body into a Message. The body must be a JSON object; anything
// else is a protocol violation on the stream that carried it.
func Parse(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("decoding JSON-RPC envelope: %w", err)
	}
	return m, nil
}
