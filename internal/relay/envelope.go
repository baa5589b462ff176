package relay

import "encoding/json"

// Well-known endpoint names on the bus.
const (
	EndpointPage       = "page"
	EndpointBackground = "background"
)

// Message type tags carried in every envelope. Each tag identifies one
// logical channel; receivers ignore tags they have no handler for.
const (
	// TypeDescribe asks the background context to run the remote
	// image-to-text call. Request/response.
	TypeDescribe = "PRODUCT_INTRODUCE_DATA"
	// TypeNotify ships the extracted payload to the background context for
	// logging. Fire-and-forget.
	TypeNotify = "PRODUCT_DATA_TO_SEND"
	// TypeQuerySnapshot asks the page context for the latest extraction
	// snapshot. Request/response.
	TypeQuerySnapshot = "GET_INTRODUCE_DATA"
)

// Envelope is the unit of cross-context transfer. Payloads stay serialized so
// no endpoint ever shares memory with another.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// DescribePayload is the page→background request body for TypeDescribe.
// Name carries the page location, forwarded to the remote service as a link.
type DescribePayload struct {
	Name   string   `json:"name"`
	Images []string `json:"images"`
}

// NotifyPayload is the page→background body for TypeNotify.
type NotifyPayload struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

// DescribeReply is the background→page reply for TypeDescribe. Data holds the
// remote service's JSON verbatim on success; Error holds the stringified
// cause on failure.
type DescribeReply struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
