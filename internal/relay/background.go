package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// DescribePath is the remote image-to-text endpoint, relative to the
// service base URL.
const DescribePath = "/api/image-to-text"

// Background is the privileged relay context: the only endpoint allowed to
// reach the remote network service on behalf of the page context.
type Background struct {
	client  *http.Client
	baseURL string
}

// NewBackground creates the background handler for the given service base
// URL. timeout bounds the remote round trip; zero selects 30s.
func NewBackground(baseURL string, timeout time.Duration) *Background {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Background{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Handle serves the background endpoint's channels. DESCRIBE always gets
// exactly one structured reply; NOTIFY is logged and never answered; other
// types are ignored.
func (b *Background) Handle(env Envelope) (json.RawMessage, bool) {
	switch env.Type {
	case TypeDescribe:
		return b.describe(env.Payload), true
	case TypeNotify:
		var p NotifyPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("[background] bad notify payload: %v", err)
			return nil, false
		}
		log.Printf("[background] received %d chars, %d images", len(p.Text), len(p.Images))
		return nil, false
	default:
		return nil, false
	}
}

// describe forwards the extraction payload to the remote service and maps any
// failure into a structured reply. It never lets an error escape the relay
// boundary.
func (b *Background) describe(payload json.RawMessage) json.RawMessage {
	var p DescribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return describeFailure(fmt.Errorf("bad describe payload: %w", err))
	}

	body, err := json.Marshal(struct {
		Link   string   `json:"link"`
		Images []string `json:"images"`
	}{Link: p.Name, Images: p.Images})
	if err != nil {
		return describeFailure(err)
	}

	resp, err := b.client.Post(b.baseURL+DescribePath, "application/json", bytes.NewReader(body))
	if err != nil {
		return describeFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return describeFailure(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return describeFailure(fmt.Errorf("remote service returned %s", resp.Status))
	}
	if !json.Valid(raw) {
		return describeFailure(fmt.Errorf("remote service returned non-JSON body"))
	}

	reply, err := json.Marshal(DescribeReply{Success: true, Data: raw})
	if err != nil {
		return describeFailure(err)
	}
	return reply
}

func describeFailure(cause error) json.RawMessage {
	log.Printf("[background] describe failed: %v", cause)
	reply, _ := json.Marshal(DescribeReply{Success: false, Error: cause.Error()})
	return reply
}
