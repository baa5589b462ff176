// Package popup is the query host: the user-facing surface that asks the
// page context for the latest extraction snapshot on demand. It has no page
// access of its own; everything goes through the relay.
package popup

import (
	"encoding/json"
	"fmt"

	"introscan/internal/dom"
	"introscan/internal/relay"
)

// Localized errors surfaced to the end user, matching the production popup.
const (
	errPageUnreachable = "페이지 컨텍스트를 찾을 수 없습니다"
	errNoResponse      = "응답이 없습니다"
)

// Client queries the page endpoint over the bus.
type Client struct {
	bus *relay.Bus
}

// NewClient creates a query-host client on the given bus.
func NewClient(bus *relay.Bus) *Client {
	return &Client{bus: bus}
}

// Fetch returns the page context's current snapshot. It never recomputes
// anything and has no side effect on the page; an unreachable page context
// yields a localized error.
func (c *Client) Fetch() (dom.Result, error) {
	raw, err := c.bus.Request(relay.EndpointPage, relay.Envelope{Type: relay.TypeQuerySnapshot})
	if err != nil {
		return dom.ZeroResult(), fmt.Errorf("%s: %w", errPageUnreachable, err)
	}
	var r dom.Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return dom.ZeroResult(), fmt.Errorf("%s: %w", errNoResponse, err)
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	return r, nil
}
