package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Handler processes one delivered envelope on its endpoint's loop. It returns
// the reply payload and true when the message was handled with a response;
// (nil, false) means no reply, which is also how unrecognized types are
// ignored.
type Handler func(env Envelope) (json.RawMessage, bool)

type result struct {
	payload json.RawMessage
	replied bool
}

type delivery struct {
	env   Envelope
	reply chan result // nil for fire-and-forget sends
}

type endpoint struct {
	name    string
	inbox   chan delivery
	handler Handler
}

// Bus joins the page, background and popup contexts. Each endpoint runs a
// single cooperative loop over its inbox, and every payload crosses the bus
// as serialized JSON, so contexts never share memory.
type Bus struct {
	mu             sync.RWMutex
	endpoints      map[string]*endpoint
	closed         bool
	requestTimeout time.Duration
}

// NewBus creates an empty bus. requestTimeout bounds every Request so a
// handler that never replies cannot hang the caller; zero selects a 10s
// default.
func NewBus(requestTimeout time.Duration) *Bus {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Bus{
		endpoints:      make(map[string]*endpoint),
		requestTimeout: requestTimeout,
	}
}

// Register attaches a handler as a named endpoint and starts its loop.
func (b *Bus) Register(name string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	if _, ok := b.endpoints[name]; ok {
		return fmt.Errorf("endpoint %q already registered", name)
	}
	ep := &endpoint{name: name, inbox: make(chan delivery, 16), handler: h}
	b.endpoints[name] = ep
	go ep.loop()
	return nil
}

func (ep *endpoint) loop() {
	for d := range ep.inbox {
		payload, replied := ep.handler(d.env)
		if d.reply != nil {
			d.reply <- result{payload: payload, replied: replied}
		}
	}
}

// Close shuts down every endpoint loop.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ep := range b.endpoints {
		close(ep.inbox)
	}
	b.endpoints = make(map[string]*endpoint)
}

func (b *Bus) lookup(name string) (*endpoint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ep, ok := b.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("endpoint %q unreachable", name)
	}
	return ep, nil
}

// copyEnvelope round-trips the envelope through JSON so the receiver never
// aliases the sender's buffers.
func copyEnvelope(env Envelope) (Envelope, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, err
	}
	var out Envelope
	if err := json.Unmarshal(raw, &out); err != nil {
		return Envelope{}, err
	}
	return out, nil
}

// Send delivers the envelope without waiting for a reply. Failures beyond an
// unreachable endpoint are not observable to the sender.
func (b *Bus) Send(to string, env Envelope) error {
	ep, err := b.lookup(to)
	if err != nil {
		return err
	}
	copied, err := copyEnvelope(env)
	if err != nil {
		return err
	}
	ep.inbox <- delivery{env: copied}
	return nil
}

// Request delivers the envelope and waits for exactly one correlated reply.
// It fails when the endpoint is unreachable, when the receiver has no handler
// for the envelope's type, or after the request timeout.
func (b *Bus) Request(to string, env Envelope) (json.RawMessage, error) {
	ep, err := b.lookup(to)
	if err != nil {
		return nil, err
	}
	copied, err := copyEnvelope(env)
	if err != nil {
		return nil, err
	}
	reply := make(chan result, 1)
	timer := time.NewTimer(b.requestTimeout)
	defer timer.Stop()

	select {
	case ep.inbox <- delivery{env: copied, reply: reply}:
	case <-timer.C:
		return nil, fmt.Errorf("request to %q timed out", to)
	}

	select {
	case res := <-reply:
		if !res.replied {
			return nil, fmt.Errorf("no response from %q for %s", to, env.Type)
		}
		return res.payload, nil
	case <-timer.C:
		return nil, fmt.Errorf("request to %q timed out", to)
	}
}
