package page

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"introscan/internal/dom"
	"introscan/internal/relay"
)

// State is the pipeline's lifecycle position. There is a single legal path
// Idle → Watching → Running → Done; Done is terminal, so a page re-render
// never restarts an already finished run.
type State int

const (
	StateIdle State = iota
	StateWatching
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Config carries the pipeline's timing budget and page constants.
type Config struct {
	TargetID     string        // id of the introduction region
	ExpandText   string        // exact text of the lazy expand control
	PollInterval time.Duration // expand-control poll interval
	PollAttempts int           // expand-control poll budget
	WaitTimeout  time.Duration // appearance wait budget
}

// Pipeline is the page context's one-shot run: trigger the expand control,
// wait for the region, extract, publish the snapshot, and drive the banner
// through the describe round trip. It also answers snapshot queries on the
// page endpoint, registered before the run starts so early queries see the
// defined zero value.
type Pipeline struct {
	surface Surface
	bus     *relay.Bus
	cell    *Cell
	cfg     Config

	mu          sync.Mutex
	state       State
	identity    Identity
	description string
}

// Summary is what a finished run showed in the banner.
type Summary struct {
	Identity    Identity
	Description string
}

// NewPipeline wires a pipeline to its surface and bus, and registers the
// page endpoint's query handler.
func NewPipeline(surface Surface, bus *relay.Bus, cfg Config) (*Pipeline, error) {
	p := &Pipeline{
		surface: surface,
		bus:     bus,
		cell:    NewCell(),
		cfg:     cfg,
	}
	if err := bus.Register(relay.EndpointPage, p.handleMessage); err != nil {
		return nil, err
	}
	return p, nil
}

// Cell exposes the snapshot slot (read-only use: the pipeline is the only
// writer).
func (p *Pipeline) Cell() *Cell {
	return p.cell
}

// State reports the current lifecycle position.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// handleMessage serves the page endpoint. Only the snapshot query channel is
// answered; everything else is ignored for forward compatibility.
func (p *Pipeline) handleMessage(env relay.Envelope) (json.RawMessage, bool) {
	if env.Type != relay.TypeQuerySnapshot {
		return nil, false
	}
	raw, err := json.Marshal(p.cell.Load())
	if err != nil {
		log.Printf("[page] snapshot marshal failed: %v", err)
		return nil, false
	}
	return raw, true
}

func (p *Pipeline) transition(from, to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != from {
		return fmt.Errorf("pipeline is %s, not %s", p.state, from)
	}
	p.state = to
	return nil
}

// Start watches for the target region and runs the pipeline once when it
// appears. When the region never appears within the wait budget the pipeline
// finishes without running, matching the one-shot watch semantics: a second
// trigger is never honored.
func (p *Pipeline) Start() error {
	if err := p.transition(StateIdle, StateWatching); err != nil {
		return err
	}
	if !p.surface.AwaitPresence(p.cfg.TargetID, p.cfg.WaitTimeout) {
		log.Printf("[page] target %q never appeared, finishing without a run", p.cfg.TargetID)
		p.mu.Lock()
		p.state = StateDone
		p.mu.Unlock()
		return nil
	}
	if err := p.transition(StateWatching, StateRunning); err != nil {
		return err
	}
	p.run()
	p.mu.Lock()
	p.state = StateDone
	p.mu.Unlock()
	return nil
}

// run executes one extraction pass. Every stage degrades to defaults on
// failure; nothing here aborts the run.
func (p *Pipeline) run() {
	if p.surface.TriggerExpand(p.cfg.ExpandText, p.cfg.PollInterval, p.cfg.PollAttempts) {
		log.Printf("[page] expand control %q clicked", p.cfg.ExpandText)
	} else {
		log.Printf("[page] expand control %q not found", p.cfg.ExpandText)
	}

	p.surface.AwaitPresence(p.cfg.TargetID, p.cfg.WaitTimeout)

	result := p.surface.Snapshot(p.cfg.TargetID)
	p.cell.Store(result)

	p.notify(result)

	id := p.surface.Identity()
	p.surface.ShowBanner(id.Thumbnail, id.Name, id.Price, result.Text)

	desc := p.describe(result)
	p.surface.UpdateDescription(desc)

	p.mu.Lock()
	p.identity = id
	p.description = desc
	p.mu.Unlock()
}

// Summary reports the identity and description of the finished run. Before
// any run it holds zero values.
func (p *Pipeline) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Summary{Identity: p.identity, Description: p.description}
}

// notify ships the extraction payload to the background context. Failures
// are not observable beyond a log line.
func (p *Pipeline) notify(result dom.Result) {
	env, err := relay.NewEnvelope(relay.TypeNotify, relay.NotifyPayload{
		Text:   result.Text,
		Images: result.Images,
	})
	if err == nil {
		err = p.bus.Send(relay.EndpointBackground, env)
	}
	if err != nil {
		log.Printf("[page] notify failed: %v", err)
	}
}

// describe runs the DESCRIBE round trip and turns the reply into the banner's
// updated description. Any failure, and any reply without a texts array,
// yields the fallback placeholder.
func (p *Pipeline) describe(result dom.Result) string {
	env, err := relay.NewEnvelope(relay.TypeDescribe, relay.DescribePayload{
		Name:   p.surface.Location(),
		Images: result.Images,
	})
	if err != nil {
		log.Printf("[page] describe envelope failed: %v", err)
		return FallbackExtra
	}
	raw, err := p.bus.Request(relay.EndpointBackground, env)
	if err != nil {
		log.Printf("[page] describe request failed: %v", err)
		return FallbackExtra
	}
	var reply relay.DescribeReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		log.Printf("[page] describe reply malformed: %v", err)
		return FallbackExtra
	}
	if !reply.Success {
		log.Printf("[page] describe rejected: %s", reply.Error)
		return FallbackExtra
	}
	var data struct {
		Texts []string `json:"texts"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil || len(data.Texts) == 0 {
		return FallbackExtra
	}
	return strings.Join(data.Texts, "\n")
}
