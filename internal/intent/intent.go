// Package intent dispatches parsed intents (a type plus raw slot values)
// to handlers that produce spoken responses.
package intent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	appLog "intentcal/internal/log"
)

var (
	// ErrUnknownIntent is returned when no handler is registered for a type.
	ErrUnknownIntent = errors.New("unknown intent")
	// ErrInvalidSlot is returned when slot values fail validation.
	ErrInvalidSlot = errors.New("invalid slot")
)

// Intent is one parsed request.
type Intent struct {
	Type  string
	Slots map[string]string

	// ConversationAgentID is the agent that received the utterance.
	ConversationAgentID string
	// Language selects the response catalogue; empty means English.
	Language string
}

// Response is the spoken answer to an Intent.
type Response struct {
	Intent    string `json:"intent"`
	Speech    string `json:"speech"`
	RequestID string `json:"request_id,omitempty"`
}

// Handler answers one intent type.
type Handler interface {
	Type() string
	Description() string
	Schema() Schema
	Handle(ctx context.Context, in *Intent, v Values) (*Response, error)
}

// Clock abstracts time.Now for deterministic handlers.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Dispatcher routes intents to registered handlers. It is safe for
// concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher returns a Dispatcher with hs registered.
func NewDispatcher(hs ...Handler) (*Dispatcher, error) {
	d := &Dispatcher{handlers: make(map[string]Handler)}
	for _, h := range hs {
		if err := d.Register(h); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds h. Registering the same type twice is an error.
func (d *Dispatcher) Register(h Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.handlers[h.Type()]; dup {
		return errors.Errorf("intent %q already registered", h.Type())
	}
	d.handlers[h.Type()] = h
	appLog.Debug("intent handler registered", "intent", h.Type())
	return nil
}

// Handlers lists registered handlers ordered by type.
func (d *Dispatcher) Handlers() []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Handler, 0, len(d.handlers))
	for _, h := range d.handlers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type() < out[j].Type() })
	return out
}

// Handle validates in's slots against the handler schema and runs it.
func (d *Dispatcher) Handle(ctx context.Context, in *Intent) (*Response, error) {
	if in == nil {
		return nil, errors.New("nil intent")
	}

	d.mu.RLock()
	h, ok := d.handlers[in.Type]
	d.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownIntent, "%q", in.Type)
	}

	v, err := h.Schema().Validate(in.Slots)
	if err != nil {
		return nil, errors.Wrapf(err, "intent %s", in.Type)
	}

	start := time.Now()
	resp, err := h.Handle(ctx, in, v)
	if err != nil {
		appLog.Error("intent handler failed", err, "intent", in.Type)
		return nil, err
	}
	resp.Intent = in.Type

	appLog.Info("intent handled", "intent", in.Type, "elapsed", time.Since(start))
	return resp, nil
}

func speak(text string) *Response {
	return &Response{Speech: text}
}
