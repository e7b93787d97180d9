package strategy

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a registered strategy.
type Status int

const (
	StatusCreated Status = iota
	StatusInitialized
	StatusRunning
	StatusStopped
	// StatusError marks a strategy quarantined after too many consecutive
	// evaluate failures. Start clears it.
	StatusError
	// StatusTerminated is terminal; the Shutdown hook has run.
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusInitialized:
		return "initialized"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusError:
		return "error"
	case StatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Info is a point-in-time snapshot of one registered strategy's bookkeeping.
type Info struct {
	Name             string
	Status           Status
	SignalsGenerated int
	SignalsExecuted  int
	// ConsecutiveErrors counts evaluate failures since the last success.
	ConsecutiveErrors int
	LastEvaluated     time.Time
	RegisteredAt      time.Time
}

// handle is the engine's per-strategy bookkeeping. All fields are guarded
// by the engine mutex.
type handle struct {
	strategy Strategy
	cfg      Config
	status   Status

	signalsGenerated int
	signalsExecuted  int
	errCount         int
	lastEvaluated    time.Time
	registeredAt     time.Time
}

func (h *handle) info() Info {
	return Info{
		Name:              h.strategy.Name(),
		Status:            h.status,
		SignalsGenerated:  h.signalsGenerated,
		SignalsExecuted:   h.signalsExecuted,
		ConsecutiveErrors: h.errCount,
		LastEvaluated:     h.lastEvaluated,
		RegisteredAt:      h.registeredAt,
	}
}

// registry keeps handles in registration order so evaluation is
// deterministic. Callers hold the engine mutex.
type registry struct {
	order   []string
	handles map[string]*handle
}

func newRegistry() *registry {
	return &registry{handles: map[string]*handle{}}
}

func (r *registry) add(h *handle) error {
	name := h.strategy.Name()
	if _, ok := r.handles[name]; ok {
		return fmt.Errorf("%w: %s", ErrStrategyExists, name)
	}
	r.handles[name] = h
	r.order = append(r.order, name)
	return nil
}

func (r *registry) get(name string) (*handle, error) {
	h, ok := r.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, name)
	}
	return h, nil
}

// inOrder returns handles in registration order.
func (r *registry) inOrder() []*handle {
	out := make([]*handle, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.handles[name])
	}
	return out
}

// removeLast undoes the most recent add, used when Initialize fails.
func (r *registry) removeLast() {
	if len(r.order) == 0 {
		return
	}
	name := r.order[len(r.order)-1]
	r.order = r.order[:len(r.order)-1]
	delete(r.handles, name)
}

func (r *registry) len() int { return len(r.order) }
