package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
	EventError     EventType = "error"
	EventForkJoin  EventType = "fork_join"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	ExecutionID string    `json:"execution_id"`
}

// NodeEvent represents entry into or exit from an executable node.
type NodeEvent struct {
	EventBase
	NodeID   string `json:"node_id"`
	NodeKind Kind   `json:"node_kind"`
}

// ErrorEvent is emitted when a node raises and the engine starts handling.
type ErrorEvent struct {
	EventBase
	NodeID    string `json:"node_id"`
	HandlerID string `json:"handler_id,omitempty"`
	Handled   bool   `json:"handled"`
	Err       error  `json:"-"`
}

// ForkEvent is emitted when a fork sub-execution finishes.
type ForkEvent struct {
	EventBase
	NodeID    string        `json:"node_id"`
	Committed bool          `json:"committed"`
	Duration  time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the executing goroutine; with concurrent forks
// they may be invoked from several goroutines at once.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnError     func(context.Context, *ErrorEvent)
	OnForkJoin  func(context.Context, *ForkEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave: chain(h.OnNodeLeave, other.OnNodeLeave),
		OnError:     chain(h.OnError, other.OnError),
		OnForkJoin:  chain(h.OnForkJoin, other.OnForkJoin),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
