package runtime

import (
	"context"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
)

func (e *Engine) emitNodeEnter(ctx context.Context, fc *ExecContext, n Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter, ExecutionID: fc.execID},
		NodeID:    n.ID(),
		NodeKind:  n.Kind(),
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, fc *ExecContext, n Node) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave, ExecutionID: fc.execID},
		NodeID:    n.ID(),
		NodeKind:  n.Kind(),
	})
}

func (e *Engine) emitError(ctx context.Context, fc *ExecContext, nodeID, handlerID string, handled bool, err error) {
	if e.hooks.OnError == nil {
		return
	}
	e.hooks.OnError(ctx, &domain.ErrorEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventError, ExecutionID: fc.execID},
		NodeID:    nodeID,
		HandlerID: handlerID,
		Handled:   handled,
		Err:       err,
	})
}

func (e *Engine) emitForkJoin(ctx context.Context, fc *ExecContext, n Node, committed bool, started time.Time) {
	if e.hooks.OnForkJoin == nil {
		return
	}
	e.hooks.OnForkJoin(ctx, &domain.ForkEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventForkJoin, ExecutionID: fc.execID},
		NodeID:    n.ID(),
		Committed: committed,
		Duration:  time.Since(started),
	})
}
