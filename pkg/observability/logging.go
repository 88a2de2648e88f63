package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, errors at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "execution_id", e.ExecutionID, "node_id", e.NodeID, "kind", e.NodeKind)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "execution_id", e.ExecutionID, "node_id", e.NodeID)
		},
		OnError: func(ctx context.Context, e *domain.ErrorEvent) {
			logger.WarnContext(ctx, "node_error",
				"execution_id", e.ExecutionID,
				"node_id", e.NodeID,
				"handler", e.HandlerID,
				"handled", e.Handled,
				"err", e.Err,
			)
		},
		OnForkJoin: func(ctx context.Context, e *domain.ForkEvent) {
			logger.DebugContext(ctx, "fork_join",
				"execution_id", e.ExecutionID,
				"node_id", e.NodeID,
				"committed", e.Committed,
				"duration", e.Duration,
			)
		},
	}
}
