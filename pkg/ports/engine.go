package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// FlowEngine is the interface adapters (HTTP, MCP) use to drive containers.
type FlowEngine interface {
	// Evaluate runs the named container with the given input parameters.
	Evaluate(ctx context.Context, container string, params map[string]any) (domain.Result, error)

	// Containers lists the invocable containers.
	Containers() []ContainerDefinition

	// Inspect returns every node reachable from the named container.
	Inspect(container string) ([]domain.Node, error)
}
