package dsl

import (
	"fmt"
	"sort"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/registry"
)

// Builder manages the graph construction.
type Builder struct {
	nodes      map[string]*NodeBuilder
	containers []domain.Container
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:    id,
			Edges: make(map[string][]string),
		},
	}
	b.nodes[id] = nb
	return nb
}

// Container declares an invocable entry point. handler may be empty.
func (b *Builder) Container(name, start, handler string) *Builder {
	b.containers = append(b.containers, domain.Container{Name: name, Start: start, DefaultHandler: handler})
	return b
}

// Graph is a built flow graph. It serves node records and resolves containers.
type Graph struct {
	*memory.Loader
	*registry.Registry
}

// Nodes returns the built records sorted by ID.
func (b *Builder) Nodes() []domain.Node {
	ids := make([]string, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]domain.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, b.nodes[id].Build())
	}
	return nodes
}

// Build compiles the graph into an in-memory loader and container registry.
func (b *Builder) Build() (*Graph, error) {
	for _, nb := range b.nodes {
		if nb.node.Kind == "" {
			return nil, fmt.Errorf("node %s: kind not set", nb.node.ID)
		}
	}

	loader, err := memory.NewFromNodes(b.Nodes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	reg, err := registry.NewRegistry(b.containers...)
	if err != nil {
		return nil, fmt.Errorf("failed to build container registry: %w", err)
	}
	return &Graph{Loader: loader, Registry: reg}, nil
}
