package compiler

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Program is the node arena of one container: every record reachable from
// its start node and default handler, indexed by ID.
type Program struct {
	Entry   string
	Handler string
	Nodes   map[string]*domain.Node
	// Order lists node IDs in discovery order, entry first.
	Order []string
}

// Node returns the record with the given ID.
func (p *Program) Node(id string) (*domain.Node, bool) {
	n, ok := p.Nodes[id]
	return n, ok
}

// Compile loads and parses every node reachable from entry and handler.
// Edges are followed breadth-first; call nodes do not pull in their callee.
func Compile(loader ports.GraphLoader, parser *Parser, entry, handler string) (*Program, error) {
	if entry == "" {
		return nil, &domain.ConfigError{NodeID: entry, Reason: "container has no start node"}
	}

	prog := &Program{
		Entry:   entry,
		Handler: handler,
		Nodes:   make(map[string]*domain.Node),
	}

	queue := []string{entry}
	if handler != "" {
		queue = append(queue, handler)
	}

	var errs []error
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := prog.Nodes[id]; seen {
			continue
		}

		raw, err := loader.GetNode(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to load node %s: %w", id, err))
			prog.Nodes[id] = nil
			continue
		}
		node, err := parser.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to parse node %s: %w", id, err))
			prog.Nodes[id] = nil
			continue
		}
		if node.ID != id {
			errs = append(errs, fmt.Errorf("node %s: record declares id '%s'", id, node.ID))
		}

		prog.Nodes[id] = node
		prog.Order = append(prog.Order, id)
		for _, target := range node.Targets() {
			if _, seen := prog.Nodes[target]; !seen {
				queue = append(queue, target)
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return prog, nil
}
