package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// Node is a compiled flow node.
type Node interface {
	ID() string
	Kind() domain.Kind
	Record() *domain.Node
}

// Executable nodes are reached through next edges and perform an effect.
type Executable interface {
	Node
	Execute(ctx context.Context, fc *ExecContext) error
}

// DataSource nodes produce a value when pulled by a downstream node.
type DataSource interface {
	Node
	Get(ctx context.Context, fc *ExecContext) (any, error)
}

type base struct {
	rec *domain.Node
}

func (b base) ID() string           { return b.rec.ID }
func (b base) Kind() domain.Kind    { return b.rec.Kind }
func (b base) Record() *domain.Node { return b.rec }
func (b base) next() string         { return b.rec.Edge(domain.EdgeNext) }

// newNode builds the typed variant of a record.
func newNode(rec *domain.Node) (Node, error) {
	b := base{rec: rec}
	switch rec.Kind {
	case domain.KindAction:
		return &actionNode{b}, nil
	case domain.KindCall:
		return &callNode{b}, nil
	case domain.KindDataSource:
		return &scriptSourceNode{b}, nil
	case domain.KindScriptCondition:
		return &scriptConditionNode{b}, nil
	case domain.KindGetProperty:
		return &getPropertyNode{b}, nil
	case domain.KindKeyValue:
		return &keyValueNode{b}, nil
	case domain.KindObjectDataSource:
		return &objectSourceNode{b}, nil
	case domain.KindTypeQuery:
		return &typeQueryNode{b}, nil
	case domain.KindParameter:
		return &parameterNode{b}, nil
	case domain.KindFirst:
		return &firstNode{b}, nil
	case domain.KindNotNull:
		return &notNullNode{b}, nil
	case domain.KindIsTrue:
		return &isTrueNode{b}, nil
	case domain.KindAnd:
		return &logicNode{base: b, all: true}, nil
	case domain.KindOr:
		return &logicNode{base: b, all: false}, nil
	case domain.KindNot:
		return &notNode{b}, nil
	case domain.KindComparison:
		return &comparisonNode{b}, nil
	case domain.KindDecision:
		return &decisionNode{b}, nil
	case domain.KindForEach:
		return &forEachNode{b}, nil
	case domain.KindFork:
		return &forkNode{b}, nil
	case domain.KindExceptionHandler:
		return &handlerNode{b}, nil
	case domain.KindReturn:
		return &returnNode{b}, nil
	case domain.KindStore:
		return &storeNode{b}, nil
	case domain.KindPropagator:
		return &propagatorNode{b}, nil
	case domain.KindLog:
		return &logNode{b}, nil
	}
	return nil, fmt.Errorf("node '%s': %w: %s", rec.ID, domain.ErrUnknownKind, rec.Kind)
}

// memoized returns the context value of a node, computing and recording it once.
func memoized(fc *ExecContext, id string, compute func() (any, error)) (any, error) {
	if v, ok := fc.Data(id); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	fc.SetData(id, v)
	return v, nil
}

// pullID pulls the value of the data source with the given ID.
func (c *ExecContext) pullID(ctx context.Context, id string) (any, error) {
	n, ok := c.prog.nodes[id]
	if !ok {
		return nil, &domain.ConfigError{NodeID: id, Reason: "node is not part of the container"}
	}
	ds, ok := n.(DataSource)
	if !ok {
		return nil, &domain.ConfigError{NodeID: id, Reason: fmt.Sprintf("%s node does not produce data", n.Kind())}
	}
	return ds.Get(ctx, c)
}

// pull pulls the value behind a required single-valued edge.
func (c *ExecContext) pull(ctx context.Context, from Node, edge string) (any, error) {
	id := from.Record().Edge(edge)
	if id == "" {
		return nil, domain.MissingEdge(from.ID(), edge)
	}
	return c.pullID(ctx, id)
}

// pullOptional pulls an optional edge. The boolean reports whether it is connected.
func (c *ExecContext) pullOptional(ctx context.Context, from Node, edge string) (any, bool, error) {
	id := from.Record().Edge(edge)
	if id == "" {
		return nil, false, nil
	}
	v, err := c.pullID(ctx, id)
	return v, true, err
}

// pullAll pulls every target of a multi-valued edge in declaration order.
func (c *ExecContext) pullAll(ctx context.Context, from Node, edge string) ([]any, error) {
	ids := from.Record().EdgeList(edge)
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		v, err := c.pullID(ctx, id)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// evaluate runs the node's script with data bound as the upstream value.
func (c *ExecContext) evaluate(ctx context.Context, n Node, data any) (any, error) {
	ev := c.prog.engine.evaluator
	if ev == nil {
		return nil, &domain.ConfigError{NodeID: n.ID(), Reason: "no script evaluator configured"}
	}
	v, err := ev.Evaluate(ctx, scope{fc: c, data: data}, n.Record().Script)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return v, nil
}
