package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// decisionNode selects exactly one of its two branches.
type decisionNode struct{ base }

func (n *decisionNode) branch(ctx context.Context, fc *ExecContext) (string, error) {
	for _, edge := range []string{domain.EdgeCondition, domain.EdgeTrueElement, domain.EdgeFalseElement} {
		if n.rec.Edge(edge) == "" {
			return "", domain.MissingEdge(n.ID(), edge)
		}
	}
	cond, err := fc.pull(ctx, n, domain.EdgeCondition)
	if err != nil {
		return "", err
	}
	if domain.Truthy(cond) {
		return n.rec.Edge(domain.EdgeTrueElement), nil
	}
	return n.rec.Edge(domain.EdgeFalseElement), nil
}

// forEachNode runs its loop body once per element of its source collection.
type forEachNode struct{ base }

func (n *forEachNode) Execute(ctx context.Context, fc *ExecContext) error {
	body := n.rec.Edge(domain.EdgeLoopBody)
	if body == "" {
		return domain.MissingEdge(n.ID(), domain.EdgeLoopBody)
	}
	coll, err := fc.pull(ctx, n, domain.EdgeDataSource)
	if err != nil {
		return err
	}
	items, err := elements(coll)
	if err != nil {
		return err
	}

	engine := fc.prog.engine
	for i, item := range items {
		iteration := fc.forIteration(n.ID(), item)
		fc.logger.DebugContext(ctx, "loop iteration", "node_id", n.ID(), "index", i)
		// A body run has no frame handler: failures surface at the loop node.
		if _, err := engine.run(ctx, iteration, body, ""); err != nil {
			return err
		}
	}
	return nil
}

// Get yields the current element inside an iteration, the collection otherwise.
func (n *forEachNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	if v, ok := fc.Data(n.ID()); ok {
		return v, nil
	}
	return fc.pull(ctx, n, domain.EdgeDataSource)
}

// forkNode runs its body as an isolated sub-execution.
type forkNode struct{ base }

func (n *forkNode) Execute(ctx context.Context, fc *ExecContext) error {
	return fc.prog.engine.fork(ctx, fc, n)
}

// Get yields the result the fork body returned.
func (n *forkNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	v, _ := fc.Data(n.ID())
	return v, nil
}

// handlerNode is the target of exception routing.
type handlerNode struct{ base }

// HandleException consumes the active exception, publishing it as the
// handler's value. Without an attached exception it does nothing.
func (n *handlerNode) HandleException(fc *ExecContext) {
	fe := fc.Error()
	if fe == nil {
		return
	}
	fc.SetData(n.ID(), fe)
	fc.ClearError()
}

func (n *handlerNode) Execute(ctx context.Context, fc *ExecContext) error {
	n.HandleException(fc)
	return nil
}

func (n *handlerNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	v, _ := fc.Data(n.ID())
	return v, nil
}

// returnNode ends the run with a result.
type returnNode struct{ base }

func (n *returnNode) result(ctx context.Context, fc *ExecContext) (any, error) {
	data, connected, err := fc.pullOptional(ctx, n, domain.EdgeDataSource)
	if err != nil {
		return nil, err
	}
	switch {
	case n.rec.Script != "":
		return fc.evaluate(ctx, n, data)
	case connected:
		return data, nil
	}
	return n.rec.Value, nil
}

// callNode runs another container and publishes its result.
type callNode struct{ base }

func (n *callNode) Execute(ctx context.Context, fc *ExecContext) error {
	_, err := n.Get(ctx, fc)
	return err
}

func (n *callNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		return n.call(ctx, fc)
	})
}

func (n *callNode) call(ctx context.Context, fc *ExecContext) (any, error) {
	engine := fc.prog.engine

	name := n.rec.Container
	if name == "" {
		raw, connected, err := fc.pullOptional(ctx, n, domain.EdgeContainerSource)
		if err != nil {
			return nil, err
		}
		if !connected {
			return nil, &domain.ConfigError{NodeID: n.ID(), Edge: domain.EdgeContainerSource, Reason: "no target container"}
		}
		name = fmt.Sprint(raw)
	}
	if engine.containers == nil {
		return nil, &domain.ConfigError{NodeID: n.ID(), Reason: "no container resolver configured"}
	}
	def, err := engine.containers.Container(name)
	if err != nil {
		return nil, &domain.ConfigError{NodeID: n.ID(), Reason: err.Error()}
	}
	if fc.depth >= engine.maxCallDepth {
		return nil, fmt.Errorf("call depth %d exceeded calling '%s'", engine.maxCallDepth, name)
	}

	prog, err := engine.program(def)
	if err != nil {
		return nil, err
	}
	callee := fc.withProgram(prog)
	subject, connected, err := fc.pullOptional(ctx, n, domain.EdgeDataSource)
	if err != nil {
		return nil, err
	}
	if connected {
		callee = callee.WithSubject(subject)
	}

	out, err := engine.run(ctx, callee, def.Start, def.DefaultHandler)
	if err != nil {
		return nil, err
	}
	return out.value, nil
}
