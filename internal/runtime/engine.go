package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tendril/internal/compiler"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/google/uuid"
)

// DefaultMaxCallDepth bounds nested call nodes.
const DefaultMaxCallDepth = 64

// Engine interprets compiled flow graphs.
type Engine struct {
	loader       ports.GraphLoader
	parser       *compiler.Parser
	containers   ports.ContainerResolver
	evaluator    ports.ScriptEvaluator
	introspector ports.Introspector
	repository   ports.Repository
	logger       *slog.Logger
	hooks        domain.LifecycleHooks

	concurrentForks bool
	maxCallDepth    int

	mu       sync.Mutex
	programs map[string]*program
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger for debug traces and log nodes.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithEvaluator sets the script evaluator.
func WithEvaluator(ev ports.ScriptEvaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// WithIntrospector sets the property introspector.
func WithIntrospector(in ports.Introspector) Option {
	return func(e *Engine) {
		e.introspector = in
	}
}

// WithRepository enables transactions for evaluations and forks.
func WithRepository(repo ports.Repository) Option {
	return func(e *Engine) {
		e.repository = repo
	}
}

// WithContainers sets the resolver used by call nodes.
func WithContainers(r ports.ContainerResolver) Option {
	return func(e *Engine) {
		e.containers = r
	}
}

// WithConcurrentForks runs consecutive forks in parallel.
// The engine joins them before the next non-fork node and before the run ends.
func WithConcurrentForks(enabled bool) Option {
	return func(e *Engine) {
		e.concurrentForks = enabled
	}
}

// WithMaxCallDepth bounds nested call nodes.
func WithMaxCallDepth(depth int) Option {
	return func(e *Engine) {
		e.maxCallDepth = depth
	}
}

// NewEngine creates an engine reading node records from loader.
func NewEngine(loader ports.GraphLoader, opts ...Option) *Engine {
	e := &Engine{
		loader:       loader,
		parser:       compiler.NewParser(),
		logger:       logging.NewNop(),
		maxCallDepth: DefaultMaxCallDepth,
		programs:     make(map[string]*program),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// program is a container graph compiled into typed nodes.
type program struct {
	engine *Engine
	def    ports.ContainerDefinition
	source *compiler.Program
	nodes  map[string]Node
}

// program compiles a container once and caches it.
func (e *Engine) program(def ports.ContainerDefinition) (*program, error) {
	key := def.Name + "\x00" + def.Start + "\x00" + def.DefaultHandler

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.programs[key]; ok {
		return p, nil
	}

	src, err := compiler.Compile(e.loader, e.parser, def.Start, def.DefaultHandler)
	if err != nil {
		return nil, fmt.Errorf("container '%s': %w: %w", def.Name, domain.ErrConfiguration, err)
	}
	var problems []error
	for _, id := range src.Order {
		rec, _ := src.Node(id)
		for _, cerr := range compiler.CheckNode(rec) {
			problems = append(problems, cerr)
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("container '%s': %w: %w", def.Name, domain.ErrConfiguration, errors.Join(problems...))
	}
	p := &program{
		engine: e,
		def:    def,
		source: src,
		nodes:  make(map[string]Node, len(src.Nodes)),
	}
	for _, id := range src.Order {
		rec, _ := src.Node(id)
		n, err := newNode(rec)
		if err != nil {
			return nil, fmt.Errorf("container '%s': %w: %w", def.Name, domain.ErrConfiguration, err)
		}
		p.nodes[id] = n
	}
	e.programs[key] = p
	return p, nil
}

// Inspect returns the records reachable from a container, in discovery order.
func (e *Engine) Inspect(def ports.ContainerDefinition) ([]domain.Node, error) {
	p, err := e.program(def)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Node, 0, len(p.source.Order))
	for _, id := range p.source.Order {
		rec, _ := p.source.Node(id)
		out = append(out, *rec)
	}
	return out, nil
}

// Evaluate runs a container to completion. When a repository is configured
// the run is wrapped in a transaction: committed on success, rolled back on error.
func (e *Engine) Evaluate(ctx context.Context, def ports.ContainerDefinition, params map[string]any, store ports.KeyValueStore) domain.Result {
	execID := uuid.NewString()
	logger := e.logger.With("execution_id", execID, "container", def.Name)

	prog, err := e.program(def)
	if err != nil {
		return domain.Result{Err: err}
	}

	fc := newExecContext(prog, params, store, logger, execID)
	if e.repository != nil {
		tx, err := e.repository.Begin(ctx)
		if err != nil {
			return domain.Result{Err: fmt.Errorf("begin transaction: %w", err)}
		}
		fc.tx = tx
	}

	out, err := e.run(ctx, fc, def.Start, def.DefaultHandler)
	if err != nil {
		if fc.tx != nil {
			if rbErr := fc.tx.Rollback(ctx); rbErr != nil {
				logger.DebugContext(ctx, "rollback failed", "error", rbErr)
			}
		}
		logger.DebugContext(ctx, "evaluation failed", "error", err)
		return domain.Result{Err: err}
	}
	if fc.tx != nil {
		if err := fc.tx.Commit(ctx); err != nil {
			return domain.Result{Err: fmt.Errorf("commit: %w", err)}
		}
	}
	return domain.Result{Value: out.value}
}

// outcome is how a run ended: with a return value, or by running off its last node.
type outcome struct {
	value    any
	returned bool
}

// run drives the state machine from start until a return node, a dead end or
// an unhandled error. frameHandler is the handler of last resort for this run.
func (e *Engine) run(ctx context.Context, fc *ExecContext, start, frameHandler string) (outcome, error) {
	r := &router{engine: e, fc: fc, frameHandler: frameHandler, routed: make(map[[2]string]bool)}
	var forks *forkGroup

	current := start
	for {
		if err := ctx.Err(); err != nil {
			if forks != nil {
				_, _ = forks.wait()
			}
			return outcome{}, err
		}

		n, isNode := fc.prog.nodes[current]
		fork, isFork := n.(*forkNode)
		concurrent := isFork && e.concurrentForks

		// Join pending forks before anything that is not another fork.
		if forks != nil && (current == "" || !concurrent) {
			failed, err := forks.wait()
			forks = nil
			if err != nil {
				next, err := r.route(ctx, failed, err)
				if err != nil {
					return outcome{}, err
				}
				current = next
				continue
			}
		}

		if current == "" {
			return outcome{}, nil
		}
		if !isNode {
			return outcome{}, &domain.ConfigError{NodeID: current, Reason: "node is not part of the container"}
		}

		if concurrent {
			if forks == nil {
				forks = &forkGroup{}
			}
			e.emitNodeEnter(ctx, fc, fork)
			forks.start(fork, func() error {
				return e.fork(ctx, fc, fork)
			})
			current = fork.next()
			continue
		}

		e.emitNodeEnter(ctx, fc, n)
		var (
			next string
			err  error
		)
		switch v := n.(type) {
		case *decisionNode:
			next, err = v.branch(ctx, fc)
		case *returnNode:
			var value any
			value, err = v.result(ctx, fc)
			if err == nil {
				e.emitNodeLeave(ctx, fc, n)
				return outcome{value: value, returned: true}, nil
			}
		case Executable:
			err = v.Execute(ctx, fc)
			next = v.Record().Edge(domain.EdgeNext)
		default:
			err = &domain.ConfigError{NodeID: n.ID(), Reason: fmt.Sprintf("%s node cannot be executed", n.Kind())}
		}

		if err != nil {
			next, err = r.route(ctx, n, err)
			if err != nil {
				return outcome{}, err
			}
		} else {
			e.emitNodeLeave(ctx, fc, n)
		}
		current = next
	}
}

// router resolves the handler for a failing node within one run.
type router struct {
	engine       *Engine
	fc           *ExecContext
	frameHandler string
	// routed remembers (failing node, handler) pairs so a handler chain
	// that fails the same way cannot loop forever.
	routed map[[2]string]bool
}

// route returns the ID to resume at, or the error when it stays unhandled.
// Configuration errors and cancellation are never routed.
func (r *router) route(ctx context.Context, failed Node, err error) (string, error) {
	if errors.Is(err, domain.ErrConfiguration) || ctx.Err() != nil {
		r.engine.emitError(ctx, r.fc, failed.ID(), "", false, err)
		return "", err
	}

	fe := domain.AsFlowError(failed.ID(), err)
	// A fork consumes its own handler edge; what escapes it goes to the frame.
	var handlerID string
	if _, isFork := failed.(*forkNode); !isFork {
		handlerID = failed.Record().Edge(domain.EdgeExceptionHandler)
	}
	if handlerID == "" {
		handlerID = r.frameHandler
	}
	pair := [2]string{failed.ID(), handlerID}
	if handlerID == "" || r.routed[pair] {
		r.engine.emitError(ctx, r.fc, failed.ID(), "", false, fe)
		return "", fe
	}

	h, ok := r.fc.prog.nodes[handlerID].(*handlerNode)
	if !ok {
		return "", &domain.ConfigError{NodeID: failed.ID(), Edge: domain.EdgeExceptionHandler, Reason: fmt.Sprintf("exception_handler target '%s' is not an exception handler", handlerID)}
	}
	r.routed[pair] = true

	r.fc.SetError(failed.ID(), fe)
	h.HandleException(r.fc)
	r.engine.emitError(ctx, r.fc, failed.ID(), handlerID, true, fe)
	r.fc.logger.DebugContext(ctx, "exception routed", "node_id", failed.ID(), "handler", handlerID, "error", fe.Err)
	return h.next(), nil
}

// fork runs a fork body in its own context and transaction.
func (e *Engine) fork(ctx context.Context, fc *ExecContext, n *forkNode) error {
	started := time.Now()
	body := n.rec.Edge(domain.EdgeForkBody)
	if body == "" {
		return domain.MissingEdge(n.ID(), domain.EdgeForkBody)
	}

	child := fc.ForFork(fc.Subject())
	if e.repository != nil {
		tx, err := e.repository.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin fork transaction: %w", err)
		}
		child.tx = tx
	}

	out, err := e.run(ctx, child, body, "")
	if err == nil {
		if child.tx != nil {
			if err := child.tx.Commit(ctx); err != nil {
				e.emitForkJoin(ctx, fc, n, false, started)
				return fmt.Errorf("commit fork: %w", err)
			}
		}
		fc.SetData(n.ID(), out.value)
		e.emitForkJoin(ctx, fc, n, true, started)
		return nil
	}

	if child.tx != nil {
		if rbErr := child.tx.Rollback(ctx); rbErr != nil {
			fc.logger.DebugContext(ctx, "fork rollback failed", "node_id", n.ID(), "error", rbErr)
		}
		child.tx = nil
	}
	e.emitForkJoin(ctx, fc, n, false, started)
	fc.logger.DebugContext(ctx, "fork rolled back", "node_id", n.ID(), "error", err)

	handlerID := n.rec.Edge(domain.EdgeExceptionHandler)
	if handlerID == "" || errors.Is(err, domain.ErrConfiguration) || ctx.Err() != nil {
		return err
	}
	h, ok := fc.prog.nodes[handlerID].(*handlerNode)
	if !ok {
		return &domain.ConfigError{NodeID: n.ID(), Edge: domain.EdgeExceptionHandler, Reason: fmt.Sprintf("exception_handler target '%s' is not an exception handler", handlerID)}
	}

	// The handler chain runs in the fork's context, outside any transaction.
	fe := domain.AsFlowError(n.ID(), err)
	child.SetError(fe.NodeID, fe)
	h.HandleException(child)
	e.emitError(ctx, fc, fe.NodeID, handlerID, true, fe)

	handled, err := e.run(ctx, child, h.next(), "")
	if err != nil {
		return err
	}
	fc.SetData(n.ID(), handled.value)
	return nil
}
