package tendril

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/adapters/hclexpr"
	"github.com/aretw0/tendril/pkg/adapters/introspect"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/registry"
)

// DefaultLockTTL bounds how long an evaluation may hold its container lock.
const DefaultLockTTL = 30 * time.Second

// Engine is the high-level entry point of the library.
// It wraps the internal interpreter and owns the collaborators a run needs.
type Engine struct {
	runtime    *runtime.Engine
	loader     ports.GraphLoader
	containers ports.ContainerResolver
	store      ports.KeyValueStore
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger

	evaluator    ports.ScriptEvaluator
	introspector ports.Introspector
	repository   ports.Repository
	hooks        domain.LifecycleHooks
	runtimeOpts  []runtime.Option
}

var _ ports.FlowEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithEvaluator replaces the default HCL expression evaluator.
func WithEvaluator(ev ports.ScriptEvaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// WithIntrospector replaces the default reflection based introspector.
func WithIntrospector(in ports.Introspector) Option {
	return func(e *Engine) {
		e.introspector = in
	}
}

// WithStore sets a store area shared by every evaluation, such as a redis or file store.
// Without it each evaluation gets a fresh in-memory store that is dropped when it ends.
func WithStore(store ports.KeyValueStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithRepository enables transactional evaluations against a persisted graph.
func WithRepository(repo ports.Repository) Option {
	return func(e *Engine) {
		e.repository = repo
	}
}

// WithContainers sets the container resolver. When omitted, a loader that
// also resolves containers (such as a flow file) is used.
func WithContainers(r ports.ContainerResolver) Option {
	return func(e *Engine) {
		e.containers = r
	}
}

// WithConcurrentForks runs consecutive fork nodes in parallel.
func WithConcurrentForks(enabled bool) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithConcurrentForks(enabled))
	}
}

// WithMaxCallDepth bounds nested call nodes.
func WithMaxCallDepth(depth int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxCallDepth(depth))
	}
}

// WithMetrics records node and evaluation metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLocker serializes evaluations of the same container across replicas.
// A zero ttl uses DefaultLockTTL.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// New initializes an Engine reading node records from loader.
func New(loader ports.GraphLoader, opts ...Option) (*Engine, error) {
	if loader == nil {
		return nil, errors.New("a graph loader is required")
	}

	eng := &Engine{loader: loader}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.containers == nil {
		if r, ok := loader.(ports.ContainerResolver); ok {
			eng.containers = r
		} else {
			empty, _ := registry.NewRegistry()
			eng.containers = empty
		}
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.evaluator == nil {
		eng.evaluator = hclexpr.New()
	}
	if eng.introspector == nil {
		eng.introspector = introspect.New()
	}
	if eng.lockTTL <= 0 {
		eng.lockTTL = DefaultLockTTL
	}

	hooks := eng.hooks
	if eng.metrics != nil {
		hooks = hooks.Merge(eng.metrics.Hooks())
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithEvaluator(eng.evaluator),
		runtime.WithIntrospector(eng.introspector),
		runtime.WithContainers(eng.containers),
	}
	if eng.repository != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithRepository(eng.repository))
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(loader, runtimeOpts...)
	return eng, nil
}

// Container returns a handle on a registered container.
func (e *Engine) Container(name string) (*Container, error) {
	def, err := e.containers.Container(name)
	if err != nil {
		return nil, err
	}
	return &Container{engine: e, def: def}, nil
}

// Entry returns a handle on an unregistered container starting at start.
// handler may be empty.
func (e *Engine) Entry(start, handler string) *Container {
	return &Container{engine: e, def: ports.ContainerDefinition{
		Name:           start,
		Start:          start,
		DefaultHandler: handler,
	}}
}

// Evaluate runs the named container. The returned error reports lookup or
// locking failures; flow failures are carried by the Result.
func (e *Engine) Evaluate(ctx context.Context, container string, params map[string]any) (domain.Result, error) {
	c, err := e.Container(container)
	if err != nil {
		return domain.Result{}, err
	}
	return c.evaluate(ctx, params)
}

// Containers lists every registered container.
func (e *Engine) Containers() []ports.ContainerDefinition {
	names := e.containers.ContainerNames()
	out := make([]ports.ContainerDefinition, 0, len(names))
	for _, name := range names {
		if def, err := e.containers.Container(name); err == nil {
			out = append(out, def)
		}
	}
	return out
}

// Inspect returns every node reachable from the named container.
func (e *Engine) Inspect(container string) ([]domain.Node, error) {
	c, err := e.Container(container)
	if err != nil {
		return nil, err
	}
	return c.Inspect()
}

// Store returns the shared store area, or nil when every evaluation uses its own.
func (e *Engine) Store() ports.KeyValueStore {
	return e.store
}

// Loader returns the underlying GraphLoader used by the engine.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}

// Container is an invocable entry point of the graph.
type Container struct {
	engine *Engine
	def    ports.ContainerDefinition
}

// Name returns the container name.
func (c *Container) Name() string {
	return c.def.Name
}

// Definition returns the resolved start and default handler.
func (c *Container) Definition() ports.ContainerDefinition {
	return c.def
}

// Evaluate runs the container to completion with the given input parameters.
func (c *Container) Evaluate(ctx context.Context, params map[string]any) domain.Result {
	res, err := c.evaluate(ctx, params)
	if err != nil {
		return domain.Result{Err: err}
	}
	return res
}

// Inspect returns the nodes reachable from the container, in discovery order.
func (c *Container) Inspect() ([]domain.Node, error) {
	return c.engine.runtime.Inspect(c.def)
}

func (c *Container) evaluate(ctx context.Context, params map[string]any) (domain.Result, error) {
	e := c.engine
	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, ports.ContainerLockKey(c.def.Name), e.lockTTL)
		if err != nil {
			return domain.Result{}, fmt.Errorf("lock container '%s': %w", c.def.Name, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("failed to release container lock", "container", c.def.Name, "err", err)
			}
		}()
	}

	store := e.store
	if store == nil {
		store = memory.NewStore()
	}

	started := time.Now()
	res := e.runtime.Evaluate(ctx, c.def, params, store)
	if e.metrics != nil {
		e.metrics.ObserveEvaluation(c.def.Name, res, time.Since(started))
	}
	return res, nil
}
