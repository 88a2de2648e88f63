package runtime_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/stretchr/testify/require"
)

// scripts maps script sources to Go functions standing in for an expression language.
type scripts map[string]func(ports.Scope) (any, error)

func (s scripts) evaluator() ports.ScriptEvaluator {
	return ports.ScriptEvaluatorFunc(func(ctx context.Context, scope ports.Scope, source string) (any, error) {
		fn, ok := s[source]
		if !ok {
			return nil, fmt.Errorf("unknown script %q", source)
		}
		return fn(scope)
	})
}

// edges builds an edge map from name/target pairs; repeated names append.
func edges(pairs ...string) map[string][]string {
	out := make(map[string][]string)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = append(out[pairs[i]], pairs[i+1])
	}
	return out
}

// counter is a concurrency-safe call counter for instrumented scripts.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// visits records the nodes the engine entered.
type visits struct {
	mu  sync.Mutex
	ids []string
}

func (v *visits) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			v.mu.Lock()
			defer v.mu.Unlock()
			v.ids = append(v.ids, e.NodeID)
		},
	}
}

func (v *visits) entered(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, seen := range v.ids {
		if seen == id {
			return true
		}
	}
	return false
}

type harness struct {
	engine     *runtime.Engine
	containers *registry.Registry
	store      *memory.Store
}

// newHarness wires an engine over nodes with a "main" container starting at "start".
func newHarness(t *testing.T, sc scripts, nodes []domain.Node, opts ...runtime.Option) *harness {
	t.Helper()
	loader, err := memory.NewFromNodes(nodes...)
	require.NoError(t, err)
	reg, err := registry.NewRegistry(domain.Container{Name: "main", Start: "start"})
	require.NoError(t, err)

	all := append([]runtime.Option{
		runtime.WithEvaluator(sc.evaluator()),
		runtime.WithContainers(reg),
	}, opts...)
	return &harness{
		engine:     runtime.NewEngine(loader, all...),
		containers: reg,
		store:      memory.NewStore(),
	}
}

func (h *harness) register(t *testing.T, c domain.Container) {
	t.Helper()
	require.NoError(t, h.containers.Register(c))
}

func (h *harness) evaluate(t *testing.T, container string, params map[string]any) domain.Result {
	t.Helper()
	def, err := h.containers.Container(container)
	require.NoError(t, err)
	return h.engine.Evaluate(context.Background(), def, params, h.store)
}

func (h *harness) stored(t *testing.T, key string) any {
	t.Helper()
	v, _, err := h.store.Get(context.Background(), key)
	require.NoError(t, err)
	return v
}
