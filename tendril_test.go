package tendril_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/adapters/badger"
	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const ordersFlow = `
containers:
  - name: main
    start: total
    default_handler: oops
  - name: open_tasks
    start: tasks

nodes:
  - id: total
    kind: action
    script: params.price * params.quantity
    edges:
      next: check
  - id: check
    kind: decision
    edges:
      condition: expensive
      true_element: flag
      false_element: done
  - id: expensive
    kind: comparison
    operation: gt
    value: 100
    edges:
      data_source: total
  - id: flag
    kind: store
    key: review
    value: true
    edges:
      next: done
  - id: done
    kind: return
    edges:
      data_source: total
  - id: oops
    kind: exception_handler
    edges:
      next: failed
  - id: failed
    kind: return
    value: failed

  - id: tasks
    kind: return
    edges:
      data_source: open
  - id: open
    kind: type_query
    data_type: Task
    query:
      status: open
`

func newEngine(t *testing.T, opts ...tendril.Option) *tendril.Engine {
	t.Helper()
	loader, err := file.Parse([]byte(ordersFlow))
	require.NoError(t, err)
	eng, err := tendril.New(loader, opts...)
	require.NoError(t, err)
	return eng
}

func TestEngine_EvaluateContainer(t *testing.T) {
	store := memory.NewStore()
	eng := newEngine(t, tendril.WithStore(store))

	main, err := eng.Container("main")
	require.NoError(t, err)

	res := main.Evaluate(context.Background(), map[string]any{"price": 30, "quantity": 4})
	require.NoError(t, res.Err)
	assert.Equal(t, 120, res.Value)
	assert.Equal(t, map[string]any{"review": true}, store.Snapshot())

	res = main.Evaluate(context.Background(), map[string]any{"price": 2, "quantity": 3})
	require.NoError(t, res.Err)
	assert.Equal(t, 6, res.Value)
}

const auditFlow = `
containers:
  - name: writer
    start: mark
  - name: reader
    start: answer

nodes:
  - id: mark
    kind: store
    key: seen
    value: true
    edges:
      next: marked
  - id: marked
    kind: return
    value: done
  - id: answer
    kind: return
    edges:
      data_source: lookup
  - id: lookup
    kind: store
    operation: retrieve
    key: seen
`

func TestEngine_StoreIsPerEvaluationByDefault(t *testing.T) {
	loader, err := file.Parse([]byte(auditFlow))
	require.NoError(t, err)
	eng, err := tendril.New(loader)
	require.NoError(t, err)
	assert.Nil(t, eng.Store())

	ctx := context.Background()
	res, err := eng.Evaluate(ctx, "writer", nil)
	require.NoError(t, err)
	require.NoError(t, res.Err)

	res, err = eng.Evaluate(ctx, "reader", nil)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Nil(t, res.Value, "a later evaluation must not see an earlier one's store writes")
}

func TestEngine_SharedStoreIsOptIn(t *testing.T) {
	loader, err := file.Parse([]byte(auditFlow))
	require.NoError(t, err)
	store := memory.NewStore()
	eng, err := tendril.New(loader, tendril.WithStore(store))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = eng.Evaluate(ctx, "writer", nil)
	require.NoError(t, err)

	res, err := eng.Evaluate(ctx, "reader", nil)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, true, res.Value)
}

func TestEngine_ScriptFailureRoutesToDefaultHandler(t *testing.T) {
	eng := newEngine(t)

	res, err := eng.Evaluate(context.Background(), "main", map[string]any{"price": 2})
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, "failed", res.Value)
}

func TestEngine_UnknownContainer(t *testing.T) {
	eng := newEngine(t)

	_, err := eng.Evaluate(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)

	_, err = eng.Inspect("nope")
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
}

func TestEngine_ContainersAndInspect(t *testing.T) {
	eng := newEngine(t)

	defs := eng.Containers()
	require.Len(t, defs, 2)
	assert.Equal(t, "main", defs[0].Name)
	assert.Equal(t, "oops", defs[0].DefaultHandler)
	assert.Equal(t, "open_tasks", defs[1].Name)

	nodes, err := eng.Inspect("main")
	require.NoError(t, err)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	assert.Equal(t, "total", ids[0])
	assert.Contains(t, ids, "oops")
	assert.NotContains(t, ids, "tasks")
}

func TestEngine_Entry(t *testing.T) {
	eng := newEngine(t)

	res := eng.Entry("total", "").Evaluate(context.Background(), map[string]any{"price": 1, "quantity": 1})
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Value)

	res = eng.Entry("total", "").Evaluate(context.Background(), nil)
	assert.Error(t, res.Err, "without a handler the script failure is unhandled")
}

func TestEngine_TypeQueryAgainstRepository(t *testing.T) {
	repo, err := badger.OpenInMemory()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "Task", "t1", map[string]any{"status": "open"}))
	require.NoError(t, tx.Put(ctx, "Task", "t2", map[string]any{"status": "done"}))
	require.NoError(t, tx.Put(ctx, "Task", "t3", map[string]any{"status": "open"}))
	require.NoError(t, tx.Commit(ctx))

	eng := newEngine(t, tendril.WithRepository(repo))
	res, err := eng.Evaluate(ctx, "open_tasks", nil)
	require.NoError(t, err)
	require.NoError(t, res.Err)

	tasks, ok := res.Value.([]any)
	require.True(t, ok)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t1", tasks[0].(map[string]any)["id"])
	assert.Equal(t, "t3", tasks[1].(map[string]any)["id"])
}

func TestEngine_TypeQueryWithoutRepository(t *testing.T) {
	eng := newEngine(t)

	res, err := eng.Evaluate(context.Background(), "open_tasks", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, domain.ErrConfiguration)
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	eng := newEngine(t, tendril.WithMetrics(m))
	_, err = eng.Evaluate(context.Background(), "main", map[string]any{"price": 1, "quantity": 2})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "tendril_evaluations_total", "tendril_node_visits_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 2)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	args := m.Called(ctx, key, ttl)
	unlock, _ := args.Get(0).(ports.UnlockFunc)
	return unlock, args.Error(1)
}

func TestEngine_LockerSerializesContainer(t *testing.T) {
	released := false
	locker := new(mockLocker)
	locker.On("Lock", mock.Anything, "container:main", tendril.DefaultLockTTL).
		Return(ports.UnlockFunc(func(context.Context) error {
			released = true
			return nil
		}), nil).Once()

	eng := newEngine(t, tendril.WithLocker(locker, 0))
	res, err := eng.Evaluate(context.Background(), "main", map[string]any{"price": 1, "quantity": 2})
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.True(t, released)
	locker.AssertExpectations(t)
}

func TestEngine_LockFailure(t *testing.T) {
	locker := new(mockLocker)
	locker.On("Lock", mock.Anything, "container:main", time.Second).
		Return(nil, errors.New("redis down"))

	eng := newEngine(t, tendril.WithLocker(locker, time.Second))
	_, err := eng.Evaluate(context.Background(), "main", nil)
	assert.ErrorContains(t, err, "redis down")
}

func TestNew_RequiresLoader(t *testing.T) {
	_, err := tendril.New(nil)
	assert.Error(t, err)
}
