package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// frame holds the mutable part of an execution context.
// Concurrent forks publish into their parent's frame, hence the lock.
type frame struct {
	mu     sync.Mutex
	data   map[string]any
	errors map[string]*domain.FlowError
	active *domain.FlowError
}

func newFrame(data map[string]any) *frame {
	if data == nil {
		data = make(map[string]any)
	}
	return &frame{data: data, errors: make(map[string]*domain.FlowError)}
}

// ExecContext is the per-execution state threaded through every node.
type ExecContext struct {
	state   *frame
	params  map[string]any
	store   ports.KeyValueStore
	subject any
	tx      ports.Transaction

	prog   *program
	logger *slog.Logger
	execID string
	depth  int
}

func newExecContext(prog *program, params map[string]any, store ports.KeyValueStore, logger *slog.Logger, execID string) *ExecContext {
	if params == nil {
		params = map[string]any{}
	}
	return &ExecContext{
		state:  newFrame(nil),
		params: params,
		store:  store,
		prog:   prog,
		logger: logger,
		execID: execID,
	}
}

// Data returns the memoized value of a node. The boolean reports presence;
// a present nil is a valid absent result.
func (c *ExecContext) Data(nodeID string) (any, bool) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	v, ok := c.state.data[nodeID]
	return v, ok
}

// SetData memoizes a node value. The first write wins.
func (c *ExecContext) SetData(nodeID string, value any) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	if _, ok := c.state.data[nodeID]; ok {
		return
	}
	c.state.data[nodeID] = value
}

// Error returns the exception currently attached to the context, if any.
func (c *ExecContext) Error() *domain.FlowError {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.active
}

// ErrorAt returns the exception recorded for a failing node.
func (c *ExecContext) ErrorAt(nodeID string) *domain.FlowError {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.errors[nodeID]
}

// SetError attaches an exception raised at nodeID.
func (c *ExecContext) SetError(nodeID string, fe *domain.FlowError) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.errors[nodeID] = fe
	c.state.active = fe
}

// ClearError detaches the active exception. The per-node record is kept.
func (c *ExecContext) ClearError() {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.active = nil
}

// Parameter returns a named invocation parameter.
func (c *ExecContext) Parameter(name string) (any, bool) {
	v, ok := c.params[name]
	return v, ok
}

// Parameters returns a copy of the invocation parameters.
func (c *ExecContext) Parameters() map[string]any {
	return maps.Clone(c.params)
}

// PutIntoStore writes to the shared store.
func (c *ExecContext) PutIntoStore(ctx context.Context, key string, value any) error {
	if err := c.store.Put(ctx, key, value); err != nil {
		return fmt.Errorf("store put %s: %w", key, err)
	}
	return nil
}

// RetrieveFromStore reads from the shared store. A missing key yields nil.
func (c *ExecContext) RetrieveFromStore(ctx context.Context, key string) (any, error) {
	v, _, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("store get %s: %w", key, err)
	}
	return v, nil
}

// Subject returns the ambient object the container was invoked on.
func (c *ExecContext) Subject() any {
	return c.subject
}

// Tx returns the transaction the context runs under, or nil.
func (c *ExecContext) Tx() ports.Transaction {
	return c.tx
}

// WithSubject derives a context that shares memo, parameters and store
// but carries a different subject.
func (c *ExecContext) WithSubject(subject any) *ExecContext {
	next := *c
	next.subject = subject
	return &next
}

// ForFork derives the context of a fork body: same parameters and store,
// empty memo, no exception attached and no transaction yet.
func (c *ExecContext) ForFork(subject any) *ExecContext {
	next := *c
	next.state = newFrame(nil)
	next.subject = subject
	next.tx = nil
	return &next
}

// forIteration derives the context of one loop iteration. The memo starts
// as a snapshot of the parent's and the loop node yields the current element.
func (c *ExecContext) forIteration(loopID string, element any) *ExecContext {
	c.state.mu.Lock()
	snapshot := maps.Clone(c.state.data)
	c.state.mu.Unlock()
	snapshot[loopID] = element

	next := *c
	next.state = newFrame(snapshot)
	return &next
}

// withProgram derives the context of a called container: its own graph and
// memo, with parameters, store, subject and transaction inherited.
func (c *ExecContext) withProgram(prog *program) *ExecContext {
	next := *c
	next.state = newFrame(nil)
	next.prog = prog
	next.depth = c.depth + 1
	return &next
}

// scope is the view of a context handed to script evaluators.
type scope struct {
	fc   *ExecContext
	data any
}

func (s scope) Subject() any                      { return s.fc.Subject() }
func (s scope) Data() any                         { return s.data }
func (s scope) Parameter(name string) (any, bool) { return s.fc.Parameter(name) }
func (s scope) Parameters() map[string]any        { return s.fc.Parameters() }
func (s scope) Transaction() ports.Transaction    { return s.fc.Tx() }
