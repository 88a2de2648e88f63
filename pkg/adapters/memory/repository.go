package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Repository implements ports.Repository in memory.
// Transactions stage their writes and apply them atomically on commit.
type Repository struct {
	mu      sync.RWMutex
	objects map[string]map[string]map[string]any // type -> id -> object
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		objects: make(map[string]map[string]map[string]any),
	}
}

// Begin opens a new transaction.
func (r *Repository) Begin(ctx context.Context) (ports.Transaction, error) {
	return &transaction{
		repo:   r,
		staged: make(map[string]map[string]*stagedObject),
	}, nil
}

// stagedObject is a pending write; a nil object means deletion.
type stagedObject struct {
	object map[string]any
}

type transaction struct {
	repo   *Repository
	mu     sync.Mutex
	staged map[string]map[string]*stagedObject
	closed bool
}

func (t *transaction) Get(ctx context.Context, dataType, id string) (map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, domain.ErrTransactionClosed
	}

	if s, ok := t.staged[dataType][id]; ok {
		if s.object == nil {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrKeyNotFound, dataType, id)
		}
		return withID(s.object, id), nil
	}

	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	obj, ok := t.repo.objects[dataType][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrKeyNotFound, dataType, id)
	}
	return withID(obj, id), nil
}

func (t *transaction) Put(ctx context.Context, dataType, id string, object map[string]any) error {
	return t.stage(dataType, id, copyObject(object))
}

func (t *transaction) Delete(ctx context.Context, dataType, id string) error {
	return t.stage(dataType, id, nil)
}

func (t *transaction) stage(dataType, id string, object map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransactionClosed
	}
	if t.staged[dataType] == nil {
		t.staged[dataType] = make(map[string]*stagedObject)
	}
	t.staged[dataType][id] = &stagedObject{object: object}
	return nil
}

func (t *transaction) Query(ctx context.Context, dataType string, filter map[string]any) ([]map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, domain.ErrTransactionClosed
	}

	merged := make(map[string]map[string]any)
	t.repo.mu.RLock()
	for id, obj := range t.repo.objects[dataType] {
		merged[id] = obj
	}
	t.repo.mu.RUnlock()
	for id, s := range t.staged[dataType] {
		if s.object == nil {
			delete(merged, id)
			continue
		}
		merged[id] = s.object
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []map[string]any
	for _, id := range ids {
		if domain.MatchesFilter(merged[id], filter) {
			out = append(out, withID(merged[id], id))
		}
	}
	return out, nil
}

func (t *transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransactionClosed
	}
	t.closed = true

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	for dataType, objects := range t.staged {
		for id, s := range objects {
			if s.object == nil {
				delete(t.repo.objects[dataType], id)
				continue
			}
			if t.repo.objects[dataType] == nil {
				t.repo.objects[dataType] = make(map[string]map[string]any)
			}
			t.repo.objects[dataType][id] = s.object
		}
	}
	t.staged = nil
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.staged = nil
	return nil
}

func copyObject(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func withID(src map[string]any, id string) map[string]any {
	dst := copyObject(src)
	dst["id"] = id
	return dst
}
