// Package badger persists the flow object graph in a BadgerDB key space.
//
// Objects live under "obj/<type>/<id>" as msgpack documents. Every
// ports.Transaction maps onto one read-write badger transaction, so a fork
// that rolls back discards its writes without touching the database.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Config selects where the repository keeps its data.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// Repository implements ports.Repository on top of BadgerDB.
type Repository struct {
	db *badger.DB
}

// Open opens (or creates) a repository.
func Open(cfg Config) (*Repository, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent repository")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create repository directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Repository{db: db}, nil
}

// OpenInMemory opens a throwaway repository.
func OpenInMemory() (*Repository, error) {
	return Open(Config{InMemory: true})
}

// Close releases the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Begin opens a read-write transaction.
func (r *Repository) Begin(ctx context.Context) (ports.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &transaction{txn: r.db.NewTransaction(true)}, nil
}

func objectKey(dataType, id string) []byte {
	return []byte("obj/" + dataType + "/" + id)
}

func typePrefix(dataType string) []byte {
	return []byte("obj/" + dataType + "/")
}

// transaction serializes access to the badger Txn, which is not safe for concurrent use.
type transaction struct {
	mu     sync.Mutex
	txn    *badger.Txn
	closed bool
}

func (t *transaction) Get(ctx context.Context, dataType, id string) (map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, domain.ErrTransactionClosed
	}

	item, err := t.txn.Get(objectKey(dataType, id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrKeyNotFound, dataType, id)
		}
		return nil, fmt.Errorf("get %s/%s: %w", dataType, id, err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", dataType, id, err)
	}
	return decode(raw, id)
}

func (t *transaction) Put(ctx context.Context, dataType, id string, object map[string]any) error {
	raw, err := msgpack.Marshal(object)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", dataType, id, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransactionClosed
	}
	return t.txn.Set(objectKey(dataType, id), raw)
}

func (t *transaction) Delete(ctx context.Context, dataType, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransactionClosed
	}
	return t.txn.Delete(objectKey(dataType, id))
}

// Query scans the type prefix. Keys iterate in byte order, which is id order.
func (t *transaction) Query(ctx context.Context, dataType string, filter map[string]any) ([]map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, domain.ErrTransactionClosed
	}

	prefix := typePrefix(dataType)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var out []map[string]any
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := it.Item()
		id := strings.TrimPrefix(string(item.Key()), string(prefix))
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", dataType, id, err)
		}
		obj, err := decode(raw, id)
		if err != nil {
			return nil, err
		}
		if domain.MatchesFilter(obj, filter) {
			out = append(out, obj)
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
	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.txn.Discard()
	return nil
}

func decode(raw []byte, id string) (map[string]any, error) {
	var obj map[string]any
	if err := msgpack.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode object %s: %w", id, err)
	}
	if obj == nil {
		obj = make(map[string]any)
	}
	obj["id"] = id
	return obj, nil
}

// badgerLogger routes badger's internal logging to slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
