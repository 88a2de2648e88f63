package ports

import "context"

// Repository is the persisted graph the flows read and write.
// Every access goes through a Transaction so forks can commit or roll back as a unit.
type Repository interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction is a unit of work against the Repository.
// Reads observe the transaction's own uncommitted writes.
type Transaction interface {
	// Get loads the object of dataType with the given id.
	// It returns domain.ErrKeyNotFound when it does not exist.
	Get(ctx context.Context, dataType, id string) (map[string]any, error)

	// Put creates or replaces an object.
	Put(ctx context.Context, dataType, id string, object map[string]any) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, dataType, id string) error

	// Query returns every object of dataType whose properties equal all entries of filter,
	// ordered by id.
	Query(ctx context.Context, dataType string, filter map[string]any) ([]map[string]any, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
