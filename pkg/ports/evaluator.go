package ports

import "context"

// Scope is the read view of an execution context offered to scripts.
type Scope interface {
	// Subject returns the ambient "this" object.
	Subject() any

	// Data returns the value pulled from the node's upstream data source, or nil.
	Data() any

	// Parameter returns the named input parameter.
	Parameter(name string) (any, bool)

	// Parameters returns a copy of every input parameter.
	Parameters() map[string]any

	// Transaction returns the transaction the node runs under, or nil
	// when no repository is configured.
	Transaction() Transaction
}

// ScriptEvaluator runs the script of script-bearing nodes.
// It is synchronous: the calling node blocks until it returns or fails.
type ScriptEvaluator interface {
	Evaluate(ctx context.Context, scope Scope, source string) (any, error)
}

// ScriptEvaluatorFunc adapts a function to ScriptEvaluator.
type ScriptEvaluatorFunc func(ctx context.Context, scope Scope, source string) (any, error)

// Evaluate calls f.
func (f ScriptEvaluatorFunc) Evaluate(ctx context.Context, scope Scope, source string) (any, error) {
	return f(ctx, scope, source)
}

// Introspector resolves and reads properties of arbitrary objects for property accessor nodes.
type Introspector interface {
	// ResolvePropertyKey maps a property name to the key used to read it on obj's type.
	// The boolean is false when the type has no such property.
	ResolvePropertyKey(obj any, name string) (string, bool)

	// ReadProperty reads the resolved key from obj.
	ReadProperty(obj any, key string) (any, error)
}
