package domain

import "sort"

// Kind identifies the behavior of a flow node.
type Kind string

// Node kinds understood by the engine.
const (
	// KindAction evaluates a script for its side effect and publishes the result.
	KindAction Kind = "action"
	// KindCall invokes another flow container as a sub-program.
	KindCall Kind = "call"
	// KindDataSource produces a value from a script or an upstream source.
	KindDataSource Kind = "datasource"
	// KindScriptCondition produces a boolean from a script.
	KindScriptCondition Kind = "script_condition"
	// KindGetProperty reads a named property of an upstream object.
	KindGetProperty Kind = "get_property"
	// KindKeyValue pairs a key with an upstream value.
	KindKeyValue Kind = "key_value"
	// KindObjectDataSource folds key/value sources into an object.
	KindObjectDataSource Kind = "object_datasource"
	// KindTypeQuery queries the persisted graph for objects of a type.
	KindTypeQuery Kind = "type_query"
	// KindParameter reads an input parameter of the invocation.
	KindParameter Kind = "parameter"
	// KindFirst yields the first element of an upstream collection.
	KindFirst Kind = "first"

	KindNotNull    Kind = "not_null"
	KindIsTrue     Kind = "is_true"
	KindAnd        Kind = "and"
	KindOr         Kind = "or"
	KindNot        Kind = "not"
	KindComparison Kind = "comparison"

	// KindDecision branches on a condition.
	KindDecision Kind = "decision"
	// KindForEach runs a loop body once per element of a collection.
	KindForEach Kind = "for_each"
	// KindFork runs an isolated sub-execution inside its own transaction.
	KindFork Kind = "fork"
	// KindExceptionHandler is the target of exception routing.
	KindExceptionHandler Kind = "exception_handler"
	// KindReturn terminates the run and yields the container result.
	KindReturn Kind = "return"
	// KindStore writes to or reads from the context store.
	KindStore Kind = "store"
	// KindPropagator re-publishes an upstream value.
	KindPropagator Kind = "propagator"
	// KindLog writes a value to the engine logger.
	KindLog Kind = "log"
)

// Kinds lists every known node kind.
var Kinds = []Kind{
	KindAction, KindCall, KindDataSource, KindScriptCondition, KindGetProperty,
	KindKeyValue, KindObjectDataSource, KindTypeQuery, KindParameter, KindFirst,
	KindNotNull, KindIsTrue, KindAnd, KindOr, KindNot, KindComparison,
	KindDecision, KindForEach, KindFork, KindExceptionHandler, KindReturn,
	KindStore, KindPropagator, KindLog,
}

// Valid reports whether k is a known node kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Edge names.
const (
	EdgeNext               = "next"
	EdgeDataSource         = "data_source"
	EdgeCondition          = "condition"
	EdgeTrueElement        = "true_element"
	EdgeFalseElement       = "false_element"
	EdgeLoopBody           = "loop_body"
	EdgeCurrentData        = "current_data"
	EdgeForkBody           = "fork_body"
	EdgeExceptionHandler   = "exception_handler"
	EdgeSources            = "sources"
	EdgeKeySource          = "key_source"
	EdgeValueSource        = "value_source"
	EdgeKeyValues          = "key_values"
	EdgePropertyNameSource = "property_name_source"
	EdgeContainerSource    = "container_source"
)

// Store operations.
const (
	OperationStore    = "store"
	OperationRetrieve = "retrieve"
)

// Comparison operations.
const (
	CompareEqual        = "eq"
	CompareNotEqual     = "ne"
	CompareLess         = "lt"
	CompareLessEqual    = "le"
	CompareGreater      = "gt"
	CompareGreaterEqual = "ge"
)

// Node is the stored record of a single flow node.
// Edges reference other nodes by ID; a node never owns its neighbours.
type Node struct {
	ID   string `json:"id" yaml:"id" mapstructure:"id" validate:"required"`
	Kind Kind   `json:"kind" yaml:"kind" mapstructure:"kind" validate:"required,flowkind"`

	// Edges maps an edge name to the ordered target IDs.
	// Single-valued edges (next, condition, ...) use the first element.
	Edges map[string][]string `json:"edges,omitempty" yaml:"edges,omitempty" mapstructure:"edges"`

	// Script is the expression source for script-bearing nodes.
	Script string `json:"script,omitempty" yaml:"script,omitempty" mapstructure:"script"`

	// Key names a parameter, a store entry or a key/value key depending on Kind.
	Key string `json:"key,omitempty" yaml:"key,omitempty" mapstructure:"key"`

	PropertyName string `json:"property_name,omitempty" yaml:"property_name,omitempty" mapstructure:"property_name"`

	// Container is the target container name of a call node.
	Container string `json:"container,omitempty" yaml:"container,omitempty" mapstructure:"container"`

	DataType string         `json:"data_type,omitempty" yaml:"data_type,omitempty" mapstructure:"data_type"`
	Query    map[string]any `json:"query,omitempty" yaml:"query,omitempty" mapstructure:"query"`

	// Operation selects store/retrieve for store nodes and the operator for comparisons.
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty" mapstructure:"operation"`

	// Value is a literal used when no upstream source is connected.
	Value any `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`

	// Level is the slog level name of a log node.
	Level string `json:"level,omitempty" yaml:"level,omitempty" mapstructure:"level"`

	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// Edge returns the single target of the named edge, or "" when absent.
func (n *Node) Edge(name string) string {
	targets := n.Edges[name]
	if len(targets) == 0 {
		return ""
	}
	return targets[0]
}

// EdgeList returns every target of the named edge in declaration order.
func (n *Node) EdgeList(name string) []string {
	return n.Edges[name]
}

// Targets returns all outgoing targets of the node, edges sorted by name.
func (n *Node) Targets() []string {
	names := make([]string, 0, len(n.Edges))
	for name := range n.Edges {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		out = append(out, n.Edges[name]...)
	}
	return out
}

// Container describes an invocable unit: a start node plus its reachable graph.
type Container struct {
	Name string `json:"name" yaml:"name" mapstructure:"name" validate:"required"`

	// Start is the ID of the first node to execute.
	Start string `json:"start" yaml:"start" mapstructure:"start" validate:"required"`

	// DefaultHandler is the container-level exception handler, if any.
	DefaultHandler string `json:"default_handler,omitempty" yaml:"default_handler,omitempty" mapstructure:"default_handler"`
}

// KeyValue is the value produced by key/value nodes.
type KeyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}
