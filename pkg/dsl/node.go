package dsl

import "github.com/aretw0/tendril/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node domain.Node
}

func (n *NodeBuilder) kind(k domain.Kind) *NodeBuilder {
	n.node.Kind = k
	return n
}

// Action evaluates script for its effect and continues along next.
func (n *NodeBuilder) Action(script string) *NodeBuilder {
	n.node.Script = script
	return n.kind(domain.KindAction)
}

// Script produces a value from script.
func (n *NodeBuilder) Script(script string) *NodeBuilder {
	n.node.Script = script
	return n.kind(domain.KindDataSource)
}

// Condition produces a boolean from script.
func (n *NodeBuilder) Condition(script string) *NodeBuilder {
	n.node.Script = script
	return n.kind(domain.KindScriptCondition)
}

// Call invokes the named container.
func (n *NodeBuilder) Call(container string) *NodeBuilder {
	n.node.Container = container
	return n.kind(domain.KindCall)
}

// Parameter reads an input parameter.
func (n *NodeBuilder) Parameter(key string) *NodeBuilder {
	n.node.Key = key
	return n.kind(domain.KindParameter)
}

// Property reads the named property of the data source.
func (n *NodeBuilder) Property(name string) *NodeBuilder {
	n.node.PropertyName = name
	return n.kind(domain.KindGetProperty)
}

// KeyValue pairs key with the data source value.
func (n *NodeBuilder) KeyValue(key string) *NodeBuilder {
	n.node.Key = key
	return n.kind(domain.KindKeyValue)
}

// Object folds the key_values sources into an object.
func (n *NodeBuilder) Object(keyValues ...string) *NodeBuilder {
	n.Edge(domain.EdgeKeyValues, keyValues...)
	return n.kind(domain.KindObjectDataSource)
}

// TypeQuery lists persisted objects of dataType matching query.
func (n *NodeBuilder) TypeQuery(dataType string, query map[string]any) *NodeBuilder {
	n.node.DataType = dataType
	n.node.Query = query
	return n.kind(domain.KindTypeQuery)
}

// First yields the first element of the data source.
func (n *NodeBuilder) First() *NodeBuilder {
	return n.kind(domain.KindFirst)
}

// NotNull is true when every source yields a value.
func (n *NodeBuilder) NotNull(sources ...string) *NodeBuilder {
	n.Edge(domain.EdgeSources, sources...)
	return n.kind(domain.KindNotNull)
}

// IsTrue is true when every source is truthy.
func (n *NodeBuilder) IsTrue(sources ...string) *NodeBuilder {
	n.Edge(domain.EdgeSources, sources...)
	return n.kind(domain.KindIsTrue)
}

// And is true when every source is truthy.
func (n *NodeBuilder) And(sources ...string) *NodeBuilder {
	n.Edge(domain.EdgeSources, sources...)
	return n.kind(domain.KindAnd)
}

// Or is true when any source is truthy.
func (n *NodeBuilder) Or(sources ...string) *NodeBuilder {
	n.Edge(domain.EdgeSources, sources...)
	return n.kind(domain.KindOr)
}

// Not negates the data source.
func (n *NodeBuilder) Not(source string) *NodeBuilder {
	n.From(source)
	return n.kind(domain.KindNot)
}

// Compare compares the data source against value with one of the Compare* operators.
func (n *NodeBuilder) Compare(op string, value any) *NodeBuilder {
	n.node.Operation = op
	n.node.Value = value
	return n.kind(domain.KindComparison)
}

// Decision branches on the condition source.
func (n *NodeBuilder) Decision(condition, ifTrue, ifFalse string) *NodeBuilder {
	n.Edge(domain.EdgeCondition, condition)
	n.Edge(domain.EdgeTrueElement, ifTrue)
	n.Edge(domain.EdgeFalseElement, ifFalse)
	return n.kind(domain.KindDecision)
}

// ForEach runs body once per element of the collection source.
func (n *NodeBuilder) ForEach(collection, body string) *NodeBuilder {
	n.From(collection)
	n.Edge(domain.EdgeLoopBody, body)
	return n.kind(domain.KindForEach)
}

// Fork runs body in an isolated sub-execution.
func (n *NodeBuilder) Fork(body string) *NodeBuilder {
	n.Edge(domain.EdgeForkBody, body)
	return n.kind(domain.KindFork)
}

// Handler marks the node as an exception handler.
func (n *NodeBuilder) Handler() *NodeBuilder {
	return n.kind(domain.KindExceptionHandler)
}

// Return ends the run. It yields the data source, or value when none is connected.
func (n *NodeBuilder) Return(value any) *NodeBuilder {
	n.node.Value = value
	return n.kind(domain.KindReturn)
}

// Store writes the data source (or Value) to the store under key.
func (n *NodeBuilder) Store(key string) *NodeBuilder {
	n.node.Key = key
	n.node.Operation = domain.OperationStore
	return n.kind(domain.KindStore)
}

// Retrieve reads key from the store.
func (n *NodeBuilder) Retrieve(key string) *NodeBuilder {
	n.node.Key = key
	n.node.Operation = domain.OperationRetrieve
	return n.kind(domain.KindStore)
}

// Propagate re-publishes the data source.
func (n *NodeBuilder) Propagate(source string) *NodeBuilder {
	n.From(source)
	return n.kind(domain.KindPropagator)
}

// Log writes the data source to the engine logger at level.
func (n *NodeBuilder) Log(level string) *NodeBuilder {
	n.node.Level = level
	return n.kind(domain.KindLog)
}

// Next sets the control successor.
func (n *NodeBuilder) Next(target string) *NodeBuilder {
	return n.Edge(domain.EdgeNext, target)
}

// From connects the data source.
func (n *NodeBuilder) From(source string) *NodeBuilder {
	return n.Edge(domain.EdgeDataSource, source)
}

// Error routes errors raised by this node to handler.
func (n *NodeBuilder) Error(handler string) *NodeBuilder {
	return n.Edge(domain.EdgeExceptionHandler, handler)
}

// Edge appends targets to the named edge.
func (n *NodeBuilder) Edge(name string, targets ...string) *NodeBuilder {
	if len(targets) == 0 {
		return n
	}
	n.node.Edges[name] = append(n.node.Edges[name], targets...)
	return n
}

// Value sets the literal used when no source is connected.
func (n *NodeBuilder) Value(v any) *NodeBuilder {
	n.node.Value = v
	return n
}

// Meta attaches a metadata entry.
func (n *NodeBuilder) Meta(key, value string) *NodeBuilder {
	if n.node.Metadata == nil {
		n.node.Metadata = make(map[string]string)
	}
	n.node.Metadata[key] = value
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	node := n.node
	if len(node.Edges) == 0 {
		node.Edges = nil
	}
	return node
}
