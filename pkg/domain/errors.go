package domain

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks errors caused by a malformed flow graph rather than by evaluation.
var ErrConfiguration = errors.New("flow configuration error")

// ErrNodeNotFound is returned when an edge points to an ID the loader does not know.
var ErrNodeNotFound = errors.New("node not found")

// ErrContainerNotFound is returned when a call names an unknown container.
var ErrContainerNotFound = errors.New("container not found")

// ErrUnknownKind is returned when a node record carries a kind the engine cannot dispatch.
var ErrUnknownKind = errors.New("unknown node kind")

// ErrNotIterable is returned when a loop source yields something that is not a collection.
var ErrNotIterable = errors.New("value is not iterable")

// ErrPropertyNotFound is returned when a property key cannot be resolved on an object.
var ErrPropertyNotFound = errors.New("property not found")

// ErrTransactionClosed is returned when a transaction is used after commit or rollback.
var ErrTransactionClosed = errors.New("transaction already closed")

// ErrKeyNotFound is returned by repositories for missing objects.
var ErrKeyNotFound = errors.New("key not found")

// ConfigError reports a structural problem with a node, such as a missing required edge.
// Edge names the offending edge, if any. Err is an optional underlying cause.
type ConfigError struct {
	NodeID string
	Edge   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("node '%s': %s", e.NodeID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes every ConfigError match ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MissingEdge builds the ConfigError for an absent required edge.
func MissingEdge(nodeID, edge string) *ConfigError {
	return &ConfigError{NodeID: nodeID, Edge: edge, Reason: fmt.Sprintf("missing required edge '%s'", edge)}
}

// FlowError is a failure routed along the graph. It remembers the node that raised it.
type FlowError struct {
	NodeID string
	Err    error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("flow error at node '%s': %v", e.NodeID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// AsFlowError wraps err as a FlowError raised at nodeID.
// An error that already is a FlowError keeps its original node.
func AsFlowError(nodeID string, err error) *FlowError {
	if err == nil {
		return nil
	}
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe
	}
	return &FlowError{NodeID: nodeID, Err: err}
}
