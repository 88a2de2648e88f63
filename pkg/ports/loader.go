package ports

// GraphLoader defines how the engine retrieves node definitions.
// This allows the storage layer (files, memory) to be decoupled.
type GraphLoader interface {
	// GetNode retrieves the raw definition of a node by ID.
	// It returns the raw bytes (which the compiler will parse) or an error.
	GetNode(id string) ([]byte, error)

	// ListNodes returns the IDs of all nodes available in the graph.
	// This is used for introspection and visualization tools (e.g. 'tendril graph').
	ListNodes() ([]string, error)
}

// ContainerResolver resolves container names for call nodes and entry points.
type ContainerResolver interface {
	// Container returns the definition registered under name.
	// It returns domain.ErrContainerNotFound for unknown names.
	Container(name string) (ContainerDefinition, error)

	// ContainerNames lists the registered container names in lexical order.
	ContainerNames() []string
}

// ContainerDefinition is the resolved start and default handler of a container.
type ContainerDefinition struct {
	Name           string
	Start          string
	DefaultHandler string
}
