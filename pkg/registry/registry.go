package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Registry manages the invocable containers.
// It implements ports.ContainerResolver.
type Registry struct {
	mu         sync.RWMutex
	containers map[string]ports.ContainerDefinition
}

// NewRegistry creates a registry holding the given containers.
func NewRegistry(containers ...domain.Container) (*Registry, error) {
	r := &Registry{
		containers: make(map[string]ports.ContainerDefinition),
	}
	for _, c := range containers {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a container to the registry.
// If a container with the same name exists, it is overwritten.
func (r *Registry) Register(c domain.Container) error {
	if c.Name == "" {
		return fmt.Errorf("container missing name")
	}
	if c.Start == "" {
		return fmt.Errorf("container %s: missing start node", c.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers[c.Name] = ports.ContainerDefinition{
		Name:           c.Name,
		Start:          c.Start,
		DefaultHandler: c.DefaultHandler,
	}
	return nil
}

// Container looks up a container by name.
func (r *Registry) Container(name string) (ports.ContainerDefinition, error) {
	r.mu.RLock()
	def, ok := r.containers[name]
	r.mu.RUnlock()

	if !ok {
		return ports.ContainerDefinition{}, fmt.Errorf("%w: %s", domain.ErrContainerNotFound, name)
	}
	return def, nil
}

// ContainerNames returns the registered names in lexical order.
func (r *Registry) ContainerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.containers))
	for name := range r.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
