package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/tendril/internal/compiler"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Report collects the findings of a graph validation.
type Report struct {
	Errors   []string
	Warnings []string
}

// Err returns nil for a clean report, or one error listing every problem.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(r.Errors, "\n- "))
}

// ValidateGraph checks every container for broken links, structural problems
// and unresolvable calls. Nodes no container can reach are reported as warnings.
func ValidateGraph(loader ports.GraphLoader, parser *compiler.Parser, containers ports.ContainerResolver) *Report {
	report := &Report{}
	reachable := make(map[string]bool)

	for _, name := range containers.ContainerNames() {
		def, err := containers.Container(name)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("container '%s': %v", name, err))
			continue
		}
		validateContainer(report, loader, parser, containers, def, reachable)
	}

	ids, err := loader.ListNodes()
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("failed to list nodes: %v", err))
		return report
	}
	for _, id := range ids {
		if !reachable[id] {
			report.Warnings = append(report.Warnings, fmt.Sprintf("node '%s' is not reachable from any container", id))
		}
	}
	return report
}

func validateContainer(report *Report, loader ports.GraphLoader, parser *compiler.Parser, containers ports.ContainerResolver, def ports.ContainerDefinition, reachable map[string]bool) {
	prog, err := compiler.Compile(loader, parser, def.Start, def.DefaultHandler)
	if err != nil {
		for _, e := range flatten(err) {
			report.Errors = append(report.Errors, fmt.Sprintf("container '%s': %v", def.Name, e))
		}
		return
	}

	if def.DefaultHandler != "" {
		if n, _ := prog.Node(def.DefaultHandler); n != nil && n.Kind != domain.KindExceptionHandler {
			report.Errors = append(report.Errors, fmt.Sprintf("container '%s': default handler '%s' is a %s node", def.Name, n.ID, n.Kind))
		}
	}

	for _, id := range prog.Order {
		reachable[id] = true
		n, _ := prog.Node(id)
		for _, cerr := range compiler.CheckNode(n) {
			report.Errors = append(report.Errors, fmt.Sprintf("container '%s': %v", def.Name, cerr))
		}
		if h := n.Edge(domain.EdgeExceptionHandler); h != "" {
			if target, _ := prog.Node(h); target != nil && target.Kind != domain.KindExceptionHandler {
				report.Errors = append(report.Errors, fmt.Sprintf("container '%s': node '%s' routes errors to '%s', a %s node", def.Name, id, h, target.Kind))
			}
		}
		if n.Kind == domain.KindCall && n.Container != "" {
			if _, err := containers.Container(n.Container); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("container '%s': node '%s' calls unknown container '%s'", def.Name, id, n.Container))
			}
		}
	}
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		out := joined.Unwrap()
		sort.Slice(out, func(i, j int) bool { return out[i].Error() < out[j].Error() })
		return out
	}
	return []error{err}
}
