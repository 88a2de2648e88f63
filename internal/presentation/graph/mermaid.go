package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	FailedNode   string
}

// controlEdges are drawn as solid arrows; every other edge is a data dependency.
var controlEdges = map[string]bool{
	domain.EdgeNext:         true,
	domain.EdgeTrueElement:  true,
	domain.EdgeFalseElement: true,
	domain.EdgeLoopBody:     true,
	domain.EdgeForkBody:     true,
}

// GenerateMermaid produces a Mermaid flowchart from a list of nodes.
// Shapes follow the node role:
// - Start: ((Circle))
// - Decision: {Rhombus}
// - Fork / Call: [[Subroutine]]
// - Exception handler: {{Hexagon}}
// - Data nodes: ([Stadium])
// - Default: [Rectangle]
// Control edges are solid, data edges dotted and error routes thick.
func GenerateMermaid(nodes []domain.Node, start string, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)
		opener, closer := shape(node, start)
		fmt.Fprintf(&sb, "    %s%s\"%s<br/><i>%s</i>\"%s\n", safeID, opener, node.ID, node.Kind, closer)

		for _, edge := range edgeNames(node) {
			for _, target := range node.EdgeList(edge) {
				safeTo := sanitizeMermaidID(target)
				switch {
				case edge == domain.EdgeNext:
					fmt.Fprintf(&sb, "    %s --> %s\n", safeID, safeTo)
				case controlEdges[edge]:
					fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, edge, safeTo)
				case edge == domain.EdgeExceptionHandler:
					fmt.Fprintf(&sb, "    %s == \"error\" ==> %s\n", safeID, safeTo)
				default:
					// Data flows from the source into the consumer.
					fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", safeTo, edge, safeID)
				}
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.FailedNode != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.FailedNode))
		}
	}

	return sb.String()
}

func shape(node domain.Node, start string) (string, string) {
	switch {
	case node.ID == start:
		return "((", "))"
	case node.Kind == domain.KindDecision:
		return "{", "}"
	case node.Kind == domain.KindFork || node.Kind == domain.KindCall:
		return "[[", "]]"
	case node.Kind == domain.KindExceptionHandler:
		return "{{", "}}"
	case node.Kind == domain.KindReturn:
		return "[/", "\\]"
	case isData(node.Kind):
		return "([", "])"
	}
	return "[", "]"
}

func isData(k domain.Kind) bool {
	switch k {
	case domain.KindDataSource, domain.KindScriptCondition, domain.KindGetProperty,
		domain.KindKeyValue, domain.KindObjectDataSource, domain.KindTypeQuery,
		domain.KindParameter, domain.KindFirst, domain.KindNotNull, domain.KindIsTrue,
		domain.KindAnd, domain.KindOr, domain.KindNot, domain.KindComparison:
		return true
	}
	return false
}

// edgeNames returns the node's edge names in a stable order, control edges first.
func edgeNames(node domain.Node) []string {
	var control, data []string
	for _, name := range []string{
		domain.EdgeNext, domain.EdgeTrueElement, domain.EdgeFalseElement,
		domain.EdgeLoopBody, domain.EdgeForkBody, domain.EdgeExceptionHandler,
	} {
		if len(node.Edges[name]) > 0 {
			control = append(control, name)
		}
	}
	seen := make(map[string]bool, len(control))
	for _, name := range control {
		seen[name] = true
	}
	for name := range node.Edges {
		if !seen[name] {
			data = append(data, name)
		}
	}
	sort.Strings(data)
	return append(control, data...)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
