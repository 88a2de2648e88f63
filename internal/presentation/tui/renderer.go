package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// NodeTable describes a container's nodes as a markdown document.
func NodeTable(container string, nodes []domain.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", container)
	sb.WriteString("| Node | Kind | Edges | Detail |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, n := range nodes {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", n.ID, n.Kind, edgeSummary(n), escape(detail(n)))
	}
	return sb.String()
}

func edgeSummary(n domain.Node) string {
	names := make([]string, 0, len(n.Edges))
	for name := range n.Edges {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s → %s", name, strings.Join(n.Edges[name], ", ")))
	}
	return strings.Join(parts, "<br>")
}

func detail(n domain.Node) string {
	switch {
	case n.Script != "":
		return "`" + n.Script + "`"
	case n.Container != "":
		return "calls " + n.Container
	case n.Key != "":
		return "key " + n.Key
	case n.PropertyName != "":
		return "property " + n.PropertyName
	case n.DataType != "":
		return "type " + n.DataType
	case n.Value != nil:
		return fmt.Sprintf("%v", n.Value)
	}
	return ""
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
