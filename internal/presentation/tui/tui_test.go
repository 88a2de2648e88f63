package tui_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintResult(&buf, "main", domain.Result{Value: map[string]any{"total": 3}})
	assert.Contains(t, buf.String(), "main")
	assert.Contains(t, buf.String(), `"total": 3`)

	buf.Reset()
	tui.PrintResult(&buf, "main", domain.Result{Err: errors.New("boom")})
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	tui.PrintResult(&buf, "main", domain.Result{})
	assert.Contains(t, buf.String(), "(no result)")
}

func TestNodeTable(t *testing.T) {
	md := tui.NodeTable("main", []domain.Node{
		{ID: "a", Kind: domain.KindAction, Script: "x || y", Edges: map[string][]string{domain.EdgeNext: {"b"}}},
		{ID: "b", Kind: domain.KindReturn, Value: 1},
	})
	assert.Contains(t, md, "# main")
	assert.Contains(t, md, "| `a` | action | next → b | `x \\|\\| y` |")
	assert.Contains(t, md, "| `b` | return |  | 1 |")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}
