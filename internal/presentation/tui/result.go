package tui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/muesli/termenv"
)

// PrintResult writes a container result for humans: green value or red error.
// Colors degrade to plain text when w is not a terminal.
func PrintResult(w io.Writer, container string, res domain.Result) {
	out := termenv.NewOutput(w)
	if !res.Ok() {
		fmt.Fprintf(w, "%s %s: %s\n",
			out.String("✗").Foreground(out.Color("1")).Bold(),
			container,
			out.String(res.ErrorMessage()).Foreground(out.Color("1")))
		return
	}

	value := "(no result)"
	if res.Value != nil {
		if b, err := json.MarshalIndent(res.Value, "", "  "); err == nil {
			value = string(b)
		} else {
			value = fmt.Sprintf("%v", res.Value)
		}
	}
	fmt.Fprintf(w, "%s %s: %s\n",
		out.String("✓").Foreground(out.Color("2")).Bold(),
		container,
		out.String(value).Foreground(out.Color("6")))
}
