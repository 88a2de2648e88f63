package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the tendril banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{" _                  _      _ _ ", "#34d399"},
		{"| |_ ___ _ __   __| |_ __(_) |", "#10b981"},
		{"| __/ _ \\ '_ \\ / _` | '__| | |", "#059669"},
		{"| ||  __/ | | | (_| | |  | | |", "#047857"},
		{" \\__\\___|_| |_|\\__,_|_|  |_|_|", "#065f46"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
