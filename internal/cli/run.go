package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/compiler"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/internal/validator"
	"github.com/aretw0/tendril/pkg/domain"
)

// ErrFlowFailed is returned when a run ends in an unhandled flow error.
var ErrFlowFailed = errors.New("flow failed")

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	FlowPath   string
	Container  string
	ParamsJSON string
	Params     []string
	JSON       bool
	// Trace prints a Mermaid graph of the run with the visited nodes highlighted.
	Trace bool
}

// jsonResult is the --json output of a run.
type jsonResult struct {
	Container string `json:"container"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Run evaluates one container of a flow file and prints its result.
func Run(ctx context.Context, opts RunOptions, cfg Config, logger *slog.Logger, out io.Writer) error {
	params, err := ParseParams(opts.ParamsJSON, opts.Params)
	if err != nil {
		return err
	}

	tracer := &tracer{}
	session, err := OpenSession(opts.FlowPath, cfg, logger, tendril.WithLifecycleHooks(tracer.hooks()))
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", "err", err)
		}
	}()

	name := opts.Container
	if name == "" {
		name, err = defaultContainer(session.Engine)
		if err != nil {
			return err
		}
	}

	container, err := session.Engine.Container(name)
	if err != nil {
		return err
	}
	res := container.Evaluate(ctx, params)

	if opts.JSON {
		enc := json.NewEncoder(out)
		if err := enc.Encode(jsonResult{Container: name, Result: res.Value, Error: res.ErrorMessage()}); err != nil {
			return err
		}
	} else {
		tui.PrintResult(out, name, res)
	}

	if opts.Trace {
		nodes, err := container.Inspect()
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, graph.GenerateMermaid(nodes, container.Definition().Start, tracer.overlay()))
	}

	if !res.Ok() {
		return ErrFlowFailed
	}
	return nil
}

// defaultContainer picks the only container of a flow, or "main".
func defaultContainer(eng *tendril.Engine) (string, error) {
	defs := eng.Containers()
	switch {
	case len(defs) == 1:
		return defs[0].Name, nil
	case len(defs) == 0:
		return "", errors.New("flow declares no containers")
	}
	for _, d := range defs {
		if d.Name == "main" {
			return d.Name, nil
		}
	}
	return "", errors.New("flow declares several containers: pick one with --container")
}

// tracer records the executable nodes a run visited and the last unhandled failure.
type tracer struct {
	mu      sync.Mutex
	visited []string
	failed  string
}

func (t *tracer) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.visited = append(t.visited, e.NodeID)
		},
		OnError: func(_ context.Context, e *domain.ErrorEvent) {
			if e.Handled {
				return
			}
			t.mu.Lock()
			defer t.mu.Unlock()
			t.failed = e.NodeID
		},
	}
}

func (t *tracer) overlay() *graph.GraphOverlay {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &graph.GraphOverlay{VisitedNodes: append([]string(nil), t.visited...), FailedNode: t.failed}
}

// Validate checks every container of a flow file. Warnings are printed but do not fail.
func Validate(flowPath string, out io.Writer) error {
	session, err := OpenSession(flowPath, DefaultConfig(), logging.NewNop())
	if err != nil {
		return err
	}
	defer session.Close()

	report := validator.ValidateGraph(session.Loader, compiler.NewParser(), session.Loader)
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return report.Err()
}

// Inspect renders the nodes of a container, as Mermaid or as a markdown table.
func Inspect(flowPath, container, format string, out io.Writer) error {
	session, err := OpenSession(flowPath, DefaultConfig(), logging.NewNop())
	if err != nil {
		return err
	}
	defer session.Close()

	if container == "" {
		if container, err = defaultContainer(session.Engine); err != nil {
			return err
		}
	}
	c, err := session.Engine.Container(container)
	if err != nil {
		return err
	}
	nodes, err := c.Inspect()
	if err != nil {
		return err
	}

	switch format {
	case "mermaid", "":
		_, err = fmt.Fprint(out, graph.GenerateMermaid(nodes, c.Definition().Start, nil))
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(nodes)
	case "markdown":
		_, err = fmt.Fprint(out, tui.NodeTable(container, nodes))
	case "pretty":
		rendered, rerr := tui.NewRenderer()(tui.NodeTable(container, nodes))
		if rerr != nil {
			return rerr
		}
		_, err = fmt.Fprint(out, rendered)
	default:
		return fmt.Errorf("unknown format %q: use mermaid, json, markdown or pretty", format)
	}
	return err
}
