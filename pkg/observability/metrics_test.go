package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "a", NodeKind: domain.KindAction})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "b", NodeKind: domain.KindAction})
	hooks.OnError(ctx, &domain.ErrorEvent{NodeID: "a", Handled: true})
	hooks.OnForkJoin(ctx, &domain.ForkEvent{NodeID: "f", Committed: false, Duration: time.Millisecond})

	expected := `
# HELP tendril_node_visits_total Total number of executable node visits.
# TYPE tendril_node_visits_total counter
tendril_node_visits_total{kind="action"} 2
# HELP tendril_node_errors_total Errors raised by nodes, by whether a handler caught them.
# TYPE tendril_node_errors_total counter
tendril_node_errors_total{handled="true"} 1
# HELP tendril_forks_total Finished fork sub-executions, by outcome.
# TYPE tendril_forks_total counter
tendril_forks_total{outcome="rolled_back"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"tendril_node_visits_total", "tendril_node_errors_total", "tendril_forks_total"))
}

func TestMetrics_ObserveEvaluation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveEvaluation("main", domain.Result{Value: 1}, time.Millisecond)
	m.ObserveEvaluation("main", domain.Result{Err: errors.New("boom")}, time.Millisecond)
	m.ObserveEvaluation("main", domain.Result{}, time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "tendril_evaluations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per outcome")
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)

	hooks.OnNodeEnter(context.Background(), &domain.NodeEvent{NodeID: "start", NodeKind: domain.KindAction})
	hooks.OnError(context.Background(), &domain.ErrorEvent{NodeID: "start", Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "node_enter")
	assert.Contains(t, out, "node_id=start")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "err=boom")
}
