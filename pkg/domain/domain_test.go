package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"string true", "true", true},
		{"string mixed case", "TrUe", true},
		{"string yes", "yes", false},
		{"string empty", "", false},
		{"string padded", " true", false},
		{"string trailing space", "true ", false},
		{"number", 1, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.Truthy(tc.in))
		})
	}
}

func TestFlowError_KeepsOrigin(t *testing.T) {
	cause := errors.New("boom")
	fe := domain.AsFlowError("a", cause)
	require.NotNil(t, fe)
	assert.Equal(t, "a", fe.NodeID)
	assert.ErrorIs(t, fe, cause)

	again := domain.AsFlowError("b", fe)
	assert.Same(t, fe, again, "an existing FlowError must keep its originating node")
	assert.Nil(t, domain.AsFlowError("c", nil))
}

func TestConfigError_IsConfiguration(t *testing.T) {
	err := domain.MissingEdge("decide", domain.EdgeTrueElement)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, "node 'decide': missing required edge 'true_element'", err.Error())
}

func TestConfigError_Message(t *testing.T) {
	err := &domain.ConfigError{NodeID: "n", Edge: domain.EdgeExceptionHandler, Reason: "'x' is not an exception handler"}
	assert.NotContains(t, err.Error(), "missing required edge", "only MissingEdge describes an absent edge")
	assert.Equal(t, "node 'n': 'x' is not an exception handler", err.Error())
}

func TestConfigError_WrapsCause(t *testing.T) {
	err := &domain.ConfigError{NodeID: "p", Reason: "'age' on string", Err: domain.ErrPropertyNotFound}
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
	assert.Contains(t, err.Error(), "property not found")
}

func TestNode_Edges(t *testing.T) {
	n := domain.Node{
		ID:   "n",
		Kind: domain.KindAnd,
		Edges: map[string][]string{
			domain.EdgeSources: {"c1", "c2"},
			domain.EdgeNext:    {"after"},
		},
	}
	assert.Equal(t, "after", n.Edge(domain.EdgeNext))
	assert.Equal(t, "", n.Edge(domain.EdgeCondition))
	assert.Equal(t, []string{"c1", "c2"}, n.EdgeList(domain.EdgeSources))
	assert.Equal(t, []string{"after", "c1", "c2"}, n.Targets())
	assert.True(t, n.Kind.Valid())
	assert.False(t, domain.Kind("teleport").Valid())
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "b") }}

	merged := a.Merge(b)
	merged.OnNodeEnter(context.Background(), &domain.NodeEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, merged.OnForkJoin)
}

func TestMatchesFilter_NumbersByValue(t *testing.T) {
	obj := map[string]any{"count": int64(3), "name": "x"}
	assert.True(t, domain.MatchesFilter(obj, map[string]any{"count": 3.0}))
	assert.True(t, domain.MatchesFilter(obj, map[string]any{"count": 3, "name": "x"}))
	assert.False(t, domain.MatchesFilter(obj, map[string]any{"count": 4}))
	assert.False(t, domain.MatchesFilter(obj, map[string]any{"missing": 1}))
	assert.True(t, domain.MatchesFilter(obj, nil))
}

func TestCompare(t *testing.T) {
	c, ok := domain.Compare(2, 3.5)
	assert.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = domain.Compare("b", "a")
	assert.True(t, ok)
	assert.Equal(t, 1, c)

	_, ok = domain.Compare("1", 1)
	assert.False(t, ok)
}
