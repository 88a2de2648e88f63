package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	adapter "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Evaluate(ctx context.Context, container string, params map[string]any) (domain.Result, error) {
	args := m.Called(ctx, container, params)
	return args.Get(0).(domain.Result), args.Error(1)
}

func (m *mockEngine) Containers() []ports.ContainerDefinition {
	return m.Called().Get(0).([]ports.ContainerDefinition)
}

func (m *mockEngine) Inspect(container string) ([]domain.Node, error) {
	args := m.Called(container)
	nodes, _ := args.Get(0).([]domain.Node)
	return nodes, args.Error(1)
}

func serve(t *testing.T, eng ports.FlowEngine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	adapter.NewHandler(eng).ServeHTTP(rec, req)
	return rec
}

func TestServer_ListContainers(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Containers").Return([]ports.ContainerDefinition{{Name: "main", Start: "s", DefaultHandler: "h"}})

	rec := serve(t, eng, http.MethodGet, "/containers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []adapter.ContainerInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []adapter.ContainerInfo{{Name: "main", Start: "s", DefaultHandler: "h"}}, got)
}

func TestServer_Evaluate(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Evaluate", mock.Anything, "main", map[string]any{"n": float64(2)}).
		Return(domain.Result{Value: float64(4)}, nil)

	rec := serve(t, eng, http.MethodPost, "/containers/main/evaluate", `{"params":{"n":2}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":4}`, rec.Body.String())
	eng.AssertExpectations(t)
}

func TestServer_EvaluateEmptyBody(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Evaluate", mock.Anything, "main", map[string]any(nil)).Return(domain.Result{Value: "ok"}, nil)

	rec := serve(t, eng, http.MethodPost, "/containers/main/evaluate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"ok"}`, rec.Body.String())
}

func TestServer_EvaluateErrors(t *testing.T) {
	tests := []struct {
		name   string
		result domain.Result
		err    error
		body   string
		status int
	}{
		{"unknown container", domain.Result{}, domain.ErrContainerNotFound, `{}`, http.StatusNotFound},
		{"unhandled flow error", domain.Result{Err: errors.New("boom")}, nil, `{}`, http.StatusUnprocessableEntity},
		{"broken graph", domain.Result{Err: domain.MissingEdge("d", domain.EdgeCondition)}, nil, `{}`, http.StatusInternalServerError},
		{"invalid body", domain.Result{}, nil, `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := new(mockEngine)
			eng.On("Evaluate", mock.Anything, "main", mock.Anything).Return(tt.result, tt.err)

			rec := serve(t, eng, http.MethodPost, "/containers/main/evaluate", tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestServer_Graph(t *testing.T) {
	nodes := []domain.Node{
		{ID: "s", Kind: domain.KindAction, Edges: map[string][]string{domain.EdgeNext: {"r"}}},
		{ID: "r", Kind: domain.KindReturn},
	}
	eng := new(mockEngine)
	eng.On("Inspect", "main").Return(nodes, nil)
	eng.On("Inspect", "nope").Return(nil, domain.ErrContainerNotFound)
	eng.On("Containers").Return([]ports.ContainerDefinition{{Name: "main", Start: "s"}})

	rec := serve(t, eng, http.MethodGet, "/containers/main/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Node
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rec = serve(t, eng, http.MethodGet, "/containers/main/graph?format=mermaid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "s --> r")
	assert.Contains(t, rec.Body.String(), `s(("s`)

	rec = serve(t, eng, http.MethodGet, "/containers/nope/graph", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Health(t *testing.T) {
	rec := serve(t, new(mockEngine), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
