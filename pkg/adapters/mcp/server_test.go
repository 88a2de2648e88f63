package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	result domain.Result
	err    error
	params map[string]any
}

func (s *stubEngine) Evaluate(ctx context.Context, container string, params map[string]any) (domain.Result, error) {
	s.params = params
	return s.result, s.err
}

func (s *stubEngine) Containers() []ports.ContainerDefinition {
	return []ports.ContainerDefinition{{Name: "main", Start: "s"}}
}

func (s *stubEngine) Inspect(container string) ([]domain.Node, error) {
	if container != "main" {
		return nil, domain.ErrContainerNotFound
	}
	return []domain.Node{{ID: "s", Kind: domain.KindReturn}}, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestServer_Evaluate(t *testing.T) {
	eng := &stubEngine{result: domain.Result{Value: 42}}
	s := NewServer(eng, nil)

	resp, err := s.handleEvaluate(context.Background(), mcp.CallToolRequest{}, EvaluateArgs{
		Container: "main",
		Params:    map[string]any{"n": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, EvaluateResponse{Container: "main", Result: 42}, resp)
	assert.Equal(t, map[string]any{"n": 1}, eng.params)
}

func TestServer_EvaluateFlowError(t *testing.T) {
	s := NewServer(&stubEngine{result: domain.Result{Err: errors.New("boom")}}, nil)

	resp, err := s.handleEvaluate(context.Background(), mcp.CallToolRequest{}, EvaluateArgs{Container: "main"})
	require.NoError(t, err, "flow errors are reported in the response")
	assert.Equal(t, "boom", resp.Error)
}

func TestServer_EvaluateLookupError(t *testing.T) {
	s := NewServer(&stubEngine{err: domain.ErrContainerNotFound}, nil)

	_, err := s.handleEvaluate(context.Background(), mcp.CallToolRequest{}, EvaluateArgs{Container: "nope"})
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)

	_, err = s.handleEvaluate(context.Background(), mcp.CallToolRequest{}, EvaluateArgs{})
	assert.Error(t, err)
}

func TestServer_ListAndGraph(t *testing.T) {
	s := NewServer(&stubEngine{}, nil)

	res, err := s.handleListContainers(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"Name":"main"`)

	res, err = s.handleGetGraph(context.Background(), callRequest(map[string]any{"container": "main"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGetGraph(context.Background(), callRequest(map[string]any{"container": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
