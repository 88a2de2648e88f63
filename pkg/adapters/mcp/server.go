// Package mcp exposes flow containers as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// EvaluateArgs are the arguments of the evaluate tool.
type EvaluateArgs struct {
	Container string         `json:"container"`
	Params    map[string]any `json:"params,omitempty"`
}

// EvaluateResponse is the structured result of the evaluate tool.
type EvaluateResponse struct {
	Container string `json:"container" jsonschema_description:"The evaluated container"`
	Result    any    `json:"result,omitempty" jsonschema_description:"The value of the return node, if any"`
	Error     string `json:"error,omitempty" jsonschema_description:"The unhandled flow error, if the run failed"`
}

// Server wraps a flow engine and exposes it as an MCP server.
type Server struct {
	engine    ports.FlowEngine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance.
func NewServer(engine ports.FlowEngine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("tendril-mcp", strings.TrimSpace(tendril.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_containers",
		mcp.WithDescription("List the flow containers that can be evaluated."),
	), s.handleListContainers)

	evaluateTool := mcp.NewTool("evaluate",
		mcp.WithDescription("Evaluate a flow container with input parameters and return its result."),
		mcp.WithString("container", mcp.Required(), mcp.Description("Name of the container to run")),
		mcp.WithObject("params", mcp.Description("Input parameters of the run")),
		mcp.WithOutputSchema[EvaluateResponse](),
	)
	s.mcpServer.AddTool(evaluateTool, mcp.NewStructuredToolHandler(s.handleEvaluate))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the nodes reachable from a container."),
		mcp.WithString("container", mcp.Required(), mcp.Description("Name of the container")),
	), s.handleGetGraph)
}

func (s *Server) handleListContainers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(s.engine.Containers())
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest, args EvaluateArgs) (EvaluateResponse, error) {
	if args.Container == "" {
		return EvaluateResponse{}, fmt.Errorf("container is required")
	}

	res, err := s.engine.Evaluate(ctx, args.Container, args.Params)
	if err != nil {
		return EvaluateResponse{}, fmt.Errorf("evaluate failed: %w", err)
	}
	if !res.Ok() {
		s.logger.Info("MCP Evaluate: unhandled flow error", "container", args.Container, "err", res.Err)
		return EvaluateResponse{Container: args.Container, Error: res.ErrorMessage()}, nil
	}
	return EvaluateResponse{Container: args.Container, Result: res.Value}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("container")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.engine.Inspect(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(nodes)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("tendril://containers", "Flow containers",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Containers())
		if err != nil {
			return nil, fmt.Errorf("failed to list containers: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "tendril://containers",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
