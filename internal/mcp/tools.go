// Package mcp exposes the solver and the wall optimizer as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/copyleftdev/icemaze/internal/maze"
	"github.com/copyleftdev/icemaze/internal/metrics"
	"github.com/copyleftdev/icemaze/internal/optimization"
	"github.com/copyleftdev/icemaze/internal/optimization/genetic"
	"github.com/copyleftdev/icemaze/internal/pathfind"
)

const instructions = `Ice maze tools

A maze is text, one line per row:
  '-' start   '+' exit   '#' wall   ' ' empty   '_' ice (slide until stopped)
  '0'-'9' checkpoints (visited in ascending order)   '<' '>' '[' ']' reserved

AVAILABLE TOOLS:
- solve_maze: shortest route through every checkpoint to the exit
- evolve_walls: place N walls on empty tiles to make the shortest route as long as possible`

// Tools serves the maze tools over MCP.
type Tools struct {
	mcpServer *server.MCPServer
	logger    *zap.Logger
	metrics   *metrics.Metrics
	defaults  optimization.OptimizerConfig
}

// NewTools registers the tools. defaults supplies optimizer settings the
// caller does not pass; logger and m may be nil.
func NewTools(defaults optimization.OptimizerConfig, logger *zap.Logger, m *metrics.Metrics) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tools{
		logger:   logger.Named("mcp"),
		metrics:  m,
		defaults: defaults,
	}

	t.mcpServer = server.NewMCPServer(
		"icemaze",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
	)
	t.registerTools()
	return t
}

// Server returns the underlying MCP server for serving
func (t *Tools) Server() *server.MCPServer {
	return t.mcpServer
}

// ServeStdio blocks serving requests on stdin/stdout.
func (t *Tools) ServeStdio() error {
	return server.ServeStdio(t.mcpServer)
}

func (t *Tools) registerTools() {
	t.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_maze",
		Description: "Find the shortest route from a start tile through all checkpoints to the exit",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"layout": map[string]interface{}{
					"type":        "string",
					"description": "Maze text, rows separated by newlines",
				},
			},
			Required: []string{"layout"},
		},
	}, t.handleSolveMaze)

	t.mcpServer.AddTool(mcp.Tool{
		Name:        "evolve_walls",
		Description: "Evolve a placement of walls on empty tiles that maximises the shortest route length",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"layout": map[string]interface{}{
					"type":        "string",
					"description": "Maze text, rows separated by newlines",
				},
				"walls": map[string]interface{}{
					"type":        "integer",
					"description": "Number of walls to place",
				},
				"generations": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Generations to run (default %d)", t.defaults.Generations),
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Random seed for a reproducible run (optional)",
				},
			},
			Required: []string{"layout", "walls"},
		},
	}, t.handleEvolveWalls)
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument. ok is false when it is absent.
func intArg(args map[string]interface{}, name string) (int64, bool, error) {
	v, present := args[name]
	if !present || v == nil {
		return 0, false, nil
	}
	f, isNum := v.(float64)
	if !isNum || f != float64(int64(f)) {
		return 0, true, fmt.Errorf("%s must be an integer", name)
	}
	return int64(f), true, nil
}

func (t *Tools) handleSolveMaze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layout, _ := arguments(request)["layout"].(string)
	grid, err := maze.ParseString(layout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	route, err := pathfind.Solve(grid)
	if errors.Is(err, pathfind.ErrUnsolvable) {
		return mcp.NewToolResultText("No route: the exit or a checkpoint is unreachable.\n"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Route length: %d\n\n", len(route))
	b.WriteString(maze.Render(grid.Overlay(route)))
	b.WriteString("\n\nPath:")
	for _, p := range route {
		fmt.Fprintf(&b, " %s", p)
	}
	b.WriteString("\n")
	return mcp.NewToolResultText(b.String()), nil
}

func (t *Tools) handleEvolveWalls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	layout, _ := args["layout"].(string)
	grid, err := maze.ParseString(layout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := t.defaults
	walls, ok, err := intArg(args, "walls")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("walls is required"), nil
	}
	cfg.WallCount = int(walls)

	if gens, ok, err := intArg(args, "generations"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		cfg.Generations = int(gens)
	}
	if seed, ok, err := intArg(args, "seed"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		cfg.RandomSeed = seed
	}

	optimizer := genetic.NewGeneticOptimizer(t.logger, t.metrics)
	result, err := optimizer.Optimize(ctx, grid, cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if !result.Solvable {
		fmt.Fprintf(&b, "No solvable wall placement found after %d generations.\n", result.Generations)
		return mcp.NewToolResultText(b.String()), nil
	}

	walled, err := genetic.ApplyWalls(grid, result.Best.Walls)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fmt.Fprintf(&b, "Best fitness: %d after %d generations (%d evaluations)\n\n",
		result.Best.Fitness, result.Generations, result.Evaluations)
	b.WriteString(maze.Render(walled))
	b.WriteString("\n\n")
	b.WriteString(maze.Render(walled.Overlay(result.Path)))
	b.WriteString("\n\nWalls:")
	for _, p := range result.Best.Walls {
		fmt.Fprintf(&b, " %s", p)
	}
	b.WriteString("\n")
	return mcp.NewToolResultText(b.String()), nil
}
