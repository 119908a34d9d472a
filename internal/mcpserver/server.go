// Package mcpserver exposes every persona as an MCP tool.
// Each tool takes one "input" string and returns the same text the CLI prints;
// failed calls carry the persona's error prefix and are flagged IsError.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/opsagent/internal/domain/completion"
	"github.com/matiasleandrokruk/opsagent/internal/domain/persona"
	"github.com/matiasleandrokruk/opsagent/internal/infra/logger"
	"github.com/matiasleandrokruk/opsagent/internal/version"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "opsagent"

// Completer is satisfied by *completion.Service.
type Completer interface {
	Personas() []persona.Persona
	Complete(ctx context.Context, name, input string) (persona.Persona, completion.Result, error)
}

// ToolInput is the argument object of every persona tool.
type ToolInput struct {
	Input string `json:"input" jsonschema:"text passed to the persona as the user message"`
}

// New builds an MCP server with one tool per persona.
func New(svc Completer, log *slog.Logger) *mcp.Server {
	if log == nil {
		log = logger.Discard()
	}

	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version.Version}, nil)
	for _, p := range svc.Personas() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        p.Name,
			Description: p.Description,
		}, toolHandler(svc, p.Name, log))
	}
	return server
}

// Run serves the MCP protocol over stdin/stdout until ctx is done or the client disconnects.
func Run(ctx context.Context, svc Completer, log *slog.Logger) error {
	return New(svc, log).Run(ctx, &mcp.StdioTransport{})
}

func toolHandler(svc Completer, name string, log *slog.Logger) mcp.ToolHandlerFor[ToolInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ToolInput) (*mcp.CallToolResult, any, error) {
		p, res, err := svc.Complete(ctx, name, in.Input)
		if err != nil {
			return nil, nil, err
		}

		text := res.Text
		if !res.OK() {
			text = p.FormatError(res.Err.Error())
			log.WarnContext(ctx, "mcp tool call failed", "tool", name, "error", logger.RedactSensitiveData(res.Err.Error()))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
			IsError: !res.OK(),
		}, nil, nil
	}
}
