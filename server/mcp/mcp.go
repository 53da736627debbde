// Package mcp exposes the assistant as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hrygo/coworkr/plugin/ai/assistant"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/server/internal/observability"
)

const (
	serverName = "coworkr"

	ToolChat    = "coworkr_chat"
	ToolIntents = "coworkr_intents"
)

// Assistant runs assistant turns.
type Assistant interface {
	Handle(ctx context.Context, req *assistant.Request) *assistant.Response
}

// IntentLister reports the intents with a registered handler.
type IntentLister interface {
	List() []router.Intent
}

// App holds the tool handlers.
type App struct {
	assistant Assistant
	intents   IntentLister
}

// NewApp creates the tool handlers.
func NewApp(a Assistant, intents IntentLister) *App {
	return &App{assistant: a, intents: intents}
}

// NewServer builds the MCP server with every tool registered.
func NewServer(app *App, version string) *server.MCPServer {
	s := server.NewMCPServer(serverName, version)

	s.AddTool(mcp.NewTool(ToolChat,
		mcp.WithDescription("Send one utterance to the coworkr assistant on behalf of a team member and get its reply. The assistant can create and update tasks, events and CRM records, answer questions about them, and ask follow-up questions."),
		mcp.WithString("caller_id", mcp.Required(), mcp.Description("Team member id the turn runs as")),
		mcp.WithString("utterance", mcp.Required(), mcp.Description("What the user said")),
	), app.chatHandler)

	s.AddTool(mcp.NewTool(ToolIntents,
		mcp.WithDescription("List the actions the assistant can perform."),
	), app.intentsHandler)

	return s
}

// ServeStdio serves the tools over stdin/stdout until the client disconnects.
func ServeStdio(app *App, version string) error {
	return server.ServeStdio(NewServer(app, version))
}

func (a *App) chatHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid args"), nil
	}
	caller := strings.TrimSpace(stringArg(args, "caller_id"))
	utterance := stringArg(args, "utterance")
	if caller == "" {
		return mcp.NewToolResultError("caller_id is required"), nil
	}

	rc := observability.NewRequestContext(slog.Default(), "mcp", caller)
	ctx = observability.WithRequestContext(ctx, rc)
	resp := a.assistant.Handle(ctx, &assistant.Request{Caller: caller, Utterance: utterance})
	rc.SetIntent(resp.Intent)
	rc.Info("tool call completed",
		slog.Bool("failed", resp.Failed),
		slog.Int64(observability.LogFieldLatency, time.Since(rc.StartTime).Milliseconds()),
	)

	if resp.Failed {
		return mcp.NewToolResultError(resp.ReplyText), nil
	}

	details, err := json.Marshal(struct {
		Intent        string             `json:"intent"`
		NeedsMoreInfo bool               `json:"needsMoreInfo"`
		Actions       []assistant.Action `json:"actionsTaken"`
	}{resp.Intent, resp.NeedsMoreInfo, resp.Actions})
	if err != nil {
		return mcp.NewToolResultText(resp.ReplyText), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(resp.ReplyText),
			mcp.NewTextContent(string(details)),
		},
	}, nil
}

func (a *App) intentsHandler(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if a.intents == nil {
		return mcp.NewToolResultText("No actions available."), nil
	}
	var sb strings.Builder
	for _, intent := range a.intents.List() {
		sb.WriteString("- ")
		sb.WriteString(string(intent))
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
