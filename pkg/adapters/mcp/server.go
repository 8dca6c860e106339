// Package mcp exposes the engine as an MCP server so agent hosts can drive
// conversations as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/personakit/persona"
	"github.com/personakit/persona/pkg/adapters/yamlfile"
	"github.com/personakit/persona/pkg/domain"
)

// Server wraps the engine and exposes it over MCP.
type Server struct {
	engine    *persona.Engine
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server instance for an engine.
func NewServer(engine *persona.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("persona-mcp", persona.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("define_persona",
		mcp.WithDescription("Register a bot persona from a YAML definition (state graph, form schema, view map). Returns the persona id."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("Persona definition in YAML")),
	), s.definePersona)

	s.mcpServer.AddTool(mcp.NewTool("start_conversation",
		mcp.WithDescription("Start a conversation for a persona on a channel. Returns the resolved view of the initial state."),
		mcp.WithString("persona_id", mcp.Required(), mcp.Description("Persona id")),
		mcp.WithString("channel_conversation_id", mcp.Required(), mcp.Description("Channel conversation (chat) id")),
	), s.startConversation)

	s.mcpServer.AddTool(mcp.NewTool("send_event",
		mcp.WithDescription("Apply an event to a channel's active conversation. Returns the resolved view of the new state."),
		mcp.WithString("channel_conversation_id", mcp.Required(), mcp.Description("Channel conversation (chat) id")),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name")),
		mcp.WithString("payload", mcp.Description("Event payload as a JSON object")),
	), s.sendEvent)

	s.mcpServer.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Inspect a channel's active conversation: current state, status and form data."),
		mcp.WithString("channel_conversation_id", mcp.Required(), mcp.Description("Channel conversation (chat) id")),
	), s.getConversation)
}

func (s *Server) definePersona(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	definition, err := req.RequireString("definition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec, err := yamlfile.Parse([]byte(definition))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.engine.DefinePersona(ctx, spec.Name, spec.StateGraph, spec.FormSchema, spec.ViewMap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"persona_id": id})
}

func (s *Server) startConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	personaID, err := req.RequireString("persona_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channelID, err := req.RequireString("channel_conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	view, err := s.engine.StartConversation(ctx, personaID, channelID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"view": view})
}

func (s *Server) sendEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channelID, err := req.RequireString("channel_conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	event, err := req.RequireString("event")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var payload map[string]any
	if raw := req.GetString("payload", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("payload is not a JSON object: %v", err)), nil
		}
	}

	result, err := s.engine.ProcessEvent(ctx, channelID, event, payload)
	if err != nil {
		if domain.IsRecoverable(err) {
			// Invalid input is part of the protocol, not a tool failure:
			// report it so the host can re-prompt the user.
			return jsonResult(map[string]any{"accepted": false, "reason": err.Error()})
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"accepted": true, "view": result.View, "finished": result.Finished})
}

func (s *Server) getConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channelID, err := req.RequireString("channel_conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conv, err := s.engine.GetConversation(ctx, channelID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"conversation_id":  conv.ID,
		"persona_id":       conv.PersonaID,
		"status":           conv.Status,
		"current_state_id": conv.CurrentStateID,
		"form_data":        conv.Form.Data(),
		"form_complete":    conv.Form.IsComplete(),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
