package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/taskhub/internal/auth"
	"github.com/btouchard/taskhub/internal/notify"
	"github.com/btouchard/taskhub/internal/task"
)

// Deps holds shared dependencies injected into MCP handlers.
type Deps struct {
	Tasks         *task.Manager
	Notifications *notify.Dispatcher
	Version       string
}

// Server bundles the MCP server with the notifier that pushes task events
// to its sessions.
type Server struct {
	*server.MCPServer
	Notifier *notify.MCPNotifier
}

// NewServer creates and configures the MCP server with all tools registered.
// Sessions are bound to the authenticated user on registration and on each
// tool call so user-scoped events reach them.
func NewServer(deps *Deps) *Server {
	srv := &Server{}

	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		srv.Notifier.Bind(auth.UserID(ctx), session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		srv.Notifier.Unbind(session.SessionID())
	})

	srv.MCPServer = server.NewMCPServer(
		"TaskHub",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithHooks(hooks),
		server.WithToolHandlerMiddleware(srv.bindSession),
	)
	srv.Notifier = notify.NewMCPNotifier(srv.MCPServer)

	registerTools(srv.MCPServer, deps)

	return srv
}

func (s *Server) bindSession(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if session := server.ClientSessionFromContext(ctx); session != nil {
			s.Notifier.Bind(auth.UserID(ctx), session.SessionID())
		}
		slog.Debug("mcp tool call", "tool", req.Params.Name, "user_id", auth.UserID(ctx))
		return next(ctx, req)
	}
}

// HTTPHandler returns the streamable HTTP transport. The authenticated user
// on the request is carried into tool calls.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.MCPServer,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return auth.WithUserID(ctx, auth.UserID(r.Context()))
		}),
	)
}
