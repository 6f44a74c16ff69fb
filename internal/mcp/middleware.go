package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type ctxKey struct{}

// sessionMiddleware tags the context of every inbound request with the id of
// the MCP session it arrived on.
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if id := requestSessionID(req); id != "" {
				ctx = context.WithValue(ctx, ctxKey{}, id)
			}
			return next(ctx, method, req)
		}
	}
}

// sessionID returns the id stored by sessionMiddleware, falling back to the
// request itself for outbound traffic.
func sessionID(ctx context.Context, req sdkmcp.Request) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return requestSessionID(req)
}

// requestSessionID prefers the Mcp-Session-Id header, then the SDK session and
// finally a session_id in request metadata (stdio clients).
func requestSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	// Getters panic on requests without params, such as "initialized".
	defer func() { recover() }()
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		if id = extra.Header.Get("Mcp-Session-Id"); id != "" {
			return id
		}
	}
	if session := req.GetSession(); session != nil {
		if id = session.ID(); id != "" {
			return id
		}
	}
	if params := req.GetParams(); params != nil {
		if meta := params.GetMeta(); meta != nil {
			id, _ = meta["session_id"].(string)
		}
	}
	return id
}
