package http

import (
	"context"
	"log/slog"
	"net"
)

type RequestCtx struct {
	Conn   net.Conn
	ConnID string
	Logger *slog.Logger

	Request  *Request
	Response *Response

	// Route is the key of the registered route that matched the request, as
	// "/" + key. Empty when no route matched.
	Route string

	ctx context.Context
}

func (reqCtx *RequestCtx) Context() context.Context {
	if reqCtx.ctx == nil {
		return context.Background()
	}
	return reqCtx.ctx
}

func (reqCtx *RequestCtx) SetContext(ctx context.Context) {
	reqCtx.ctx = ctx
}

// Log returns the request logger, falling back to the default logger.
func (reqCtx *RequestCtx) Log() *slog.Logger {
	if reqCtx.Logger == nil {
		return slog.Default()
	}
	return reqCtx.Logger
}
