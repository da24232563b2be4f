package http

import (
	"errors"
	"slices"
	"strings"
)

// Handler builds ctx.Response for ctx.Request. A returned error is turned into
// an empty response carrying the error's status (see ErrorResponse).
type Handler func(ctx *RequestCtx) error

// Route binds a first path segment to a handler. Empty Methods accepts any
// method.
type Route struct {
	Key     string
	Methods []string
	Handler Handler
}

type Router struct {
	Routes     []Route
	Middleware []Middleware
}

func NewRouter() Router {
	return Router{
		Routes: make([]Route, 0),
	}
}

func (router *Router) GET(key string, handler Handler, middleware ...Middleware) {
	router.Any([]string{MethodGet}, key, handler, middleware...)
}

func (router *Router) POST(key string, handler Handler, middleware ...Middleware) {
	router.Any([]string{MethodPost}, key, handler, middleware...)
}

// Handle registers handler for every method.
func (router *Router) Handle(key string, handler Handler, middleware ...Middleware) {
	router.Any(nil, key, handler, middleware...)
}

func (router *Router) Any(methods []string, key string, handler Handler, middleware ...Middleware) {
	for _, middleware := range middleware {
		handler = middleware(handler)
	}

	router.Routes = append(router.Routes, Route{
		Methods: methods,
		Key:     key,
		Handler: handler,
	})
}

// Handler returns the dispatching handler wrapped in the router middleware.
// The first middleware in the list is the outermost.
func (router *Router) Handler() Handler {
	handler := func(ctx *RequestCtx) error {
		if err := router.dispatch(ctx); err != nil {
			ctx.Log().Warn("handler failed", "error", err)
			ctx.Response = ErrorResponse(err)
		}
		return nil
	}

	for i := len(router.Middleware) - 1; i >= 0; i-- {
		handler = router.Middleware[i](handler)
	}
	return handler
}

func (router *Router) dispatch(ctx *RequestCtx) error {
	key := ctx.Request.Segment(0)

	var allowed []string
	for _, route := range router.Routes {
		if route.Key != key {
			continue
		}
		ctx.Route = "/" + route.Key
		if len(route.Methods) == 0 || slices.Contains(route.Methods, ctx.Request.Method) {
			return route.Handler(ctx)
		}
		allowed = append(allowed, route.Methods...)
	}

	if len(allowed) > 0 {
		ctx.Response = NewResponse(StatusMethodNotAllowed).
			WithHeader(HeaderAllow, strings.Join(allowed, ", "))
		return nil
	}

	return NotFoundHandler(ctx)
}

var NotFoundHandler Handler = func(ctx *RequestCtx) error {
	ctx.Response = NewResponse(StatusNotFound)
	return nil
}

// ErrorResponse maps a handler error to an empty response. Errors without a
// StatusError in their chain become 500.
func ErrorResponse(err error) *Response {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return NewResponse(statusErr.Status)
	}
	return NewResponse(StatusInternalServerError)
}
