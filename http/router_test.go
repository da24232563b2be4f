package http

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx(t *testing.T, raw string) *RequestCtx {
	t.Helper()

	req, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	return &RequestCtx{Request: req, Logger: discardLogger()}
}

func textHandler(body string) Handler {
	return func(ctx *RequestCtx) error {
		ctx.Response = NewResponse(StatusOK).WithText(body)
		return nil
	}
}

func TestRouterDispatch(t *testing.T) {
	router := NewRouter()
	router.Handle("", textHandler("root"))
	router.Handle("echo", textHandler("echo"))
	router.GET("files", textHandler("get"))
	router.POST("files", textHandler("post"))

	tests := []struct {
		raw    string
		status uint16
		body   string
		allow  string
		route  string
	}{
		{"GET / HTTP/1.1\r\n\r\n", StatusOK, "root", "", "/"},
		{"DELETE /echo/x HTTP/1.1\r\n\r\n", StatusOK, "echo", "", "/echo"},
		{"GET /files/a HTTP/1.1\r\n\r\n", StatusOK, "get", "", "/files"},
		{"POST /files/a HTTP/1.1\r\n\r\n", StatusOK, "post", "", "/files"},
		{"PUT /files/a HTTP/1.1\r\n\r\n", StatusMethodNotAllowed, "", "GET, POST", "/files"},
		{"GET /nope HTTP/1.1\r\n\r\n", StatusNotFound, "", "", ""},
		{"GET /Echo/x HTTP/1.1\r\n\r\n", StatusNotFound, "", "", ""},
	}

	handler := router.Handler()
	for _, tc := range tests {
		ctx := newCtx(t, tc.raw)
		require.NoError(t, handler(ctx))

		assert.Equal(t, tc.status, ctx.Response.Status, tc.raw)
		assert.Equal(t, tc.body, string(ctx.Response.Body), tc.raw)
		assert.Equal(t, tc.route, ctx.Route, tc.raw)

		allow, found := ctx.Response.Headers.Get(HeaderAllow)
		assert.Equal(t, tc.allow != "", found, tc.raw)
		assert.Equal(t, tc.allow, allow, tc.raw)
	}
}

func TestRouterMapsHandlerErrors(t *testing.T) {
	router := NewRouter()
	router.Handle("bad", func(ctx *RequestCtx) error {
		return NewStatusError(StatusBadRequest, errors.New("nope"))
	})
	router.Handle("broken", func(ctx *RequestCtx) error {
		ctx.Response = NewResponse(StatusOK).WithText("partial")
		return errors.New("disk on fire")
	})

	handler := router.Handler()

	ctx := newCtx(t, "GET /bad HTTP/1.1\r\n\r\n")
	require.NoError(t, handler(ctx))
	assert.Equal(t, StatusBadRequest, ctx.Response.Status)
	assert.Empty(t, ctx.Response.Body)

	ctx = newCtx(t, "GET /broken HTTP/1.1\r\n\r\n")
	require.NoError(t, handler(ctx))
	assert.Equal(t, StatusInternalServerError, ctx.Response.Status)
	assert.Empty(t, ctx.Response.Headers)
	assert.Empty(t, ctx.Response.Body)
}

func TestRouterMiddlewareOrder(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx *RequestCtx) error {
				calls = append(calls, name+" in")
				err := next(ctx)
				calls = append(calls, name+" out")
				return err
			}
		}
	}

	router := NewRouter()
	router.Middleware = []Middleware{mark("outer"), mark("inner")}
	router.Handle("", func(ctx *RequestCtx) error {
		calls = append(calls, "handler")
		ctx.Response = NewResponse(StatusOK)
		return nil
	}, mark("route"))

	require.NoError(t, router.Handler()(newCtx(t, "GET / HTTP/1.1\r\n\r\n")))

	assert.Equal(t, []string{
		"outer in", "inner in", "route in", "handler", "route out", "inner out", "outer out",
	}, calls)
}

func TestStatusError(t *testing.T) {
	cause := errors.New("cause")
	err := NewStatusError(StatusBadRequest, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "http: 400 Bad Request: cause", err.Error())
	assert.Equal(t, "http: 404 Not Found", NewStatusError(StatusNotFound, nil).Error())
	assert.Equal(t, StatusNotFound, ErrorResponse(NewStatusError(StatusNotFound, nil)).Status)
}
