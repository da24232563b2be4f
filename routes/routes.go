package routes

import (
	"errors"

	"github.com/freekieb7/gravel-httpd/filesystem"
	"github.com/freekieb7/gravel-httpd/http"
)

var (
	ErrEchoLoop       = errors.New("routes: echo of echo")
	ErrMissingSegment = errors.New("routes: missing path segment")
)

const (
	greeting         = "Hello, World!"
	unknownUserAgent = "unknown"
)

// Register binds the built-in routes. files serves the files route and is
// never replaced after startup.
func Register(router *http.Router, files filesystem.Filesystem) {
	router.Handle("", Root)
	router.Handle("user-agent", UserAgent)
	router.Handle("echo", Echo)
	router.GET("files", ReadFile(files))
	router.POST("files", WriteFile(files))
}

func Root(ctx *http.RequestCtx) error {
	ctx.Response = http.NewResponse(http.StatusOK)
	ctx.Response.Body = []byte(greeting)
	return nil
}

func UserAgent(ctx *http.RequestCtx) error {
	userAgent, found := ctx.Request.HeaderValue(http.HeaderUserAgent)
	if !found {
		userAgent = unknownUserAgent
	}

	ctx.Response = http.NewResponse(http.StatusOK).WithText(userAgent)
	return nil
}

func Echo(ctx *http.RequestCtx) error {
	msg := ctx.Request.Segment(1)
	switch msg {
	case "":
		return http.NewStatusError(http.StatusBadRequest, ErrMissingSegment)
	case "echo":
		return http.NewStatusError(http.StatusBadRequest, ErrEchoLoop)
	}

	ctx.Response = http.NewResponse(http.StatusOK).WithText(msg)
	return nil
}

// ReadFile serves the file named by the last path segment. Every failure is
// answered with 404.
func ReadFile(files filesystem.Filesystem) http.Handler {
	return func(ctx *http.RequestCtx) error {
		name, ok := fileName(ctx.Request)
		if !ok {
			ctx.Response = http.NewResponse(http.StatusNotFound)
			return nil
		}

		content, err := files.ReadFile(name)
		if err != nil {
			ctx.Log().Debug("serving file failed", "file", name, "error", err)
			ctx.Response = http.NewResponse(http.StatusNotFound)
			return nil
		}

		ctx.Log().Debug("serving file", "file", name, "size", len(content))
		ctx.Response = http.NewResponse(http.StatusOK).WithBody("application/octet-stream", content)
		return nil
	}
}

// WriteFile stores the request body under the last path segment.
func WriteFile(files filesystem.Filesystem) http.Handler {
	return func(ctx *http.RequestCtx) error {
		name, ok := fileName(ctx.Request)
		if !ok {
			return http.NewStatusError(http.StatusBadRequest, ErrMissingSegment)
		}

		if err := files.WriteFile(name, ctx.Request.Body); err != nil {
			if errors.Is(err, filesystem.ErrInvalidPath) {
				return http.NewStatusError(http.StatusBadRequest, err)
			}
			return http.NewStatusError(http.StatusInternalServerError, err)
		}

		ctx.Log().Debug("wrote file", "file", name, "size", len(ctx.Request.Body))
		ctx.Response = http.NewResponse(http.StatusCreated)
		return nil
	}
}

// fileName is the last path segment, provided there is one after "files".
func fileName(req *http.Request) (string, bool) {
	if len(req.Segments) < 2 {
		return "", false
	}
	return req.Segments[len(req.Segments)-1], true
}
