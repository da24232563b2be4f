package http

import (
	"runtime/debug"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/gravel-httpd/http"

type Middleware func(next Handler) Handler

// RecoverMiddleware turns a panicking handler into a 500 response.
func RecoverMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx *RequestCtx) (err error) {
			defer func() {
				if r := recover(); r != nil {
					ctx.Log().Error("handler panicked", "panic", r, "stack", string(debug.Stack()))

					ctx.Response = NewResponse(StatusInternalServerError)
					err = nil
				}
			}()

			return next(ctx)
		}
	}
}

// CompressMiddleware applies content-encoding negotiation to the response
// produced by next.
func CompressMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx *RequestCtx) error {
			if err := next(ctx); err != nil {
				return err
			}
			if ctx.Response == nil {
				return nil
			}

			if err := Negotiate(ctx.Request, ctx.Response); err != nil {
				ctx.Log().Error("content encoding failed", "error", err)
				ctx.Response = NewResponse(StatusInternalServerError)
			}
			return nil
		}
	}
}

// TelemetryMiddleware records a server span and request metrics. The span's
// parent is taken from the request headers through propagator.
func TelemetryMiddleware(tp trace.TracerProvider, mp metric.MeterProvider, propagator propagation.TextMapPropagator) Middleware {
	tracer := tp.Tracer(instrumentationName)
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of handled requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		otel.Handle(err)
	}
	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of request handling"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}

	return func(next Handler) Handler {
		return func(ctx *RequestCtx) error {
			start := time.Now()

			method := methodLabel(ctx.Request.Method)
			parent := propagator.Extract(ctx.Context(), HeaderCarrier{Headers: &ctx.Request.Headers})
			spanCtx, span := tracer.Start(parent, method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", method),
					attribute.String("url.path", ctx.Request.Path),
				))
			defer span.End()

			ctx.SetContext(spanCtx)
			err := next(ctx)

			route := ctx.Route
			if route == "" {
				route = unmatchedRoute
			} else {
				span.SetName(method + " " + route)
			}

			var status uint16
			if ctx.Response != nil {
				status = ctx.Response.Status
			}
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", int(status)),
			)
			if status >= 500 {
				span.SetStatus(codes.Error, StatusText(status))
			}

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", method),
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", int(status)),
			)
			requests.Add(spanCtx, 1, attrs)
			duration.Record(spanCtx, time.Since(start).Seconds(), attrs)

			return err
		}
	}
}

const (
	unmatchedRoute = "unmatched"
	otherMethod    = "_OTHER"
)

var knownMethods = []string{"CONNECT", "DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT", "TRACE"}

// methodLabel folds methods outside the registered HTTP set into one value.
func methodLabel(method string) string {
	if slices.Contains(knownMethods, method) {
		return method
	}
	return otherMethod
}

// HeaderCarrier adapts Headers to propagation.TextMapCarrier.
type HeaderCarrier struct {
	Headers *Headers
}

func (c HeaderCarrier) Get(key string) string {
	v, _ := c.Headers.Get(key)
	return v
}

func (c HeaderCarrier) Set(key, value string) {
	c.Headers.Set(key, value)
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.Headers))
	for _, h := range *c.Headers {
		keys = append(keys, h.Name)
	}
	return keys
}
