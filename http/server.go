package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var ErrServerClosed = errors.New("http: server closed")

const rejectWriteTimeout = time.Second

// Server accepts connections and hands each one to the worker pool as a
// single job. Every connection carries exactly one request and one response.
type Server struct {
	Name           string
	Router         Router
	Pool           *WorkerPool
	Logger         *slog.Logger
	MeterProvider  metric.MeterProvider
	ReadBufferSize int
	MaxRequestSize int
	ReadTimeout    time.Duration

	once     sync.Once
	handler  Handler
	rejected metric.Int64Counter

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
	forced   atomic.Bool
	conns    *xsync.MapOf[string, net.Conn]
}

func NewServer(name string, pool *WorkerPool) *Server {
	return &Server{
		Name:           name,
		Router:         NewRouter(),
		Pool:           pool,
		Logger:         slog.Default(),
		MeterProvider:  otel.GetMeterProvider(),
		ReadBufferSize: DefaultReadBufferSize,
		MaxRequestSize: MaxRequestSize,
		conns:          xsync.NewMapOf[string, net.Conn](xsync.WithPresize(pool.Size())),
	}
}

func (s *Server) setup() {
	s.once.Do(func() {
		s.handler = s.Router.Handler()

		var err error
		s.rejected, err = s.MeterProvider.Meter(instrumentationName).Int64Counter("http.server.rejected_connections",
			metric.WithDescription("Connections refused before reaching a worker"),
			metric.WithUnit("{connection}"))
		if err != nil {
			otel.Handle(err)
		}
	})
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until Shutdown is called, which makes
// it return ErrServerClosed.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.setup()

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		listener.Close()
		return ErrServerClosed
	}
	s.listener = listener
	s.mu.Unlock()

	s.Logger.Info("listening", "server", s.Name, "addr", listener.Addr().String(), "workers", s.Pool.Size())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			s.Logger.Error("failed to accept connection", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := s.Pool.Execute(func() { s.ServeConn(ctx, conn) }); err != nil {
			s.reject(ctx, conn, err)
		}
	}
}

func (s *Server) reject(ctx context.Context, conn net.Conn, reason error) {
	defer conn.Close()

	s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason.Error())))
	s.Logger.Warn("rejecting connection", "remote", conn.RemoteAddr().String(), "error", reason)

	if errors.Is(reason, ErrPoolSaturated) {
		conn.SetWriteDeadline(time.Now().Add(rejectWriteTimeout))
		NewResponse(StatusServiceUnavailable).WriteTo(conn)
	}
}

// ServeConn reads one request from conn, answers it and closes conn. Every
// failure ends here: it is logged, answered when possible, and never
// propagated to the worker.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	s.setup()

	connID := uuid.NewString()
	logger := s.Logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())

	s.conns.Store(connID, conn)
	defer func() {
		s.conns.Delete(connID)
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("closing connection error", "error", err)
		}
	}()
	if s.forced.Load() {
		return
	}

	logger.Debug("accepted connection")

	if s.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
			logger.Warn("setting read deadline failed", "error", err)
		}
	}

	raw, err := ReadRequest(conn, s.ReadBufferSize, s.MaxRequestSize)
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestTooLarge):
			logger.Warn("request too large", "limit", s.MaxRequestSize)
			s.write(conn, NewResponse(StatusRequestEntityTooLarge), logger)
		case errors.Is(err, io.EOF):
			logger.Debug("connection closed before a request arrived")
		default:
			logger.Warn("reading request failed", "error", err)
		}
		return
	}

	req, err := ParseRequest(raw)
	if err != nil {
		logger.Warn("parsing request failed", "error", err)
		s.write(conn, NewResponse(StatusBadRequest), logger)
		return
	}

	reqCtx := &RequestCtx{
		Conn:    conn,
		ConnID:  connID,
		Logger:  logger.With("method", req.Method, "path", req.Path),
		Request: req,
		ctx:     ctx,
	}

	if err := s.handler(reqCtx); err != nil {
		reqCtx.Response = ErrorResponse(err)
	}
	if reqCtx.Response == nil {
		reqCtx.Logger.Error("handler produced no response")
		reqCtx.Response = NewResponse(StatusInternalServerError)
	}

	s.write(conn, reqCtx.Response, reqCtx.Logger)
	reqCtx.Logger.Info("served request", "status", reqCtx.Response.Status, "bytes", len(reqCtx.Response.Body))
}

func (s *Server) write(conn net.Conn, res *Response, logger *slog.Logger) {
	if _, err := res.WriteTo(conn); err != nil {
		logger.Warn("writing response failed", "error", err)
	}
}

// Shutdown stops accepting connections and waits for every queued and running
// job. When ctx expires first, open connections are closed and the remaining
// jobs finish without serving.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	var err error
	if listener != nil {
		if closeErr := listener.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = closeErr
		}
	}

	done := make(chan struct{})
	go func() {
		s.Pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
	}

	s.forced.Store(true)
	s.conns.Range(func(connID string, conn net.Conn) bool {
		s.Logger.Warn("closing stalled connection", "conn_id", connID)
		conn.Close()
		return true
	})
	<-done

	return errors.Join(err, ctx.Err())
}
