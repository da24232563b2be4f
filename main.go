package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/freekieb7/gravel-httpd/config"
	"github.com/freekieb7/gravel-httpd/filesystem"
	"github.com/freekieb7/gravel-httpd/http"
	"github.com/freekieb7/gravel-httpd/routes"
	"github.com/freekieb7/gravel-httpd/telemetry"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalln(err)
	}
}

func run(ctx context.Context, args []string) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(args, os.LookupEnv)
	if err != nil {
		return err
	}

	tel, err := telemetry.Setup(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, tel.Shutdown(shutdownCtx))
	}()
	logger := tel.Logger

	files, err := filesystem.NewLocalFileSystem(cfg.Directory)
	if err != nil {
		return err
	}

	pool, err := http.NewWorkerPool(cfg.Workers, cfg.QueueSize, logger)
	if err != nil {
		return err
	}

	server := http.NewServer(cfg.ServiceName, pool)
	server.Logger = logger
	server.MeterProvider = tel.MeterProvider
	server.ReadBufferSize = cfg.ReadBufferSize
	server.MaxRequestSize = cfg.MaxRequestSize
	server.ReadTimeout = cfg.ReadTimeout
	server.Router.Middleware = append(server.Router.Middleware,
		http.TelemetryMiddleware(tel.TracerProvider, tel.MeterProvider, tel.Propagator),
		http.CompressMiddleware(),
		http.RecoverMiddleware(),
	)
	routes.Register(&server.Router, files)

	logger.Info("serving files", "directory", files.Root())

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe(ctx, cfg.Addr)
	}()

	select {
	case err := <-serverErrCh:
		pool.Shutdown()
		return err
	case <-ctx.Done():
		stop()
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-serverErrCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
