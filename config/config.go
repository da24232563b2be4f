package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/freekieb7/gravel-httpd/validation"
)

const (
	DefaultAddr            = "127.0.0.1:4221"
	DefaultWorkers         = 5
	DefaultShutdownTimeout = 10 * time.Second
	DefaultServiceName     = "gravel-httpd"

	DefaultQueueSize      = 1024
	DefaultReadBufferSize = 1024
	DefaultMaxRequestSize = 2 * 1024 * 1024 // 2MB
)

// Config is built once at startup and only read afterwards.
type Config struct {
	Addr            string
	Directory       string
	Workers         int
	QueueSize       int
	ReadBufferSize  int
	MaxRequestSize  int
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	ServiceName  string
	OTLPEndpoint string
}

func Default() Config {
	return Config{
		Addr:            DefaultAddr,
		Directory:       os.TempDir(),
		Workers:         DefaultWorkers,
		QueueSize:       DefaultQueueSize,
		ReadBufferSize:  DefaultReadBufferSize,
		MaxRequestSize:  DefaultMaxRequestSize,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
		ServiceName:     DefaultServiceName,
	}
}

// Load reads configuration from environment variables first and lets args
// override them. args excludes the program name.
func Load(args []string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if err := fromEnv(&cfg, lookupEnv); err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet("gravel-httpd", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "TCP address to listen on")
	fs.StringVar(&cfg.Directory, "directory", cfg.Directory, "directory served by the files route")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of connection workers")
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "pending connections before new ones are refused")
	fs.IntVar(&cfg.ReadBufferSize, "read-buffer", cfg.ReadBufferSize, "size of a single socket read in bytes")
	fs.IntVar(&cfg.MaxRequestSize, "max-request", cfg.MaxRequestSize, "largest accepted request in bytes")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "read deadline per connection, 0 disables it")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "grace period for in-flight connections")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.ServiceName, "service-name", cfg.ServiceName, "service name reported to telemetry")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func fromEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	strs := map[string]*string{
		"GRAVEL_ADDR":                 &cfg.Addr,
		"GRAVEL_DIRECTORY":            &cfg.Directory,
		"GRAVEL_LOG_LEVEL":            &cfg.LogLevel,
		"OTEL_SERVICE_NAME":           &cfg.ServiceName,
		"OTEL_EXPORTER_OTLP_ENDPOINT": &cfg.OTLPEndpoint,
	}
	for key, dst := range strs {
		if v, ok := lookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GRAVEL_WORKERS":     &cfg.Workers,
		"GRAVEL_QUEUE_SIZE":  &cfg.QueueSize,
		"GRAVEL_READ_BUFFER": &cfg.ReadBufferSize,
		"GRAVEL_MAX_REQUEST": &cfg.MaxRequestSize,
	}
	for key, dst := range ints {
		v, ok := lookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"GRAVEL_READ_TIMEOUT":     &cfg.ReadTimeout,
		"GRAVEL_SHUTDOWN_TIMEOUT": &cfg.ShutdownTimeout,
	}
	for key, dst := range durations {
		v, ok := lookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
	}

	return nil
}

func (cfg Config) Validate() error {
	violations := validation.ValidateMap(
		map[string]any{
			"addr":             cfg.Addr,
			"directory":        cfg.Directory,
			"workers":          cfg.Workers,
			"queue-size":       cfg.QueueSize,
			"read-buffer":      cfg.ReadBufferSize,
			"max-request":      cfg.MaxRequestSize,
			"read-timeout":     cfg.ReadTimeout,
			"shutdown-timeout": cfg.ShutdownTimeout,
			"log-level":        cfg.LogLevel,
		},
		map[string][]string{
			"addr":             {"required"},
			"directory":        {"required", "dir"},
			"workers":          {"min:1"},
			"queue-size":       {"min:1"},
			"read-buffer":      {"min:1"},
			"max-request":      {"min:" + strconv.Itoa(cfg.ReadBufferSize)},
			"read-timeout":     {"min:0"},
			"shutdown-timeout": {"min:0"},
			"log-level":        {"oneof:debug|info|warn|error"},
		},
	)
	if err := violations.Err(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (cfg Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// TelemetryEnabled reports whether an OTLP collector was configured.
func (cfg Config) TelemetryEnabled() bool {
	return cfg.OTLPEndpoint != ""
}
