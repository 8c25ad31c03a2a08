// Command refdemo walks through the failure modes the arena catches at run
// time: use after free, handles that outlive their referent, aliasing
// writers, double free. It also round-trips an arena through a snapshot.
//
// Usage:
//
//	refdemo [demo]
//
// Configuration is read from the environment (and a .env file, if present):
//
//	REFDEMO_DEMO           demo to run, or "all" (default)
//	REFDEMO_LOG_LEVEL      debug, info, warn, error (default info)
//	REFDEMO_LOG_FORMAT     text or json (default text)
//	REFDEMO_SNAPSHOT_DIR   directory for the snapshot demo (default: temp dir)
//	REFDEMO_COMPRESSION    none, lz4, zstd (default lz4)
//	REFDEMO_MEMORY_LIMIT   arena memory budget in bytes (default 0, unlimited)
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/hupe1980/genarena"
)

// Config holds the demo settings.
type Config struct {
	Demo        string `env:"REFDEMO_DEMO" envDefault:"all"`
	LogLevel    string `env:"REFDEMO_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"REFDEMO_LOG_FORMAT" envDefault:"text"`
	SnapshotDir string `env:"REFDEMO_SNAPSHOT_DIR"`
	Compression string `env:"REFDEMO_COMPRESSION" envDefault:"lz4"`
	MemoryLimit int64  `env:"REFDEMO_MEMORY_LIMIT" envDefault:"0"`
}

func loadConfig() (Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()
	return env.ParseAs[Config]()
}

func newLogger(cfg Config, w io.Writer) (*genarena.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.LogFormat {
	case "text":
		return genarena.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return genarena.NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if len(os.Args) > 1 {
		cfg.Demo = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "refdemo:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	logger, err := newLogger(cfg, out)
	if err != nil {
		return err
	}

	names := []string{cfg.Demo}
	if cfg.Demo == "all" {
		names = demoNames()
	}

	for _, name := range names {
		fn, ok := demos[name]
		if !ok {
			return fmt.Errorf("unknown demo %q (available: %s)", name, strings.Join(demoNames(), ", "))
		}
		d := &demo{cfg: cfg, log: logger.With("demo", name)}
		d.log.Info("running")
		if err := fn(ctx, d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
