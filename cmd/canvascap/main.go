// CLAUDE:SUMMARY CLI entry point for canvascap: single capture, configured capture, HTTP API and MCP stdio modes.
// Command canvascap captures a pannable web canvas as one stitched PNG.
//
// Usage:
//
//	canvascap -url https://example.com/board -scale 150 -out ./shots
//	canvascap -config canvascap.yaml                 # capture configured url to configured sinks
//	canvascap -config canvascap.yaml -serve :8080    # HTTP API
//	canvascap -config canvascap.yaml -mcp            # MCP over stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/tilecap/canvascap"
)

type options struct {
	configPath string
	url        string
	scale      int
	outDir     string
	serveAddr  string
	mcp        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to canvascap.yaml config file")
	flag.StringVar(&opts.url, "url", "", "page to capture (overrides capture.url)")
	flag.IntVar(&opts.scale, "scale", 0, "zoom percentage, snapped up to a supported level")
	flag.StringVar(&opts.outDir, "out", "", "write <id>.png and <id>.json into this directory")
	flag.StringVar(&opts.serveAddr, "serve", "", "serve the HTTP API on this address")
	flag.BoolVar(&opts.mcp, "mcp", false, "serve MCP tools over stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts); err != nil {
		logger.Error("canvascap: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	if opts.configPath == "" && opts.url == "" {
		fmt.Fprintln(os.Stderr, "usage: canvascap -url <url> [-scale N] [-out dir] | -config <file> [-serve addr | -mcp]")
		os.Exit(2)
	}

	cfg := canvascap.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = canvascap.LoadConfigFile(opts.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if opts.url != "" {
		cfg.Capture.URL = opts.url
	}
	if opts.scale > 0 {
		cfg.Capture.Scale = opts.scale
	}
	if opts.serveAddr != "" {
		cfg.Serve.Addr = opts.serveAddr
	}

	sinks, err := canvascap.OpenSinks(cfg.Sinks, logger)
	if err != nil {
		return err
	}
	if opts.outDir != "" {
		sinks = append(sinks, canvascap.NewFileSink(opts.outDir))
	}
	// The MCP transport owns stdout.
	if len(sinks) == 0 && !opts.mcp && cfg.Serve.Addr == "" {
		sinks = append(sinks, canvascap.NewStdoutSink(nil, false))
	}

	c, err := canvascap.New(cfg, logger, sinks...)
	if err != nil {
		return err
	}
	defer c.Stop()

	c.OnProgress(func(p canvascap.Progress) {
		if p.Done == p.Total {
			logger.Info("canvascap: grid complete", "tiles", p.Total)
		}
	})

	if err := c.Start(ctx); err != nil {
		return err
	}

	switch {
	case opts.mcp:
		return runMCP(ctx, c, logger)
	case cfg.Serve.Addr != "":
		return runServe(ctx, c, logger, cfg.Serve)
	default:
		img, err := c.Capture(ctx, canvascap.Request{URL: cfg.Capture.URL, Scale: cfg.Capture.Scale})
		if err != nil {
			return err
		}
		logger.Info("canvascap: done", "id", img.ID, "width", img.Width, "height", img.Height,
			"tiles", img.Tiles, "exhausted", img.Exhausted)
		return nil
	}
}

func runMCP(ctx context.Context, c *canvascap.Capturer, logger *slog.Logger) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "canvascap",
		Version: "1.0.0",
	}, nil)
	canvascap.RegisterMCP(srv, c, logger)

	logger.Info("canvascap: mcp serving on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, c *canvascap.Capturer, logger *slog.Logger, cfg canvascap.ServeConfig) error {
	addr := cfg.Addr
	handler := canvascap.Handler(c, logger,
		canvascap.WithMaxBody(cfg.MaxBody),
		canvascap.WithCaptureRateLimit(cfg.RateLimit, cfg.RateWindow),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Minute, // large canvases take minutes
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("canvascap: http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("canvascap: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
