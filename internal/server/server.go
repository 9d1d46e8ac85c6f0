// Package server exposes generation, pricing and platform validation as MCP
// tools, resources and prompts over stdio or streamable HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vanman2024/content-image-generation-mcp/internal/batch"
	"github.com/vanman2024/content-image-generation-mcp/internal/generate"
	"github.com/vanman2024/content-image-generation-mcp/internal/ledger"
	"github.com/vanman2024/content-image-generation-mcp/internal/metrics"
	"github.com/vanman2024/content-image-generation-mcp/internal/platform"
	"github.com/vanman2024/content-image-generation-mcp/internal/pricing"
)

const (
	DefaultName     = "Content & Image Generation"
	shutdownTimeout = 30 * time.Second
)

var ErrLedgerDisabled = errors.New("cost ledger is not configured")

type Options struct {
	Name      string
	Version   string
	Generator *generate.Service
	Platforms *platform.Table
	// Ledger backs get_cost_summary. Nil disables the tool's data, not the tool.
	Ledger *ledger.Store
	Logger *slog.Logger
}

type Server struct {
	mcp       *mcp.Server
	gen       *generate.Service
	batch     *batch.Processor
	estimator *pricing.Estimator
	platforms *platform.Table
	ledger    *ledger.Store
	now       func() time.Time
	logger    *slog.Logger
}

func New(opts Options) *Server {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Platforms == nil {
		opts.Platforms = platform.DefaultTable()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		mcp:       mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
		gen:       opts.Generator,
		batch:     batch.NewProcessor(opts.Generator, nil, nil),
		estimator: opts.Generator.Estimator(),
		platforms: opts.Platforms,
		ledger:    opts.Ledger,
		now:       time.Now,
		logger:    opts.Logger.With("component", "mcp"),
	}
	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// MCP returns the underlying SDK server, for in-process transports.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Run serves one client over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Handler routes /mcp to the streamable HTTP transport next to /metrics and
// /health.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("10M"))

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	e.Any("/mcp", echo.WrapHandler(streamable))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return e
}

// ListenAndServe serves Handler on addr and shuts down gracefully when ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// reply sends v as both the text content and the structured content of the
// tool result.
func reply(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, v, nil
}

func (s *Server) observe(tool string, err error) {
	metrics.ObserveTool(tool, err == nil)
	if err != nil {
		s.logger.Warn("tool failed", "tool", tool, "error", err)
		return
	}
	s.logger.Debug("tool succeeded", "tool", tool)
}
