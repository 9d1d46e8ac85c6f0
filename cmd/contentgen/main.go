package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanman2024/content-image-generation-mcp/internal/airtable"
	"github.com/vanman2024/content-image-generation-mcp/internal/asset"
	"github.com/vanman2024/content-image-generation-mcp/internal/config"
	"github.com/vanman2024/content-image-generation-mcp/internal/generate"
	"github.com/vanman2024/content-image-generation-mcp/internal/keys"
	"github.com/vanman2024/content-image-generation-mcp/internal/ledger"
	"github.com/vanman2024/content-image-generation-mcp/internal/logging"
	"github.com/vanman2024/content-image-generation-mcp/internal/pricing"
	"github.com/vanman2024/content-image-generation-mcp/internal/provider"
	"github.com/vanman2024/content-image-generation-mcp/internal/provider/anyllm"
	"github.com/vanman2024/content-image-generation-mcp/internal/provider/google"
	"github.com/vanman2024/content-image-generation-mcp/internal/server"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig  string
	flagEnvFile string
)

// MediaGenerator is what the Google provider offers: images and video.
type MediaGenerator interface {
	provider.ImageGenerator
	provider.VideoGenerator
}

type App struct {
	Out               io.Writer
	Err               io.Writer
	Registry          *models.ModelRegistry
	GetEnv            func(string) string
	NewLogger         func(level, format string) (*slog.Logger, error)
	NewKeyStore       func() (*keys.Store, error)
	NewMediaGenerator func(ctx context.Context, cfg *provider.Config, registry *models.ModelRegistry, logger *slog.Logger) (MediaGenerator, error)
	NewTextGenerator  func(cfg anyllm.Config, registry *models.ModelRegistry, logger *slog.Logger) (provider.TextGenerator, error)
	NewLister         func(token, baseID string) (airtable.Lister, error)
}

func DefaultApp() *App {
	return &App{
		Out:         os.Stdout,
		Err:         os.Stderr,
		Registry:    models.DefaultRegistry(),
		GetEnv:      os.Getenv,
		NewLogger:   logging.Setup,
		NewKeyStore: keys.NewStore,
		NewMediaGenerator: func(ctx context.Context, cfg *provider.Config, registry *models.ModelRegistry, logger *slog.Logger) (MediaGenerator, error) {
			p, err := google.New(ctx, cfg, registry, logger)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		NewTextGenerator: func(cfg anyllm.Config, registry *models.ModelRegistry, logger *slog.Logger) (provider.TextGenerator, error) {
			p, err := anyllm.New(cfg, registry, logger)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		NewLister: func(token, baseID string) (airtable.Lister, error) {
			c, err := airtable.NewClient(token, baseID)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contentgen",
		Short: "Content and image generation MCP server with cost estimation",
		Long: `contentgen serves marketing content generation tools over the Model Context Protocol.

Tools cover Imagen images, Veo video and Claude/Gemini copy, plus cost
estimation, platform content validation and campaign planning.

Examples:
  contentgen serve
  contentgen serve --http --addr :8000
  contentgen estimate --images-1k 10 --video-seconds 16 --content-pieces 20
  contentgen validate --platform x --platform linkedin --hashtag launch "New release is out"
  contentgen batch prompts.txt`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newEstimateCmd(app))
	cmd.AddCommand(newValidateCmd(app))
	cmd.AddCommand(newCampaignCmd(app))
	cmd.AddCommand(newCostsCmd(app))
	cmd.AddCommand(newKeysCmd(app))
	cmd.AddCommand(newSyncAirtableCmd(app))
	cmd.AddCommand(newBatchCmd(app))
	return cmd
}

func loadConfig(app *App) (*config.Config, error) {
	if err := config.LoadDotEnv(flagEnvFile); err != nil {
		return nil, err
	}
	return config.Load(flagConfig, app.GetEnv)
}

// setup loads the configuration and installs the logger.
func setup(app *App) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(app)
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// keyLookup exposes the configured provider keys under their environment
// variable names so keys.Resolve can fall back to them.
func keyLookup(cfg *config.Config) func(string) string {
	values := map[string]string{
		keys.Google.EnvVar():    cfg.Google.APIKey,
		keys.Anthropic.EnvVar(): cfg.Anthropic.APIKey,
		keys.Airtable.EnvVar():  cfg.Airtable.Token,
	}
	return func(name string) string { return values[name] }
}

func openKeyStore(app *App, logger *slog.Logger) *keys.Store {
	store, err := app.NewKeyStore()
	if err != nil {
		logger.Warn("key store unavailable, using environment only", "error", err)
		return nil
	}
	return store
}

func openLedger(cfg *config.Config) (*ledger.Store, error) {
	path := cfg.LedgerPath
	if path == "" {
		p, err := ledger.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return ledger.NewStore(path)
}

// buildService wires providers, asset storage, pricing and the ledger. Missing
// API keys are not fatal: the affected tools report the problem per call.
// The returned ledger may be nil and must be closed by the caller otherwise.
func buildService(ctx context.Context, app *App, cfg *config.Config, logger *slog.Logger) (*generate.Service, *ledger.Store, error) {
	store := openKeyStore(app, logger)
	lookup := keyLookup(cfg)
	factory := provider.NewFactory(app.Registry)

	googleKey, googleSource := keys.Resolve(store, keys.Google, lookup)
	if googleKey != "" {
		media, err := app.NewMediaGenerator(ctx, &provider.Config{APIKey: googleKey, TimeoutSec: cfg.Google.VideoTimeoutSec}, app.Registry, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create google provider: %w", err)
		}
		factory.SetImageGenerator(media)
		factory.SetVideoGenerator(media)
		logger.Info("google provider configured", "source", googleSource)
	} else {
		logger.Warn("GOOGLE_API_KEY not configured; image and video tools will report an error")
	}

	anthropicKey, _ := keys.Resolve(store, keys.Anthropic, lookup)
	if googleKey != "" || anthropicKey != "" {
		text, err := app.NewTextGenerator(anyllm.Config{AnthropicAPIKey: anthropicKey, GoogleAPIKey: googleKey}, app.Registry, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create text provider: %w", err)
		}
		factory.SetTextGenerator(text)
	}
	logger.Debug("capabilities", "available", factory.Available())

	var uploader asset.Uploader
	if cfg.S3.Bucket != "" {
		u, err := asset.NewS3Uploader(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger)
		if err != nil {
			return nil, nil, err
		}
		uploader = u
		logger.Info("mirroring assets to s3", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix)
	}
	saver, err := asset.NewSaver(cfg.OutputDir, uploader, logger)
	if err != nil {
		return nil, nil, err
	}

	table, err := cfg.PricingTable()
	if err != nil {
		return nil, nil, err
	}

	var recorder generate.Recorder
	led, err := openLedger(cfg)
	if err != nil {
		logger.Warn("cost ledger disabled", "error", err)
		led = nil
	} else {
		recorder = led
	}

	return generate.NewService(factory, saver, pricing.NewEstimator(table), recorder, logger), led, nil
}

func newServeCmd(app *App) *cobra.Command {
	var (
		useHTTP bool
		addr    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(app, useHTTP, addr)
		},
	}
	cmd.Flags().BoolVar(&useHTTP, "http", false, "serve streamable HTTP instead of stdio")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (defaults to http_addr from config)")
	return cmd
}

func runServe(app *App, useHTTP bool, addr string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := setup(app)
	if err != nil {
		return err
	}
	gen, led, err := buildService(ctx, app, cfg, logger)
	if err != nil {
		return err
	}
	if led != nil {
		defer led.Close()
	}

	srv := server.New(server.Options{
		Name:      cfg.ServerName,
		Version:   version,
		Generator: gen,
		Ledger:    led,
		Logger:    logger,
	})
	if !useHTTP {
		return srv.Run(ctx)
	}
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	return srv.ListenAndServe(ctx, addr)
}
