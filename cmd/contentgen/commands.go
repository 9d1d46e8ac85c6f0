package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanman2024/content-image-generation-mcp/internal/airtable"
	"github.com/vanman2024/content-image-generation-mcp/internal/batch"
	"github.com/vanman2024/content-image-generation-mcp/internal/campaign"
	"github.com/vanman2024/content-image-generation-mcp/internal/keys"
	"github.com/vanman2024/content-image-generation-mcp/internal/ledger"
	"github.com/vanman2024/content-image-generation-mcp/internal/platform"
	"github.com/vanman2024/content-image-generation-mcp/internal/pricing"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

var ErrContentInvalid = errors.New("content does not fit every platform")

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newEstimateCmd(app *App) *cobra.Command {
	var (
		req    pricing.CostRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the cost of images, video seconds and content pieces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(app, req, asJSON)
		},
	}
	cmd.Flags().IntVar(&req.Images1K, "images-1k", 0, "number of 1K images")
	cmd.Flags().IntVar(&req.Images2K, "images-2k", 0, "number of 2K images")
	cmd.Flags().IntVar(&req.VideoSeconds, "video-seconds", 0, "total seconds of video")
	cmd.Flags().IntVar(&req.ContentPieces, "content-pieces", 0, "number of content pieces")
	cmd.Flags().IntVar(&req.AvgTokensPerPiece, "avg-tokens", 0, "average tokens per content piece (default 500)")
	cmd.Flags().StringVar(&req.ImageModel, "image-model", string(pricing.DefaultImageModel), "image model (imagen-3.0, imagen-4.0)")
	cmd.Flags().StringVar(&req.VideoModel, "video-model", string(pricing.DefaultVideoModel), "video model (veo2, veo3, veo3_fast)")
	cmd.Flags().StringVar(&req.TextModel, "text-model", string(pricing.DefaultTextModel), "text model (gemini_flash, claude_sonnet)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the breakdown as JSON")
	return cmd
}

func runEstimate(app *App, req pricing.CostRequest, asJSON bool) error {
	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}
	table, err := cfg.PricingTable()
	if err != nil {
		return err
	}
	b, err := pricing.NewEstimator(table).EstimateTotal(req)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(app.Out, b)
	}

	fmt.Fprintf(app.Out, "Images (%s)\n", b.ImageModel)
	fmt.Fprintf(app.Out, "  1K: %4d x $%.4f = $%.4f\n", b.Images1K.Quantity, b.Images1K.UnitPriceUSD, b.Images1K.SubtotalUSD)
	fmt.Fprintf(app.Out, "  2K: %4d x $%.4f = $%.4f\n", b.Images2K.Quantity, b.Images2K.UnitPriceUSD, b.Images2K.SubtotalUSD)
	fmt.Fprintf(app.Out, "Video (%s): %ds x $%.4f = $%.4f\n", b.VideoModel, b.Video.Quantity, b.Video.UnitPriceUSD, b.Video.SubtotalUSD)
	fmt.Fprintf(app.Out, "Text (%s): %d x %d tokens = $%.6f\n", b.TextModel, b.Text.Quantity, b.TokensPerPiece, b.Text.SubtotalUSD)
	for _, s := range b.Substitutions {
		fmt.Fprintf(app.Out, "Note: %s model %q is not priced, billed as %s\n", s.Kind, s.Requested, s.Used)
	}
	fmt.Fprintf(app.Out, "Total: $%.4f\n", b.TotalUSD)
	return nil
}

func newValidateCmd(app *App) *cobra.Command {
	var (
		platforms []string
		hashtags  []string
	)
	cmd := &cobra.Command{
		Use:   "validate [content]",
		Short: "Check a post against platform character and hashtag limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(app, platforms, args[0], hashtags)
		},
	}
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "platform id (repeatable)")
	cmd.Flags().StringSliceVarP(&hashtags, "hashtag", "t", nil, "hashtag (repeatable)")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

func runValidate(app *App, platforms []string, content string, hashtags []string) error {
	report := platform.DefaultTable().ValidateAll(platforms, content, hashtags)
	for _, item := range report.Results {
		if !item.Success {
			fmt.Fprintf(app.Out, "%-16s ERROR    %s\n", item.Platform, item.Error)
			continue
		}
		r := item.Result
		status := "OK"
		if !r.AllValid {
			status = "INVALID"
		}
		fmt.Fprintf(app.Out, "%-16s %-8s chars %d/%s, hashtags %d/%s\n",
			item.Platform, status, r.CharacterCount, limitText(r.CharacterLimit), r.HashtagCount, limitText(r.HashtagLimit))
	}
	if !report.AllValid {
		return ErrContentInvalid
	}
	return nil
}

func limitText(limit *int) string {
	if limit == nil {
		return "unlimited"
	}
	return fmt.Sprint(*limit)
}

func newCampaignCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Campaign templates and budgets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List campaign types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range campaign.Types() {
				fmt.Fprintln(app.Out, t)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [type]",
		Short: "Show platforms and guidelines for a campaign type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := campaign.ConfigFor(args[0], platform.DefaultTable())
			if err != nil {
				return err
			}
			return printJSON(app.Out, cfg)
		},
	})

	var posts, images, videos, videoSeconds int
	costCmd := &cobra.Command{
		Use:   "cost [type]",
		Short: "Budget a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := campaign.EstimateCost(args[0], posts, images, videos, videoSeconds)
			if err != nil {
				return err
			}
			return printJSON(app.Out, est)
		},
	}
	costCmd.Flags().IntVar(&posts, "posts", 0, "number of social posts")
	costCmd.Flags().IntVar(&images, "images", 0, "number of images")
	costCmd.Flags().IntVar(&videos, "videos", 0, "number of videos")
	costCmd.Flags().IntVar(&videoSeconds, "video-seconds", 0, "length of each video in seconds")
	cmd.AddCommand(costCmd)

	return cmd
}

func newCostsCmd(app *App) *cobra.Command {
	var (
		since  time.Duration
		recent int
	)
	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Show estimated spend recorded in the cost ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCosts(app, since, recent)
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only count calls newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&recent, "recent", 5, "number of recent calls to list")
	return cmd
}

func runCosts(app *App, since time.Duration, recent int) error {
	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}
	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	var total *ledger.Summary
	label := "Total cost"
	if since > 0 {
		total, err = store.Since(ctx, time.Now().Add(-since))
		label = fmt.Sprintf("Cost (last %s)", since)
	} else {
		total, err = store.Total(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s: $%.4f (%d calls)\n", label, total.TotalUSD, total.Entries)

	byKind, err := store.ByKind(ctx)
	if err != nil {
		return err
	}
	for _, k := range byKind {
		fmt.Fprintf(app.Out, "  %-6s $%.4f (%d units)\n", k.Kind, k.TotalUSD, k.Quantity)
	}

	if recent <= 0 {
		return nil
	}
	entries, err := store.Recent(ctx, recent)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		fmt.Fprintln(app.Out, "Recent:")
	}
	for _, e := range entries {
		fmt.Fprintf(app.Out, "  %s  %-32s %-18s $%.4f\n", e.CreatedAt.Format(time.DateTime), e.Tool, e.Model, e.CostUSD)
	}
	return nil
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys (google, anthropic, airtable)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [service] [key]",
		Short: "Store an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyService(app, args[0], func(store *keys.Store, svc keys.Service) error {
				if err := store.Set(svc, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Stored %s key in %s\n", svc, store.Path())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [service]",
		Short: "Show the key in use for a service, masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyService(app, args[0], func(store *keys.Store, svc keys.Service) error {
				key, source := keys.Resolve(store, svc, app.GetEnv)
				if key == "" {
					return fmt.Errorf("%w for %s: set %s or run 'contentgen keys set %s <key>'", keys.ErrKeyNotFound, svc, svc.EnvVar(), svc)
				}
				fmt.Fprintf(app.Out, "%s: %s (from %s)\n", svc, keys.MaskKey(key), source)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [service]",
		Short: "Remove a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyService(app, args[0], func(store *keys.Store, svc keys.Service) error {
				if err := store.Delete(svc); err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Deleted %s key\n", svc)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List services with a stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.NewKeyStore()
			if err != nil {
				return err
			}
			services, err := store.List()
			if err != nil {
				return err
			}
			if len(services) == 0 {
				fmt.Fprintln(app.Out, "No stored keys")
				return nil
			}
			for _, svc := range services {
				key, _ := store.Get(svc)
				fmt.Fprintf(app.Out, "%-10s %s\n", svc, keys.MaskKey(key))
			}
			return nil
		},
	})

	return cmd
}

func withKeyService(app *App, name string, fn func(*keys.Store, keys.Service) error) error {
	svc, err := keys.ParseService(name)
	if err != nil {
		return err
	}
	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	return fn(store, svc)
}

func newSyncAirtableCmd(app *App) *cobra.Command {
	var serverName, dir string
	cmd := &cobra.Command{
		Use:   "sync-airtable",
		Short: "Pull this server's record from the Airtable MCP registry",
		Long: `sync-airtable looks up the server in the "MCP Servers" table and writes
server-metadata.json, mcp-config.json, README-AIRTABLE.md and .env.example.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncAirtable(app, serverName, dir)
		},
	}
	cmd.Flags().StringVar(&serverName, "server-name", "", "server to look up (defaults to SERVER_NAME)")
	cmd.Flags().StringVar(&dir, "dir", "airtable-data", "output directory")
	return cmd
}

func runSyncAirtable(app *App, serverName, dir string) error {
	cfg, logger, err := setup(app)
	if err != nil {
		return err
	}
	token, _ := keys.Resolve(openKeyStore(app, logger), keys.Airtable, keyLookup(cfg))
	if token == "" {
		return airtable.ErrTokenRequired
	}
	lister, err := app.NewLister(token, cfg.Airtable.BaseID)
	if err != nil {
		return err
	}
	if serverName == "" {
		serverName = cfg.Airtable.ServerName
	}

	res, err := airtable.NewSyncer(lister, logger).Sync(context.Background(), serverName, dir)
	if err != nil {
		return err
	}
	if res.Match == airtable.MatchNone {
		fmt.Fprintf(app.Out, "Server %q not found in Airtable; wrote placeholder metadata\n", serverName)
	} else {
		fmt.Fprintf(app.Out, "Synced %q (%s match)\n", serverName, res.Match)
	}
	for _, f := range res.Files {
		fmt.Fprintf(app.Out, "  %s\n", f)
	}
	return nil
}

type batchFlags struct {
	model       string
	aspectRatio string
	size        string
	format      string
	delayMs     int
}

func newBatchCmd(app *App) *cobra.Command {
	var f batchFlags
	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Generate images for every prompt in a .txt or .json file",
		Long: `batch generates one image per prompt, one after another.

A .txt file holds one prompt per line; blank lines and lines starting with #
are skipped. A .json file holds an array of strings or of objects with
prompt, model_version, aspect_ratio, image_size and negative_prompt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(app, args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.model, "model", "m", models.DefaultImageModel, "default image model")
	cmd.Flags().StringVar(&f.aspectRatio, "aspect-ratio", "", "default aspect ratio")
	cmd.Flags().StringVarP(&f.size, "size", "s", "", "default image size (1K, 2K)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "png", "output format (png, jpeg, webp)")
	cmd.Flags().IntVar(&f.delayMs, "delay", 0, "milliseconds to wait between prompts")
	return cmd
}

func runBatch(app *App, path string, f batchFlags) error {
	format := models.OutputFormat(f.format)
	if !format.IsValid() {
		return fmt.Errorf("invalid format %q: must be one of %v", f.format, models.ValidFormats())
	}
	items, err := batch.ParseFile(path)
	if err != nil {
		return err
	}

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

	fmt.Fprintf(app.Out, "Processing %d prompts...\n", len(items))
	report := batch.NewProcessor(gen, app.Out, app.Err).Process(ctx, items, &batch.Options{
		ModelVersion: f.model,
		AspectRatio:  f.aspectRatio,
		ImageSize:    f.size,
		Format:       format,
		DelayMs:      f.delayMs,
	})
	batch.PrintSummary(app.Out, report)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d prompts failed", report.Failed, report.Total)
	}
	return nil
}
