// Package generate runs one generation call end to end: the provider call,
// saving the output, pricing it and recording the spend.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vanman2024/content-image-generation-mcp/internal/asset"
	"github.com/vanman2024/content-image-generation-mcp/internal/ledger"
	"github.com/vanman2024/content-image-generation-mcp/internal/metrics"
	"github.com/vanman2024/content-image-generation-mcp/internal/pricing"
	"github.com/vanman2024/content-image-generation-mcp/internal/provider"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

const (
	imageNote = "Images include SynthID watermarking"
	videoNote = "Video includes SynthID watermarking and audio generation"
)

// Recorder persists billed calls. *ledger.Store satisfies it.
type Recorder interface {
	Log(ctx context.Context, e *ledger.Entry) error
}

type Service struct {
	factory   *provider.Factory
	saver     *asset.Saver
	estimator *pricing.Estimator
	recorder  Recorder
	now       func() time.Time
	logger    *slog.Logger
}

// NewService wires the pipeline. recorder may be nil to skip the ledger.
func NewService(factory *provider.Factory, saver *asset.Saver, estimator *pricing.Estimator, recorder Recorder, logger *slog.Logger) *Service {
	if estimator == nil {
		estimator = pricing.NewEstimator(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		factory:   factory,
		saver:     saver,
		estimator: estimator,
		recorder:  recorder,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *Service) Estimator() *pricing.Estimator {
	return s.estimator
}

func (s *Service) Registry() *models.ModelRegistry {
	return s.factory.Registry()
}

type ImageResult struct {
	Images           []asset.Saved          `json:"images"`
	Model            string                 `json:"model"`
	ModelVersion     string                 `json:"model_version"`
	Prompt           string                 `json:"prompt"`
	AspectRatio      string                 `json:"aspect_ratio"`
	ImageSize        string                 `json:"image_size"`
	NumberOfImages   int                    `json:"number_of_images"`
	EstimatedCostUSD float64                `json:"estimated_cost_usd"`
	Substitutions    []pricing.Substitution `json:"substitutions,omitempty"`
	Timestamp        string                 `json:"timestamp"`
	Note             string                 `json:"note"`
}

type VideoResult struct {
	asset.Saved
	Model            string  `json:"model"`
	Prompt           string  `json:"prompt"`
	DurationSeconds  int     `json:"duration_seconds"`
	Resolution       string  `json:"resolution"`
	AspectRatio      string  `json:"aspect_ratio"`
	FPS              int     `json:"fps"`
	HasAudio         bool    `json:"has_audio"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	Timestamp        string  `json:"timestamp"`
	Note             string  `json:"note"`
}

type TextResult struct {
	Content          string  `json:"content"`
	ContentType      string  `json:"content_type"`
	Topic            string  `json:"topic"`
	Tone             string  `json:"tone"`
	Length           string  `json:"length"`
	ModelUsed        string  `json:"model_used"`
	TokensUsed       int     `json:"tokens_used"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	Timestamp        string  `json:"timestamp"`
}

// Images generates, saves and prices req. The provider may rewrite the model,
// count and size on req; the result reports what was actually billed.
func (s *Service) Images(ctx context.Context, tool string, req *models.ImageRequest) (*ImageResult, error) {
	gen, err := s.factory.Images()
	if err != nil {
		return nil, err
	}
	if !req.Format.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidFormat, req.Format)
	}

	resp, err := gen.GenerateImages(ctx, req)
	if err != nil {
		return nil, err
	}

	ts := s.saver.Timestamp()
	saved, err := s.saver.SaveImages(ctx, resp, req.ModelVersion, req.Format, ts)
	if err != nil {
		return nil, err
	}

	size := resp.ImageSize
	if size == "" {
		size = req.ImageSize
	}
	costReq := pricing.CostRequest{ImageModel: req.ModelVersion}
	if res, _ := pricing.ParseResolution(size); res == pricing.Res2K {
		costReq.Images2K = len(saved)
	} else {
		costReq.Images1K = len(saved)
	}
	breakdown, err := s.estimator.EstimateTotal(costReq)
	if err != nil {
		return nil, err
	}

	cost := pricing.RoundUSD(breakdown.ImageTotalUSD, pricing.LinePlaces)
	s.record(ctx, tool, pricing.KindImage, req.ModelVersion, len(saved), cost)

	return &ImageResult{
		Images:           saved,
		Model:            resp.APIModel,
		ModelVersion:     req.ModelVersion,
		Prompt:           req.Prompt,
		AspectRatio:      req.AspectRatio,
		ImageSize:        size,
		NumberOfImages:   len(saved),
		EstimatedCostUSD: cost,
		Substitutions:    breakdown.Substitutions,
		Timestamp:        ts,
		Note:             imageNote,
	}, nil
}

// Video generates and saves one clip, billed per second of the final
// duration.
func (s *Service) Video(ctx context.Context, tool string, req *models.VideoRequest) (*VideoResult, error) {
	gen, err := s.factory.Video()
	if err != nil {
		return nil, err
	}

	resp, err := gen.GenerateVideo(ctx, req)
	if err != nil {
		return nil, err
	}

	ts := s.saver.Timestamp()
	saved, err := s.saver.SaveVideo(ctx, resp, ts)
	if err != nil {
		return nil, err
	}

	result := &VideoResult{
		Saved:           saved,
		Model:           resp.APIModel,
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
		Resolution:      req.Resolution,
		AspectRatio:     req.AspectRatio,
		Timestamp:       ts,
		Note:            videoNote,
	}

	tier := string(pricing.DefaultVideoModel)
	if m, ok := s.Registry().GetVideo(req.Model); ok {
		result.FPS = m.FPS
		result.HasAudio = m.HasAudio
		if m.PriceTier != "" {
			tier = m.PriceTier
		}
	}

	breakdown, err := s.estimator.EstimateTotal(pricing.CostRequest{
		VideoSeconds: req.DurationSeconds,
		VideoModel:   tier,
	})
	if err != nil {
		return nil, err
	}
	result.EstimatedCostUSD = pricing.RoundUSD(breakdown.Video.SubtotalUSD, pricing.SummaryPlaces)
	s.record(ctx, tool, pricing.KindVideo, req.Model, req.DurationSeconds, breakdown.Video.SubtotalUSD)

	return result, nil
}

// Text writes marketing copy and prices the tokens the model reported.
func (s *Service) Text(ctx context.Context, tool string, req *models.TextRequest) (*TextResult, error) {
	gen, err := s.factory.Text()
	if err != nil {
		return nil, err
	}

	resp, err := gen.GenerateText(ctx, req)
	if err != nil {
		return nil, err
	}

	tier := pricing.Tier(resp.PriceTier)
	if tm, ok := pricing.ParseTextModel(resp.PriceTier); ok {
		tier = pricing.Tier(tm)
	}
	cost, err := s.estimator.TokensCost(resp.TokensUsed, tier)
	if err != nil {
		s.logger.Warn("text tier not priced, using default", "tier", tier, "error", err)
		cost, err = s.estimator.TokensCost(resp.TokensUsed, pricing.Tier(pricing.DefaultTextModel))
		if err != nil {
			return nil, err
		}
	}
	cost = pricing.RoundUSD(cost, pricing.TextPlaces)
	s.record(ctx, tool, pricing.KindText, resp.ModelUsed, resp.TokensUsed, cost)

	return &TextResult{
		Content:          resp.Content,
		ContentType:      req.ContentType,
		Topic:            req.Topic,
		Tone:             req.Tone,
		Length:           req.Length,
		ModelUsed:        resp.ModelUsed,
		TokensUsed:       resp.TokensUsed,
		EstimatedCostUSD: cost,
		Timestamp:        s.now().Format(time.RFC3339),
	}, nil
}

// record updates metrics and the ledger. Ledger failures are logged only; the
// generated asset already exists and the caller should still get it.
func (s *Service) record(ctx context.Context, tool string, kind pricing.ResourceKind, model string, quantity int, cost float64) {
	units := 1
	if kind == pricing.KindImage {
		units = quantity
	}
	metrics.ObserveSpend(string(kind), units, cost)
	if s.recorder == nil {
		return
	}
	err := s.recorder.Log(ctx, &ledger.Entry{
		Tool:     tool,
		Kind:     string(kind),
		Model:    model,
		Quantity: quantity,
		CostUSD:  cost,
	})
	if err != nil {
		s.logger.Warn("failed to record cost", "tool", tool, "error", err)
	}
}
