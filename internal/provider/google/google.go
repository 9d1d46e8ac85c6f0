// Package google generates images with Imagen and videos with Veo through
// the Gemini API.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/vanman2024/content-image-generation-mcp/internal/provider"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultMaxWait      = 6 * time.Minute
)

// backend is the slice of the genai client this package uses.
type backend interface {
	GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	DownloadVideo(ctx context.Context, v *genai.GeneratedVideo) ([]byte, error)
}

type clientBackend struct {
	client *genai.Client
}

func (b clientBackend) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return b.client.Models.GenerateImages(ctx, model, prompt, cfg)
}

func (b clientBackend) GenerateVideos(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, nil, cfg)
}

func (b clientBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

func (b clientBackend) DownloadVideo(ctx context.Context, v *genai.GeneratedVideo) ([]byte, error) {
	return b.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(v), nil)
}

type Provider struct {
	backend      backend
	registry     *models.ModelRegistry
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

func New(ctx context.Context, cfg *provider.Config, registry *models.ModelRegistry, logger *slog.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	p := newWithBackend(clientBackend{client: client}, registry, logger)
	if cfg.TimeoutSec > 0 {
		p.maxWait = time.Duration(cfg.TimeoutSec) * time.Second
	}
	return p, nil
}

func newWithBackend(b backend, registry *models.ModelRegistry, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		backend:      b,
		registry:     registry,
		pollInterval: defaultPollInterval,
		maxWait:      defaultMaxWait,
		logger:       logger.With("provider", "google"),
	}
}

// GenerateImages renders req with Imagen. Unknown model names fall back to
// imagen-3.0 and out-of-range counts reset to one; req is updated in place so
// callers can price what was actually requested.
func (p *Provider) GenerateImages(ctx context.Context, req *models.ImageRequest) (*models.ImageResponse, error) {
	model, known := p.registry.ResolveImage(req.ModelVersion)
	if !known {
		p.logger.Warn("unknown image model, using default", "requested", req.ModelVersion, "model", model.Name)
	}
	req.ModelVersion = model.Name
	model.ApplyDefaults(req)
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	size := model.EffectiveSize(req.ImageSize)
	cfg := &genai.GenerateImagesConfig{
		NumberOfImages: int32(req.Count),
		AspectRatio:    req.AspectRatio,
		NegativePrompt: req.NegativePrompt,
		OutputMIMEType: req.Format.MIMEType(),
	}
	if !model.Fast {
		cfg.ImageSize = size
	}

	p.logger.Debug("generating images", "model", model.APIModel, "count", req.Count, "size", size)
	start := time.Now()
	resp, err := p.backend.GenerateImages(ctx, model.APIModel, req.Prompt, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrGenerationFailed, err)
	}

	out := &models.ImageResponse{APIModel: model.APIModel, ImageSize: size}
	for i, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		mime := gi.Image.MIMEType
		if mime == "" {
			mime = req.Format.MIMEType()
		}
		out.Images = append(out.Images, models.GeneratedImage{
			Data:     gi.Image.ImageBytes,
			MIMEType: mime,
			Index:    i,
		})
	}
	if len(out.Images) == 0 {
		return nil, fmt.Errorf("%w: no images returned, the prompt may have been filtered", provider.ErrGenerationFailed)
	}
	p.logger.Info("images generated", "model", model.APIModel, "count", len(out.Images), "elapsed", time.Since(start))
	return out, nil
}
