package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

var (
	ErrNotConfigured         = errors.New("provider not configured")
	ErrAPIKeyRequired        = errors.New("API key is required")
	ErrGenerationFailed      = errors.New("image generation failed")
	ErrVideoGenerationFailed = errors.New("video generation failed")
	ErrVideoTimeout          = errors.New("video generation timed out")
	ErrVideoDownloadFailed   = errors.New("video download failed")
	ErrTextGenerationFailed  = errors.New("text generation failed")
)

type ImageGenerator interface {
	GenerateImages(ctx context.Context, req *models.ImageRequest) (*models.ImageResponse, error)
}

type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req *models.VideoRequest) (*models.VideoResponse, error)
}

type TextGenerator interface {
	GenerateText(ctx context.Context, req *models.TextRequest) (*models.TextResponse, error)
}

type Config struct {
	APIKey     string
	TimeoutSec int
}

// Factory holds whichever generators could be built at startup. A missing
// generator is reported per call so the server can still start without keys.
type Factory struct {
	registry *models.ModelRegistry
	images   ImageGenerator
	video    VideoGenerator
	text     TextGenerator
}

func NewFactory(registry *models.ModelRegistry) *Factory {
	return &Factory{registry: registry}
}

func (f *Factory) Registry() *models.ModelRegistry {
	return f.registry
}

func (f *Factory) SetImageGenerator(g ImageGenerator) { f.images = g }

func (f *Factory) SetVideoGenerator(g VideoGenerator) { f.video = g }

func (f *Factory) SetTextGenerator(g TextGenerator) { f.text = g }

func (f *Factory) Images() (ImageGenerator, error) {
	if f.images == nil {
		return nil, fmt.Errorf("%w: image generation requires GOOGLE_API_KEY", ErrNotConfigured)
	}
	return f.images, nil
}

func (f *Factory) Video() (VideoGenerator, error) {
	if f.video == nil {
		return nil, fmt.Errorf("%w: video generation requires GOOGLE_API_KEY", ErrNotConfigured)
	}
	return f.video, nil
}

func (f *Factory) Text() (TextGenerator, error) {
	if f.text == nil {
		return nil, fmt.Errorf("%w: content generation requires GOOGLE_API_KEY or ANTHROPIC_API_KEY", ErrNotConfigured)
	}
	return f.text, nil
}

// Available reports which capabilities are configured, for startup logging.
func (f *Factory) Available() map[string]bool {
	return map[string]bool{
		"images": f.images != nil,
		"video":  f.video != nil,
		"text":   f.text != nil,
	}
}
