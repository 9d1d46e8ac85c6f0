package models

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var (
	ErrEmptyPrompt           = errors.New("prompt cannot be empty")
	ErrInvalidAspectRatio    = errors.New("invalid aspect ratio for model")
	ErrInvalidImageSize      = errors.New("invalid image size for model")
	ErrInvalidResolution     = errors.New("invalid video resolution")
	ErrResolutionDuration    = errors.New("1080p resolution only supports 8-second videos")
	ErrInvalidFormat         = errors.New("invalid output format")
	ErrEmptyTopic            = errors.New("topic cannot be empty")
	ErrUnknownTextModel      = errors.New("unknown text model")
	ErrNoPrompts             = errors.New("at least one prompt is required")
	ErrProviderNotConfigured = errors.New("provider not configured")
)

type ProviderType string

const (
	ProviderGoogle    ProviderType = "google"
	ProviderAnthropic ProviderType = "anthropic"
)

type OutputFormat string

const (
	FormatPNG  OutputFormat = "png"
	FormatJPEG OutputFormat = "jpeg"
	FormatWebP OutputFormat = "webp"
)

func ValidFormats() []OutputFormat {
	return []OutputFormat{FormatPNG, FormatJPEG, FormatWebP}
}

func (f OutputFormat) IsValid() bool {
	return slices.Contains(ValidFormats(), f)
}

func (f OutputFormat) String() string {
	return string(f)
}

// MIMEType returns the content type the image API is asked to produce.
func (f OutputFormat) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

const (
	Size1K = "1K"
	Size2K = "2K"

	Resolution720p  = "720p"
	Resolution1080p = "1080p"

	DefaultImageModel   = "imagen-3.0"
	DefaultVideoModel   = "veo-3.0"
	DefaultVideoSeconds = 8
	MaxImagesPerRequest = 4
)

type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Count          int
	ImageSize      string
	Format         OutputFormat
	ModelVersion   string
}

func NewImageRequest(prompt string) *ImageRequest {
	return &ImageRequest{
		Prompt:       prompt,
		AspectRatio:  "1:1",
		Count:        1,
		ImageSize:    Size1K,
		Format:       FormatPNG,
		ModelVersion: DefaultImageModel,
	}
}

type ImageResponse struct {
	Images   []GeneratedImage
	APIModel string
	// ImageSize is the size actually requested from the API; fast variants never get 2K.
	ImageSize string
}

type GeneratedImage struct {
	Data     []byte
	MIMEType string
	Index    int
	Filename string
}

type VideoRequest struct {
	Prompt          string
	NegativePrompt  string
	DurationSeconds int
	Resolution      string
	AspectRatio     string
	Model           string
}

func NewVideoRequest(prompt string) *VideoRequest {
	return &VideoRequest{
		Prompt:          prompt,
		DurationSeconds: DefaultVideoSeconds,
		Resolution:      Resolution720p,
		AspectRatio:     "16:9",
		Model:           DefaultVideoModel,
	}
}

type VideoResponse struct {
	Data     []byte
	MIMEType string
	APIModel string
}

type TextRequest struct {
	ContentType     string
	Topic           string
	Tone            string
	Length          string
	Model           string
	IncludeHashtags bool
}

type TextResponse struct {
	Content    string
	ModelUsed  string
	PriceTier  string
	TokensUsed int
}

var lengthGuides = map[string]string{
	"short":  "1-2 sentences",
	"medium": "3-5 sentences or 1 paragraph",
	"long":   "2-3 paragraphs",
}

// Prompt renders the copywriting instruction sent to the text model.
func (r *TextRequest) Prompt() string {
	guide, ok := lengthGuides[r.Length]
	if !ok {
		guide = "medium"
	}
	hashtags := ""
	if r.IncludeHashtags {
		hashtags = "Include relevant hashtags at the end."
	}
	return fmt.Sprintf(`Generate %s about: %s

Tone: %s
Length: %s
%s

Make it compelling, engaging, and ready to use for marketing purposes.`,
		strings.ReplaceAll(r.ContentType, "_", " "), r.Topic, r.Tone, guide, hashtags)
}

func (r *TextRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	return nil
}

type ImageModel struct {
	Name            string
	APIModel        string
	Provider        ProviderType
	Resolutions     []string
	AspectRatios    []string
	MaxImages       int
	MaxPromptTokens int
	Features        []string
	Variants        []string
	Fast            bool
}

// ApplyDefaults fills blanks and clamps the image count to the model range
// instead of rejecting it.
func (m *ImageModel) ApplyDefaults(req *ImageRequest) {
	if req.Count < 1 || req.Count > m.MaxImages {
		req.Count = 1
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}
	if req.ImageSize == "" {
		req.ImageSize = Size1K
	}
	if req.Format == "" {
		req.Format = FormatPNG
	}
}

func (m *ImageModel) Validate(req *ImageRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if !slices.Contains(m.AspectRatios, req.AspectRatio) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidAspectRatio, req.AspectRatio, m.AspectRatios)
	}
	if !slices.Contains(m.Resolutions, req.ImageSize) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidImageSize, req.ImageSize, m.Resolutions)
	}
	if !req.Format.IsValid() {
		return fmt.Errorf("%w: %q must be one of %v", ErrInvalidFormat, req.Format, ValidFormats())
	}
	return nil
}

// EffectiveSize is the size the API will actually render.
func (m *ImageModel) EffectiveSize(requested string) string {
	if requested == Size2K && !m.Fast {
		return Size2K
	}
	return Size1K
}

type VideoModel struct {
	Name         string
	APIModel     string
	Provider     ProviderType
	Durations    []int
	Resolutions  []string
	AspectRatios []string
	FPS          int
	HasAudio     bool
	Features     []string
	PriceTier    string
}

// ApplyDefaults falls back to the default duration for unsupported lengths.
func (m *VideoModel) ApplyDefaults(req *VideoRequest) {
	if !slices.Contains(m.Durations, req.DurationSeconds) {
		req.DurationSeconds = DefaultVideoSeconds
	}
	if req.Resolution == "" {
		req.Resolution = Resolution720p
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}
}

func (m *VideoModel) Validate(req *VideoRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if !slices.Contains(m.Resolutions, req.Resolution) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidResolution, req.Resolution, m.Resolutions)
	}
	if req.Resolution == Resolution1080p && req.DurationSeconds != 8 {
		return ErrResolutionDuration
	}
	if !slices.Contains(m.AspectRatios, req.AspectRatio) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidAspectRatio, req.AspectRatio, m.AspectRatios)
	}
	return nil
}

type TextModel struct {
	Name      string
	APIModel  string
	Provider  ProviderType
	PriceTier string
	Strengths []string
}

type ModelRegistry struct {
	images map[string]*ImageModel
	videos map[string]*VideoModel
	texts  map[string]*TextModel
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		images: make(map[string]*ImageModel),
		videos: make(map[string]*VideoModel),
		texts:  make(map[string]*TextModel),
	}
}

func (r *ModelRegistry) RegisterImage(m *ImageModel) {
	r.images[m.Name] = m
}

func (r *ModelRegistry) RegisterVideo(m *VideoModel) {
	r.videos[m.Name] = m
}

func (r *ModelRegistry) RegisterText(m *TextModel) {
	r.texts[m.Name] = m
}

func (r *ModelRegistry) GetImage(name string) (*ImageModel, bool) {
	m, ok := r.images[name]
	return m, ok
}

// ResolveImage returns the named model or the default Imagen model when the
// name is unknown. The bool reports whether the name was recognised.
func (r *ModelRegistry) ResolveImage(name string) (*ImageModel, bool) {
	if m, ok := r.images[name]; ok {
		return m, true
	}
	return r.images[DefaultImageModel], false
}

func (r *ModelRegistry) GetVideo(name string) (*VideoModel, bool) {
	m, ok := r.videos[name]
	return m, ok
}

func (r *ModelRegistry) GetText(name string) (*TextModel, bool) {
	m, ok := r.texts[strings.ToLower(name)]
	return m, ok
}

func (r *ModelRegistry) ListImageModels() []string {
	return sortedKeys(r.images)
}

func (r *ModelRegistry) ListVideoModels() []string {
	return sortedKeys(r.videos)
}

func (r *ModelRegistry) ListTextModels() []string {
	return sortedKeys(r.texts)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var imagenAspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()

	r.RegisterImage(&ImageModel{
		Name:            "imagen-3.0",
		APIModel:        "imagen-3.0-generate-002",
		Provider:        ProviderGoogle,
		Resolutions:     []string{Size1K, Size2K},
		AspectRatios:    imagenAspectRatios,
		MaxImages:       MaxImagesPerRequest,
		MaxPromptTokens: 480,
		Features:        []string{"SynthID watermarking", "text in images", "photorealism"},
	})

	r.RegisterImage(&ImageModel{
		Name:            "imagen-4.0",
		APIModel:        "imagen-4.0-generate-001",
		Provider:        ProviderGoogle,
		Resolutions:     []string{Size1K, Size2K},
		AspectRatios:    imagenAspectRatios,
		MaxImages:       MaxImagesPerRequest,
		MaxPromptTokens: 480,
		Features:        []string{"Ultra quality", "SynthID watermarking", "advanced prompting"},
		Variants:        []string{"standard", "ultra", "fast"},
	})

	r.RegisterImage(&ImageModel{
		Name:            "imagen-4.0-ultra",
		APIModel:        "imagen-4.0-ultra-generate-001",
		Provider:        ProviderGoogle,
		Resolutions:     []string{Size1K, Size2K},
		AspectRatios:    imagenAspectRatios,
		MaxImages:       MaxImagesPerRequest,
		MaxPromptTokens: 480,
		Features:        []string{"Ultra quality", "SynthID watermarking"},
	})

	r.RegisterImage(&ImageModel{
		Name:            "imagen-4.0-fast",
		APIModel:        "imagen-4.0-fast-generate-001",
		Provider:        ProviderGoogle,
		Resolutions:     []string{Size1K, Size2K},
		AspectRatios:    imagenAspectRatios,
		MaxImages:       MaxImagesPerRequest,
		MaxPromptTokens: 480,
		Features:        []string{"SynthID watermarking", "low latency"},
		Fast:            true,
	})

	r.RegisterVideo(&VideoModel{
		Name:         "veo-3.0",
		APIModel:     "veo-3.0-generate-001",
		Provider:     ProviderGoogle,
		Durations:    []int{4, 6, 8},
		Resolutions:  []string{Resolution720p, Resolution1080p},
		AspectRatios: []string{"16:9", "9:16"},
		FPS:          24,
		HasAudio:     true,
		Features:     []string{"Native audio generation", "SynthID watermarking", "reference images"},
		PriceTier:    "veo3",
	})

	r.RegisterVideo(&VideoModel{
		Name:         "veo-3.1-preview",
		APIModel:     "veo-3.1-generate-preview",
		Provider:     ProviderGoogle,
		Durations:    []int{4, 6, 8},
		Resolutions:  []string{Resolution720p, Resolution1080p},
		AspectRatios: []string{"16:9", "9:16"},
		FPS:          24,
		HasAudio:     true,
		Features:     []string{"Video extension (7+ seconds)", "Frame-specific generation", "Up to 3 reference images"},
		PriceTier:    "veo3",
	})

	r.RegisterText(&TextModel{
		Name:      "claude",
		APIModel:  "claude-sonnet-4-20250514",
		Provider:  ProviderAnthropic,
		PriceTier: "claude_sonnet",
		Strengths: []string{"creative writing", "nuanced tone", "long-form content"},
	})

	r.RegisterText(&TextModel{
		Name:      "gemini",
		APIModel:  "gemini-2.5-flash",
		Provider:  ProviderGoogle,
		PriceTier: "gemini_flash",
		Strengths: []string{"multimodal understanding", "fast generation", "cost-effective"},
	})

	return r
}
