package server

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vanman2024/content-image-generation-mcp/internal/pricing"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

const (
	PricingURI   = "config://pricing"
	ModelsURI    = "config://models"
	PlatformsURI = "config://platforms"
	jsonMIME     = "application/json"
)

func (s *Server) registerResources() {
	s.addJSONResource(PricingURI, "pricing", "Current pricing information for all services.", s.pricingDoc)
	s.addJSONResource(ModelsURI, "models", "Information about available AI models.", s.modelsDoc)
	s.addJSONResource(PlatformsURI, "platforms", "Publishing limits for every supported platform.", s.platformsDoc)
}

func (s *Server) addJSONResource(uri, name, description string, doc func() any) {
	s.mcp.AddResource(&mcp.Resource{
		URI:         uri,
		Name:        name,
		Description: description,
		MIMEType:    jsonMIME,
	}, func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		data, err := json.MarshalIndent(doc(), "", "  ")
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: jsonMIME, Text: string(data)}},
		}, nil
	})
}

func (s *Server) pricingDoc() any {
	table := s.estimator.Table()
	return map[string]any{
		"pricing":      table.Prices(),
		"entries":      table.Entries(),
		"currency":     pricing.CurrencyUSD,
		"last_updated": pricing.LastUpdated,
		"notes":        "Official pricing from Gemini API documentation",
		"details": map[string]string{
			"imagen":  "Per image pricing - 1K or 2K resolution",
			"veo":     "Per second of video - 24fps with audio",
			"content": "Per 1K tokens",
		},
	}
}

type imageModelDoc struct {
	APIModel        string   `json:"api_model"`
	Resolutions     []string `json:"resolutions"`
	AspectRatios    []string `json:"aspect_ratios"`
	MaxImages       int      `json:"max_images"`
	MaxPromptTokens int      `json:"max_prompt_tokens"`
	Features        []string `json:"features"`
	Variants        []string `json:"variants,omitempty"`
}

type videoModelDoc struct {
	APIModel     string   `json:"api_model"`
	Durations    []int    `json:"durations"`
	Resolutions  []string `json:"resolutions"`
	AspectRatios []string `json:"aspect_ratios"`
	FPS          int      `json:"fps"`
	HasAudio     bool     `json:"has_audio"`
	Features     []string `json:"features"`
}

type textModelDoc struct {
	Model     string   `json:"model"`
	Strengths []string `json:"strengths"`
}

func (s *Server) modelsDoc() any {
	return modelsDoc(s.gen.Registry())
}

func modelsDoc(r *models.ModelRegistry) map[string]any {
	images := make(map[string]imageModelDoc)
	for _, name := range r.ListImageModels() {
		m, _ := r.GetImage(name)
		images[name] = imageModelDoc{
			APIModel:        m.APIModel,
			Resolutions:     m.Resolutions,
			AspectRatios:    m.AspectRatios,
			MaxImages:       m.MaxImages,
			MaxPromptTokens: m.MaxPromptTokens,
			Features:        m.Features,
			Variants:        m.Variants,
		}
	}

	videos := make(map[string]videoModelDoc)
	for _, name := range r.ListVideoModels() {
		m, _ := r.GetVideo(name)
		videos[name] = videoModelDoc{
			APIModel:     m.APIModel,
			Durations:    m.Durations,
			Resolutions:  m.Resolutions,
			AspectRatios: m.AspectRatios,
			FPS:          m.FPS,
			HasAudio:     m.HasAudio,
			Features:     m.Features,
		}
	}

	texts := make(map[string]textModelDoc)
	for _, name := range r.ListTextModels() {
		m, _ := r.GetText(name)
		texts[name] = textModelDoc{Model: m.APIModel, Strengths: m.Strengths}
	}

	return map[string]any{
		"image_generation":   images,
		"video_generation":   videos,
		"content_generation": texts,
	}
}

func (s *Server) platformsDoc() any {
	return map[string]any{"platforms": s.platforms.Specs()}
}
