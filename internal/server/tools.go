package server

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vanman2024/content-image-generation-mcp/internal/batch"
	"github.com/vanman2024/content-image-generation-mcp/internal/campaign"
	"github.com/vanman2024/content-image-generation-mcp/internal/generate"
	"github.com/vanman2024/content-image-generation-mcp/internal/ledger"
	"github.com/vanman2024/content-image-generation-mcp/internal/metrics"
	"github.com/vanman2024/content-image-generation-mcp/internal/platform"
	"github.com/vanman2024/content-image-generation-mcp/internal/pricing"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

const (
	ToolGenerateImage       = "generate_image_imagen3"
	ToolBatchImages         = batch.Tool
	ToolGenerateVideo       = "generate_video_veo3"
	ToolMarketingContent    = "generate_marketing_content"
	ToolCostEstimate        = "calculate_cost_estimate"
	ToolValidatePlatform    = "validate_platform_content"
	ToolValidatePlatforms   = "validate_content_for_platforms"
	ToolValidateMedia       = "validate_platform_media"
	ToolCampaignConfig      = "get_campaign_config"
	ToolCampaignCost        = "estimate_campaign_cost"
	ToolCostSummary         = "get_cost_summary"
	defaultRecentCostsLimit = 10
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolGenerateImage,
		Description: "Generate marketing images using Google Imagen 3/4 via the Gemini API. Returns saved file paths, metadata and the estimated cost.",
	}, s.generateImage)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolBatchImages,
		Description: "Generate several marketing images one after another. A failed prompt is reported and the rest still run.",
	}, s.batchImages)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolGenerateVideo,
		Description: "Generate a marketing video with native audio using Google Veo 3 via the Gemini API.",
	}, s.generateVideo)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolMarketingContent,
		Description: "Write marketing copy (social posts, blog intros, ad copy, email subjects, product descriptions) with Claude or Gemini.",
	}, s.marketingContent)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCostEstimate,
		Description: "Calculate the estimated cost of a mix of images, video seconds and content pieces. Unknown models are priced at the default and listed as substitutions.",
	}, s.costEstimate)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolValidatePlatform,
		Description: "Check a post body and hashtags against one platform's character and hashtag limits.",
	}, s.validatePlatform)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolValidatePlatforms,
		Description: "Check the same post against several platforms. Unknown platforms are reported per item.",
	}, s.validatePlatforms)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolValidateMedia,
		Description: "Check a media file size and image count against one platform's upload limits.",
	}, s.validateMedia)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCampaignConfig,
		Description: "Get platforms, content guidelines and engagement strategy for a campaign type.",
	}, s.campaignConfig)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCampaignCost,
		Description: "Budget a campaign by post, image and video counts.",
	}, s.campaignCost)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCostSummary,
		Description: "Summarize the estimated spend recorded for generation calls made through this server.",
	}, s.costSummary)
}

type imageInput struct {
	Prompt         string `json:"prompt" jsonschema:"detailed description of the image to generate (max 480 tokens)"`
	NegativePrompt string `json:"negative_prompt,omitempty" jsonschema:"what to avoid in the image"`
	AspectRatio    string `json:"aspect_ratio,omitempty" jsonschema:"1:1, 3:4, 4:3, 9:16 or 16:9 (default 1:1)"`
	NumberOfImages int    `json:"number_of_images,omitempty" jsonschema:"number of images to generate, 1-4 (default 1)"`
	ImageSize      string `json:"image_size,omitempty" jsonschema:"1K or 2K; 2K only for standard and ultra models (default 1K)"`
	OutputFormat   string `json:"output_format,omitempty" jsonschema:"png, jpeg or webp (default png)"`
	ModelVersion   string `json:"model_version,omitempty" jsonschema:"imagen-3.0, imagen-4.0, imagen-4.0-ultra or imagen-4.0-fast (default imagen-3.0)"`
}

type imageOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*generate.ImageResult
}

func (s *Server) generateImage(ctx context.Context, _ *mcp.CallToolRequest, in imageInput) (*mcp.CallToolResult, any, error) {
	req := models.NewImageRequest(in.Prompt)
	req.NegativePrompt = in.NegativePrompt
	if in.NumberOfImages != 0 {
		req.Count = in.NumberOfImages
	}
	if in.AspectRatio != "" {
		req.AspectRatio = in.AspectRatio
	}
	if in.ImageSize != "" {
		req.ImageSize = in.ImageSize
	}
	if in.OutputFormat != "" {
		req.Format = models.OutputFormat(in.OutputFormat)
	}
	if in.ModelVersion != "" {
		req.ModelVersion = in.ModelVersion
	}

	res, err := s.gen.Images(ctx, ToolGenerateImage, req)
	s.observe(ToolGenerateImage, err)
	if err != nil {
		return reply(imageOutput{Error: err.Error()})
	}
	return reply(imageOutput{Success: true, ImageResult: res})
}

type batchInput struct {
	Prompts      []string `json:"prompts" jsonschema:"image prompts, generated in order"`
	AspectRatio  string   `json:"aspect_ratio,omitempty" jsonschema:"aspect ratio for all images (default 1:1)"`
	ImageSize    string   `json:"image_size,omitempty" jsonschema:"1K or 2K for all images (default 1K)"`
	ModelVersion string   `json:"model_version,omitempty" jsonschema:"image model for all images (default imagen-3.0)"`
}

type batchOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*batch.Report
}

func (s *Server) batchImages(ctx context.Context, _ *mcp.CallToolRequest, in batchInput) (*mcp.CallToolResult, any, error) {
	items, err := batch.FromPrompts(in.Prompts)
	if err != nil {
		s.observe(ToolBatchImages, err)
		return reply(batchOutput{Error: err.Error()})
	}
	report := s.batch.Process(ctx, items, &batch.Options{
		ModelVersion: firstNonEmpty(in.ModelVersion, models.DefaultImageModel),
		AspectRatio:  in.AspectRatio,
		ImageSize:    in.ImageSize,
	})
	s.observe(ToolBatchImages, nil)
	s.logger.Info("batch finished", "total", report.Total, "successful", report.Successful, "failed", report.Failed, "cost_usd", report.TotalCostUSD)
	return reply(batchOutput{Success: true, Report: report})
}

type videoInput struct {
	Prompt          string `json:"prompt" jsonschema:"detailed description of the video, audio cues supported"`
	DurationSeconds int    `json:"duration_seconds,omitempty" jsonschema:"4, 6 or 8 seconds (default 8)"`
	Resolution      string `json:"resolution,omitempty" jsonschema:"720p or 1080p; 1080p requires 8 seconds (default 720p)"`
	AspectRatio     string `json:"aspect_ratio,omitempty" jsonschema:"16:9 or 9:16 (default 16:9)"`
	NegativePrompt  string `json:"negative_prompt,omitempty" jsonschema:"elements to exclude from the video"`
	Model           string `json:"model,omitempty" jsonschema:"veo-3.0 or veo-3.1-preview (default veo-3.0)"`
}

type videoOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*generate.VideoResult
}

func (s *Server) generateVideo(ctx context.Context, _ *mcp.CallToolRequest, in videoInput) (*mcp.CallToolResult, any, error) {
	req := models.NewVideoRequest(in.Prompt)
	req.NegativePrompt = in.NegativePrompt
	if in.DurationSeconds != 0 {
		req.DurationSeconds = in.DurationSeconds
	}
	if in.Resolution != "" {
		req.Resolution = in.Resolution
	}
	if in.AspectRatio != "" {
		req.AspectRatio = in.AspectRatio
	}
	if in.Model != "" {
		req.Model = in.Model
	}

	res, err := s.gen.Video(ctx, ToolGenerateVideo, req)
	s.observe(ToolGenerateVideo, err)
	if err != nil {
		return reply(videoOutput{Error: err.Error()})
	}
	return reply(videoOutput{Success: true, VideoResult: res})
}

type contentInput struct {
	ContentType     string `json:"content_type" jsonschema:"social_post, blog_intro, ad_copy, email_subject or product_desc"`
	Topic           string `json:"topic" jsonschema:"content topic or product description"`
	Tone            string `json:"tone,omitempty" jsonschema:"professional, casual, enthusiastic or formal (default professional)"`
	Length          string `json:"length,omitempty" jsonschema:"short, medium or long (default medium)"`
	Model           string `json:"model,omitempty" jsonschema:"claude or gemini (default claude)"`
	IncludeHashtags *bool  `json:"include_hashtags,omitempty" jsonschema:"include relevant hashtags (default true)"`
}

type contentOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*generate.TextResult
}

func (s *Server) marketingContent(ctx context.Context, _ *mcp.CallToolRequest, in contentInput) (*mcp.CallToolResult, any, error) {
	req := &models.TextRequest{
		ContentType:     in.ContentType,
		Topic:           in.Topic,
		Tone:            firstNonEmpty(in.Tone, "professional"),
		Length:          firstNonEmpty(in.Length, "medium"),
		Model:           firstNonEmpty(in.Model, "claude"),
		IncludeHashtags: in.IncludeHashtags == nil || *in.IncludeHashtags,
	}

	res, err := s.gen.Text(ctx, ToolMarketingContent, req)
	s.observe(ToolMarketingContent, err)
	if err != nil {
		return reply(contentOutput{Error: err.Error()})
	}
	return reply(contentOutput{Success: true, TextResult: res})
}

type costInput struct {
	Images1K          int    `json:"images_1k,omitempty" jsonschema:"number of 1K resolution images"`
	Images2K          int    `json:"images_2k,omitempty" jsonschema:"number of 2K resolution images"`
	VideoSeconds      int    `json:"video_seconds,omitempty" jsonschema:"total seconds of video"`
	ContentPieces     int    `json:"content_pieces,omitempty" jsonschema:"number of content pieces"`
	AvgTokensPerPiece int    `json:"avg_tokens_per_piece,omitempty" jsonschema:"average tokens per content piece (default 500)"`
	ImageModel        string `json:"image_model,omitempty" jsonschema:"imagen-3.0 or imagen-4.0 (default imagen-3.0)"`
	VideoModel        string `json:"video_model,omitempty" jsonschema:"veo2, veo3 or veo3_fast (default veo3)"`
	TextModel         string `json:"text_model,omitempty" jsonschema:"gemini_flash or claude_sonnet (default gemini_flash)"`
}

type costOutput struct {
	Success      bool                   `json:"success"`
	Error        string                 `json:"error,omitempty"`
	Breakdown    *pricing.CostBreakdown `json:"breakdown,omitempty"`
	TotalCostUSD float64                `json:"total_cost_usd"`
	Timestamp    string                 `json:"timestamp,omitempty"`
}

func (s *Server) costEstimate(_ context.Context, _ *mcp.CallToolRequest, in costInput) (*mcp.CallToolResult, any, error) {
	breakdown, err := s.estimator.EstimateTotal(pricing.CostRequest{
		Images1K:          in.Images1K,
		Images2K:          in.Images2K,
		VideoSeconds:      in.VideoSeconds,
		ContentPieces:     in.ContentPieces,
		AvgTokensPerPiece: in.AvgTokensPerPiece,
		ImageModel:        in.ImageModel,
		VideoModel:        in.VideoModel,
		TextModel:         in.TextModel,
	})
	s.observe(ToolCostEstimate, err)
	if err != nil {
		return reply(costOutput{Error: err.Error()})
	}
	for _, sub := range breakdown.Substitutions {
		s.logger.Info("priced at default model", "kind", sub.Kind, "requested", sub.Requested, "used", sub.Used)
	}
	return reply(costOutput{
		Success:      true,
		Breakdown:    breakdown,
		TotalCostUSD: breakdown.TotalUSD,
		Timestamp:    s.now().Format(time.RFC3339),
	})
}

type validateInput struct {
	Platform string   `json:"platform" jsonschema:"platform id, e.g. linkedin, x, instagram, tiktok"`
	Content  string   `json:"content" jsonschema:"post body without hashtags"`
	Hashtags []string `json:"hashtags,omitempty" jsonschema:"hashtags with or without the leading #"`
}

type validateOutput struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	AllValid bool   `json:"all_valid"`
	*platform.Result
}

func (s *Server) validatePlatform(_ context.Context, _ *mcp.CallToolRequest, in validateInput) (*mcp.CallToolResult, any, error) {
	res, err := s.platforms.Validate(in.Platform, in.Content, in.Hashtags)
	s.observe(ToolValidatePlatform, err)
	if err != nil {
		return reply(validateOutput{Error: err.Error()})
	}
	metrics.ObserveValidation(string(res.Platform), res.AllValid)
	return reply(validateOutput{Success: true, AllValid: res.AllValid, Result: res})
}

type validateAllInput struct {
	Platforms []string `json:"platforms" jsonschema:"platform ids to check, in order"`
	Content   string   `json:"content" jsonschema:"post body without hashtags"`
	Hashtags  []string `json:"hashtags,omitempty" jsonschema:"hashtags with or without the leading #"`
}

type validateAllOutput struct {
	Success bool `json:"success"`
	*platform.BatchReport
}

func (s *Server) validatePlatforms(_ context.Context, _ *mcp.CallToolRequest, in validateAllInput) (*mcp.CallToolResult, any, error) {
	report := s.platforms.ValidateAll(in.Platforms, in.Content, in.Hashtags)
	for _, item := range report.Results {
		if item.Success {
			metrics.ObserveValidation(item.Platform, item.Result.AllValid)
		}
	}
	s.observe(ToolValidatePlatforms, nil)
	return reply(validateAllOutput{Success: true, BatchReport: report})
}

type mediaInput struct {
	Platform   string `json:"platform" jsonschema:"platform id"`
	SizeBytes  int64  `json:"size_bytes,omitempty" jsonschema:"file size in bytes"`
	ImageCount int    `json:"image_count,omitempty" jsonschema:"number of images in the post"`
}

type mediaOutput struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	AllValid bool   `json:"all_valid"`
	*platform.MediaResult
}

func (s *Server) validateMedia(_ context.Context, _ *mcp.CallToolRequest, in mediaInput) (*mcp.CallToolResult, any, error) {
	res, err := s.platforms.ValidateMedia(in.Platform, in.SizeBytes, in.ImageCount)
	s.observe(ToolValidateMedia, err)
	if err != nil {
		return reply(mediaOutput{Error: err.Error()})
	}
	return reply(mediaOutput{Success: true, AllValid: res.AllValid, MediaResult: res})
}

type campaignInput struct {
	CampaignType string `json:"campaign_type" jsonschema:"job_recruitment, product_launch, event_promotion, service_marketing, content_marketing or recruitment_agency"`
}

type campaignOutput struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Types   []string `json:"available_types,omitempty"`
	*campaign.Config
}

func (s *Server) campaignConfig(_ context.Context, _ *mcp.CallToolRequest, in campaignInput) (*mcp.CallToolResult, any, error) {
	cfg, err := campaign.ConfigFor(in.CampaignType, s.platforms)
	s.observe(ToolCampaignConfig, err)
	if err != nil {
		return reply(campaignOutput{Error: err.Error(), Types: campaign.Types()})
	}
	return reply(campaignOutput{Success: true, Config: cfg})
}

type campaignCostInput struct {
	CampaignType       string `json:"campaign_type" jsonschema:"campaign type to budget"`
	PostCount          int    `json:"post_count,omitempty" jsonschema:"number of social posts"`
	ImageCount         int    `json:"image_count,omitempty" jsonschema:"number of images"`
	VideoCount         int    `json:"video_count,omitempty" jsonschema:"number of videos"`
	VideoLengthSeconds int    `json:"video_length_seconds,omitempty" jsonschema:"length of each video in seconds"`
}

type campaignCostOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*campaign.Estimate
}

func (s *Server) campaignCost(_ context.Context, _ *mcp.CallToolRequest, in campaignCostInput) (*mcp.CallToolResult, any, error) {
	est, err := campaign.EstimateCost(in.CampaignType, in.PostCount, in.ImageCount, in.VideoCount, in.VideoLengthSeconds)
	s.observe(ToolCampaignCost, err)
	if err != nil {
		return reply(campaignCostOutput{Error: err.Error()})
	}
	return reply(campaignCostOutput{Success: true, Estimate: est})
}

type costSummaryInput struct {
	SinceHours int `json:"since_hours,omitempty" jsonschema:"only count calls from the last N hours; 0 means all time"`
	Recent     int `json:"recent,omitempty" jsonschema:"number of recent calls to list (default 10)"`
}

type costSummaryOutput struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Total   *ledger.Summary      `json:"total,omitempty"`
	ByKind  []ledger.KindSummary `json:"by_kind,omitempty"`
	Recent  []ledger.Entry       `json:"recent,omitempty"`
}

func (s *Server) costSummary(ctx context.Context, _ *mcp.CallToolRequest, in costSummaryInput) (*mcp.CallToolResult, any, error) {
	out, err := s.summarizeCosts(ctx, in)
	s.observe(ToolCostSummary, err)
	if err != nil {
		return reply(costSummaryOutput{Error: err.Error()})
	}
	return reply(out)
}

func (s *Server) summarizeCosts(ctx context.Context, in costSummaryInput) (costSummaryOutput, error) {
	if s.ledger == nil {
		return costSummaryOutput{}, ErrLedgerDisabled
	}
	out := costSummaryOutput{Success: true}

	var err error
	if in.SinceHours > 0 {
		out.Total, err = s.ledger.Since(ctx, s.now().Add(-time.Duration(in.SinceHours)*time.Hour))
	} else {
		out.Total, err = s.ledger.Total(ctx)
	}
	if err != nil {
		return costSummaryOutput{}, err
	}
	if out.ByKind, err = s.ledger.ByKind(ctx); err != nil {
		return costSummaryOutput{}, err
	}

	limit := in.Recent
	if limit <= 0 {
		limit = defaultRecentCostsLimit
	}
	if out.Recent, err = s.ledger.Recent(ctx, limit); err != nil {
		return costSummaryOutput{}, err
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
