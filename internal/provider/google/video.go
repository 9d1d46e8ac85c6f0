package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/vanman2024/content-image-generation-mcp/internal/provider"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

// GenerateVideo starts a Veo job, polls until it finishes and downloads the
// first clip. Unsupported durations fall back to 8 seconds.
func (p *Provider) GenerateVideo(ctx context.Context, req *models.VideoRequest) (*models.VideoResponse, error) {
	model, ok := p.registry.GetVideo(req.Model)
	if !ok {
		model, _ = p.registry.GetVideo(models.DefaultVideoModel)
		req.Model = model.Name
	}
	model.ApplyDefaults(req)
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	seconds := int32(req.DurationSeconds)
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		DurationSeconds: &seconds,
		NegativePrompt:  req.NegativePrompt,
	}

	op, err := p.backend.GenerateVideos(ctx, model.APIModel, req.Prompt, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrVideoGenerationFailed, err)
	}
	p.logger.Info("video job started", "model", model.APIModel, "operation", op.Name, "seconds", req.DurationSeconds)

	done, err := p.pollVideo(ctx, op)
	if err != nil {
		return nil, err
	}

	video, err := firstVideo(done)
	if err != nil {
		return nil, err
	}

	data := video.Video.VideoBytes
	if len(data) == 0 {
		data, err = p.backend.DownloadVideo(ctx, video)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrVideoDownloadFailed, err)
		}
	}

	mime := video.Video.MIMEType
	if mime == "" {
		mime = "video/mp4"
	}
	return &models.VideoResponse{Data: data, MIMEType: mime, APIModel: model.APIModel}, nil
}

func (p *Provider) pollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.maxWait)
	defer cancel()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for !op.Done {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", provider.ErrVideoTimeout, p.maxWait)
			}
			return nil, ctx.Err()
		case <-ticker.C:
			next, err := p.backend.GetVideosOperation(ctx, op)
			if err != nil {
				return nil, fmt.Errorf("%w: polling: %v", provider.ErrVideoGenerationFailed, err)
			}
			op = next
			p.logger.Debug("video job polled", "operation", op.Name, "done", op.Done)
		}
	}
	if len(op.Error) > 0 {
		return nil, fmt.Errorf("%w: %v", provider.ErrVideoGenerationFailed, op.Error["message"])
	}
	return op, nil
}

func firstVideo(op *genai.GenerateVideosOperation) (*genai.GeneratedVideo, error) {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, fmt.Errorf("%w: no video returned", provider.ErrVideoGenerationFailed)
	}
	v := op.Response.GeneratedVideos[0]
	if v == nil || v.Video == nil {
		return nil, fmt.Errorf("%w: empty video in response", provider.ErrVideoGenerationFailed)
	}
	return v, nil
}
