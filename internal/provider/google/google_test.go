package google

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/vanman2024/content-image-generation-mcp/internal/provider"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

type fakeBackend struct {
	imageModel string
	imageCfg   *genai.GenerateImagesConfig
	imageResp  *genai.GenerateImagesResponse
	imageErr   error

	videoCfg   *genai.GenerateVideosConfig
	pending    int
	finalOp    *genai.GenerateVideosOperation
	polls      int
	downloaded bool
}

func (f *fakeBackend) GenerateImages(_ context.Context, model, _ string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.imageModel = model
	f.imageCfg = cfg
	return f.imageResp, f.imageErr
}

func (f *fakeBackend) GenerateVideos(_ context.Context, _, _ string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.videoCfg = cfg
	return &genai.GenerateVideosOperation{Name: "operations/1"}, nil
}

func (f *fakeBackend) GetVideosOperation(_ context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	f.polls++
	if f.polls <= f.pending {
		return op, nil
	}
	return f.finalOp, nil
}

func (f *fakeBackend) DownloadVideo(_ context.Context, _ *genai.GeneratedVideo) ([]byte, error) {
	f.downloaded = true
	return []byte("mp4-bytes"), nil
}

func newTestProvider(b backend) *Provider {
	p := newWithBackend(b, models.DefaultRegistry(), nil)
	p.pollInterval = time.Millisecond
	return p
}

func images(n int) *genai.GenerateImagesResponse {
	resp := &genai.GenerateImagesResponse{}
	for i := 0; i < n; i++ {
		resp.GeneratedImages = append(resp.GeneratedImages, &genai.GeneratedImage{
			Image: &genai.Image{ImageBytes: []byte{byte(i + 1)}, MIMEType: "image/png"},
		})
	}
	return resp
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), &provider.Config{}, models.DefaultRegistry(), nil)
	if !errors.Is(err, provider.ErrAPIKeyRequired) {
		t.Errorf("New() error = %v, want ErrAPIKeyRequired", err)
	}
}

func TestGenerateImages(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		size      string
		count     int
		wantAPI   string
		wantSize  string
		wantCount int32
		cfgSize   string
	}{
		{"imagen3 1K", "imagen-3.0", "1K", 2, "imagen-3.0-generate-002", "1K", 2, "1K"},
		{"imagen4 2K", "imagen-4.0", "2K", 1, "imagen-4.0-generate-001", "2K", 1, "2K"},
		{"fast drops 2K", "imagen-4.0-fast", "2K", 1, "imagen-4.0-fast-generate-001", "1K", 1, ""},
		{"unknown model falls back", "imagen-9", "1K", 1, "imagen-3.0-generate-002", "1K", 1, "1K"},
		{"count reset", "imagen-3.0", "1K", 9, "imagen-3.0-generate-002", "1K", 1, "1K"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{imageResp: images(int(tt.wantCount))}
			p := newTestProvider(fb)

			req := models.NewImageRequest("a red bicycle")
			req.ModelVersion = tt.model
			req.ImageSize = tt.size
			req.Count = tt.count

			resp, err := p.GenerateImages(context.Background(), req)
			if err != nil {
				t.Fatalf("GenerateImages() error: %v", err)
			}
			if fb.imageModel != tt.wantAPI {
				t.Errorf("api model = %q, want %q", fb.imageModel, tt.wantAPI)
			}
			if fb.imageCfg.NumberOfImages != tt.wantCount {
				t.Errorf("NumberOfImages = %d, want %d", fb.imageCfg.NumberOfImages, tt.wantCount)
			}
			if fb.imageCfg.ImageSize != tt.cfgSize {
				t.Errorf("config ImageSize = %q, want %q", fb.imageCfg.ImageSize, tt.cfgSize)
			}
			if resp.ImageSize != tt.wantSize {
				t.Errorf("response ImageSize = %q, want %q", resp.ImageSize, tt.wantSize)
			}
			if len(resp.Images) != int(tt.wantCount) {
				t.Errorf("len(Images) = %d, want %d", len(resp.Images), tt.wantCount)
			}
			if req.Count != int(tt.wantCount) {
				t.Errorf("req.Count = %d, want %d", req.Count, tt.wantCount)
			}
		})
	}
}

func TestGenerateImages_Errors(t *testing.T) {
	p := newTestProvider(&fakeBackend{imageResp: &genai.GenerateImagesResponse{}})
	if _, err := p.GenerateImages(context.Background(), models.NewImageRequest("x")); !errors.Is(err, provider.ErrGenerationFailed) {
		t.Errorf("empty response error = %v, want ErrGenerationFailed", err)
	}

	p = newTestProvider(&fakeBackend{imageErr: errors.New("quota exceeded")})
	if _, err := p.GenerateImages(context.Background(), models.NewImageRequest("x")); !errors.Is(err, provider.ErrGenerationFailed) {
		t.Errorf("backend error = %v, want ErrGenerationFailed", err)
	}

	req := models.NewImageRequest("x")
	req.AspectRatio = "5:4"
	if _, err := p.GenerateImages(context.Background(), req); !errors.Is(err, models.ErrInvalidAspectRatio) {
		t.Errorf("validation error = %v, want ErrInvalidAspectRatio", err)
	}
}

func doneOp(v *genai.Video) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Name: "operations/1",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: v}},
		},
	}
}

func TestGenerateVideo_PollsAndDownloads(t *testing.T) {
	fb := &fakeBackend{pending: 2, finalOp: doneOp(&genai.Video{URI: "files/abc"})}
	p := newTestProvider(fb)

	req := models.NewVideoRequest("ocean waves")
	req.DurationSeconds = 5

	resp, err := p.GenerateVideo(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateVideo() error: %v", err)
	}
	if fb.polls != 3 {
		t.Errorf("polls = %d, want 3", fb.polls)
	}
	if !fb.downloaded || string(resp.Data) != "mp4-bytes" {
		t.Errorf("download not used: %v %q", fb.downloaded, resp.Data)
	}
	if req.DurationSeconds != 8 || *fb.videoCfg.DurationSeconds != 8 {
		t.Errorf("duration not defaulted to 8: %d", req.DurationSeconds)
	}
	if resp.MIMEType != "video/mp4" || resp.APIModel != "veo-3.0-generate-001" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGenerateVideo_InlineBytes(t *testing.T) {
	fb := &fakeBackend{finalOp: doneOp(&genai.Video{VideoBytes: []byte("inline"), MIMEType: "video/mp4"})}
	resp, err := newTestProvider(fb).GenerateVideo(context.Background(), models.NewVideoRequest("x"))
	if err != nil {
		t.Fatalf("GenerateVideo() error: %v", err)
	}
	if fb.downloaded || string(resp.Data) != "inline" {
		t.Errorf("expected inline bytes, got %q (downloaded=%v)", resp.Data, fb.downloaded)
	}
}

func TestGenerateVideo_Failures(t *testing.T) {
	failed := &genai.GenerateVideosOperation{Done: true, Error: map[string]any{"message": "blocked"}}
	_, err := newTestProvider(&fakeBackend{finalOp: failed}).GenerateVideo(context.Background(), models.NewVideoRequest("x"))
	if !errors.Is(err, provider.ErrVideoGenerationFailed) {
		t.Errorf("operation error = %v, want ErrVideoGenerationFailed", err)
	}

	p := newTestProvider(&fakeBackend{pending: 1 << 30})
	p.maxWait = 20 * time.Millisecond
	_, err = p.GenerateVideo(context.Background(), models.NewVideoRequest("x"))
	if !errors.Is(err, provider.ErrVideoTimeout) {
		t.Errorf("timeout error = %v, want ErrVideoTimeout", err)
	}

	req := models.NewVideoRequest("x")
	req.Resolution = models.Resolution1080p
	req.DurationSeconds = 4
	_, err = newTestProvider(&fakeBackend{}).GenerateVideo(context.Background(), req)
	if !errors.Is(err, models.ErrResolutionDuration) {
		t.Errorf("1080p/4s error = %v, want ErrResolutionDuration", err)
	}
}
