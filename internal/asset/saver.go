// Package asset writes generated media to the output directory and, when
// configured, mirrors it to object storage.
package asset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vanman2024/content-image-generation-mcp/internal/security"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

const TimestampLayout = "20060102_150405"

// Uploader stores a copy of a saved asset and returns its remote location.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}

type Saved struct {
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	RemoteURI   string `json:"remote_uri,omitempty"`
	UploadError string `json:"upload_error,omitempty"`
}

type Saver struct {
	dir      string
	uploader Uploader
	now      func() time.Time
	logger   *slog.Logger
}

// NewSaver creates dir if needed. uploader may be nil.
func NewSaver(dir string, uploader Uploader, logger *slog.Logger) (*Saver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{dir: dir, uploader: uploader, now: time.Now, logger: logger}, nil
}

func (s *Saver) Dir() string {
	return s.dir
}

// Timestamp is the stamp shared by every file of one generation call.
func (s *Saver) Timestamp() string {
	return s.now().Format(TimestampLayout)
}

func ImageFilename(model, timestamp string, n int, format models.OutputFormat) string {
	return security.SanitizeFilename(fmt.Sprintf("imagen_%s_%s_%d.%s", model, timestamp, n, format))
}

func VideoFilename(timestamp string) string {
	return fmt.Sprintf("veo3_%s.mp4", timestamp)
}

// SaveImages writes every image of resp, numbering them from 1.
func (s *Saver) SaveImages(ctx context.Context, resp *models.ImageResponse, model string, format models.OutputFormat, timestamp string) ([]Saved, error) {
	saved := make([]Saved, 0, len(resp.Images))
	for i := range resp.Images {
		img := &resp.Images[i]
		name := ImageFilename(model, timestamp, i+1, format)
		out, err := s.Save(ctx, name, img.Data, img.MIMEType)
		if err != nil {
			return saved, fmt.Errorf("failed to save image %d: %w", i+1, err)
		}
		img.Filename = out.Path
		saved = append(saved, out)
	}
	return saved, nil
}

func (s *Saver) SaveVideo(ctx context.Context, resp *models.VideoResponse, timestamp string) (Saved, error) {
	return s.Save(ctx, VideoFilename(timestamp), resp.Data, resp.MIMEType)
}

// Save writes data under the output directory. Upload failures are logged and
// reported on the result; they never fail the save.
func (s *Saver) Save(ctx context.Context, filename string, data []byte, contentType string) (Saved, error) {
	if len(data) == 0 {
		return Saved{}, fmt.Errorf("no data to write for %s", filename)
	}
	path, err := security.ResolveWithin(s.dir, filename)
	if err != nil {
		return Saved{}, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Saved{}, fmt.Errorf("failed to write file: %w", err)
	}

	out := Saved{Path: path, Filename: filename, SizeBytes: int64(len(data))}
	if s.uploader != nil {
		uri, err := s.uploader.Upload(ctx, filename, data, contentType)
		if err != nil {
			s.logger.Warn("asset upload failed", "file", filename, "error", err)
			out.UploadError = err.Error()
		} else {
			out.RemoteURI = uri
		}
	}
	return out, nil
}
