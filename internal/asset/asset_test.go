package asset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUploader struct {
	files []string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, filename string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.files = append(f.files, filename)
	return "s3://bucket/" + filename, nil
}

func TestSaver_SaveImages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	up := &fakeUploader{}
	s, err := NewSaver(dir, up, quietLogger())
	if err != nil {
		t.Fatalf("NewSaver() error: %v", err)
	}

	resp := &models.ImageResponse{Images: []models.GeneratedImage{
		{Data: []byte("one"), MIMEType: "image/png"},
		{Data: []byte("two"), MIMEType: "image/png"},
	}}
	saved, err := s.SaveImages(context.Background(), resp, "imagen-3.0", models.FormatPNG, "20251109_120000")
	if err != nil {
		t.Fatalf("SaveImages() error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("len(saved) = %d, want 2", len(saved))
	}

	want := []string{"imagen_imagen-3.0_20251109_120000_1.png", "imagen_imagen-3.0_20251109_120000_2.png"}
	for i, sv := range saved {
		if sv.Filename != want[i] {
			t.Errorf("Filename = %q, want %q", sv.Filename, want[i])
		}
		data, err := os.ReadFile(sv.Path)
		if err != nil {
			t.Fatalf("ReadFile() error: %v", err)
		}
		if string(data) != string(resp.Images[i].Data) {
			t.Errorf("file %d content = %q", i, data)
		}
		if sv.RemoteURI != "s3://bucket/"+want[i] {
			t.Errorf("RemoteURI = %q", sv.RemoteURI)
		}
		if resp.Images[i].Filename != sv.Path {
			t.Errorf("image Filename not updated: %q", resp.Images[i].Filename)
		}
	}
}

func TestSaver_UploadFailureIsNotFatal(t *testing.T) {
	s, err := NewSaver(t.TempDir(), &fakeUploader{err: errors.New("access denied")}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	saved, err := s.SaveVideo(context.Background(), &models.VideoResponse{Data: []byte("mp4"), MIMEType: "video/mp4"}, "20251109_120000")
	if err != nil {
		t.Fatalf("SaveVideo() error: %v", err)
	}
	if saved.Filename != "veo3_20251109_120000.mp4" {
		t.Errorf("Filename = %q", saved.Filename)
	}
	if saved.UploadError == "" || saved.RemoteURI != "" {
		t.Errorf("upload error not reported: %+v", saved)
	}
	if _, err := os.Stat(saved.Path); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestSaver_Rejects(t *testing.T) {
	s, err := NewSaver(t.TempDir(), nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(context.Background(), "empty.png", nil, ""); err == nil {
		t.Error("Save() accepted empty data")
	}
	if _, err := s.Save(context.Background(), "../escape.png", []byte("x"), ""); err == nil {
		t.Error("Save() accepted a path outside the output directory")
	}
}

func TestSaver_Timestamp(t *testing.T) {
	s, _ := NewSaver(t.TempDir(), nil, quietLogger())
	s.now = func() time.Time { return time.Date(2025, 11, 9, 8, 5, 3, 0, time.UTC) }
	if got := s.Timestamp(); got != "20251109_080503" {
		t.Errorf("Timestamp() = %q", got)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Uploader_Upload(t *testing.T) {
	client := &fakeS3{}
	u := newS3Uploader(client, "marketing-assets", "/generated/", quietLogger())
	u.now = func() time.Time { return time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC) }

	uri, err := u.Upload(context.Background(), "veo3_x.mp4", []byte("data"), "video/mp4")
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if uri != "s3://marketing-assets/generated/2025/03/07/veo3_x.mp4" {
		t.Errorf("uri = %q", uri)
	}
	if aws.ToString(client.input.Bucket) != "marketing-assets" {
		t.Errorf("Bucket = %q", aws.ToString(client.input.Bucket))
	}
	if aws.ToString(client.input.ContentType) != "video/mp4" {
		t.Errorf("ContentType = %q", aws.ToString(client.input.ContentType))
	}

	noPrefix := newS3Uploader(client, "b", "", quietLogger())
	noPrefix.now = u.now
	if got := noPrefix.Key("a.png"); got != "2025/03/07/a.png" {
		t.Errorf("Key() = %q", got)
	}

	client.err = errors.New("denied")
	if _, err := u.Upload(context.Background(), "a.png", []byte("x"), ""); err == nil {
		t.Error("Upload() should surface PutObject errors")
	}
}
