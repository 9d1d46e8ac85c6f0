package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanman2024/content-image-generation-mcp/internal/asset"
	"github.com/vanman2024/content-image-generation-mcp/internal/generate"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

func floatEquals(a, b float64) bool {
	const epsilon = 1e-9
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

func TestParseText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{
			name:  "basic prompts",
			input: "prompt one\nprompt two\nprompt three",
			want:  3,
		},
		{
			name:  "with empty lines",
			input: "prompt one\n\nprompt two\n\n",
			want:  2,
		},
		{
			name:  "with comments",
			input: "# this is a comment\nprompt one\n# another comment\nprompt two",
			want:  2,
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: true,
		},
		{
			name:    "only comments",
			input:   "# comment\n# another",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseText(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(items) != tt.want {
				t.Errorf("ParseText() got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{
			name:  "basic array",
			input: `[{"prompt": "one"}, {"prompt": "two"}]`,
			want:  2,
		},
		{
			name:  "with options",
			input: `[{"prompt": "one", "model_version": "imagen-4.0", "image_size": "2K", "aspect_ratio": "16:9"}]`,
			want:  1,
		},
		{
			name:    "empty array",
			input:   `[]`,
			wantErr: models.ErrNoPrompts,
		},
		{
			name:    "empty prompt",
			input:   `[{"prompt": " "}]`,
			wantErr: models.ErrEmptyPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseJSON(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseJSON() error = %v, want %v", err, tt.wantErr)
			}
			if len(items) != tt.want {
				t.Errorf("ParseJSON() got %d items, want %d", len(items), tt.want)
			}
		})
	}

	if _, err := ParseJSON(strings.NewReader(`[{"prompt": "one"`)); err == nil {
		t.Error("ParseJSON() accepted truncated JSON")
	}

	items, _ := ParseJSON(strings.NewReader(`[{"prompt": "one", "model_version": "imagen-4.0", "image_size": "2K"}]`))
	if items[0].Model != "imagen-4.0" || items[0].ImageSize != "2K" || items[0].Index != 1 {
		t.Errorf("item = %+v", items[0])
	}
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		want     int
		wantErr  bool
	}{
		{"txt file", "test.txt", "prompt one\nprompt two", 2, false},
		{"json file", "test.json", `[{"prompt": "one"}, {"prompt": "two"}]`, 2, false},
		{"unsupported extension", "test.yaml", "prompt: test", 0, true},
		{"no extension treated as txt", "prompts", "prompt one\nprompt two", 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}

			items, err := ParseFile(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFile() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(items) != tt.want {
				t.Errorf("ParseFile() got %d items, want %d", len(items), tt.want)
			}
		})
	}

	if _, err := ParseFile("/nonexistent/file.txt"); err == nil {
		t.Error("ParseFile() expected error for non-existent file")
	}
}

func TestFromPrompts(t *testing.T) {
	if _, err := FromPrompts(nil); !errors.Is(err, models.ErrNoPrompts) {
		t.Errorf("FromPrompts(nil) error = %v, want ErrNoPrompts", err)
	}
	items, err := FromPrompts([]string{"a", "", "c"})
	if err != nil {
		t.Fatalf("FromPrompts() error: %v", err)
	}
	if len(items) != 3 || items[2].Index != 3 || items[2].Prompt != "c" {
		t.Errorf("items = %+v", items)
	}
}

// fakeRunner charges 0.02 per image and fails prompts containing "fail".
type fakeRunner struct {
	requests []models.ImageRequest
}

func (f *fakeRunner) Images(_ context.Context, tool string, req *models.ImageRequest) (*generate.ImageResult, error) {
	f.requests = append(f.requests, *req)
	if strings.Contains(req.Prompt, "fail") || strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("image generation failed: prompt filtered")
	}
	return &generate.ImageResult{
		Images:           []asset.Saved{{Path: "/tmp/" + req.Prompt + ".png"}},
		ModelVersion:     req.ModelVersion,
		NumberOfImages:   1,
		EstimatedCostUSD: 0.02,
	}, nil
}

func TestProcess(t *testing.T) {
	runner := &fakeRunner{}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	proc := NewProcessor(runner, out, errOut)

	items := []Item{
		{Index: 1, Prompt: "sunset"},
		{Index: 2, Prompt: "please fail"},
		{Index: 3, Prompt: "mountain", Model: "imagen-4.0"},
	}
	report := proc.Process(context.Background(), items, &Options{ModelVersion: "imagen-3.0", AspectRatio: "16:9"})

	if report.Total != 3 || report.Successful != 2 || report.Failed != 1 {
		t.Fatalf("summary = %+v, want 3/2/1", report.Summary)
	}
	if !floatEquals(report.TotalCostUSD, 0.04) {
		t.Errorf("TotalCostUSD = %v, want 0.04", report.TotalCostUSD)
	}
	if report.Results[1].Success || report.Results[1].Error == "" {
		t.Errorf("failed item = %+v", report.Results[1])
	}
	if !report.Results[2].Success {
		t.Error("item after a failure was not processed")
	}

	if runner.requests[0].ModelVersion != "imagen-3.0" || runner.requests[2].ModelVersion != "imagen-4.0" {
		t.Errorf("model versions = %q, %q", runner.requests[0].ModelVersion, runner.requests[2].ModelVersion)
	}
	if runner.requests[0].AspectRatio != "16:9" {
		t.Errorf("AspectRatio = %q, want 16:9", runner.requests[0].AspectRatio)
	}

	if !strings.Contains(out.String(), "[3/3] Generating") {
		t.Errorf("progress output = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "prompt filtered") {
		t.Errorf("error output = %q", errOut.String())
	}
}

func TestProcess_Cancelled(t *testing.T) {
	runner := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, _ := FromPrompts([]string{"one", "two"})
	report := NewProcessor(runner, nil, nil).Process(ctx, items, &Options{})

	if report.Failed != 2 || len(report.Results) != 2 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if len(runner.requests) != 0 {
		t.Errorf("runner called %d times after cancellation", len(runner.requests))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a longer string", 10, "this is..."},
		{"ééééééééééééé", 6, "ééé..."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name    string
		report  *Report
		wantOut string
	}{
		{
			name:    "all successful",
			report:  &Report{Summary: Summary{Total: 2, Successful: 2, TotalCostUSD: 0.04}},
			wantOut: "Successful: 2/2",
		},
		{
			name: "with failures",
			report: &Report{
				Summary: Summary{Total: 2, Successful: 1, Failed: 1},
				Results: []Result{{Index: 1, Success: true}, {Index: 2, Prompt: "test two", Error: "generation failed"}},
			},
			wantOut: "[2] \"test two\": generation failed",
		},
		{
			name:    "empty results",
			report:  &Report{},
			wantOut: "Successful: 0/0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			PrintSummary(out, tt.report)
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("PrintSummary() output = %q, want to contain %q", out.String(), tt.wantOut)
			}
		})
	}
}
