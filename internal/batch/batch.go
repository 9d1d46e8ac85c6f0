package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vanman2024/content-image-generation-mcp/internal/generate"
	"github.com/vanman2024/content-image-generation-mcp/internal/pricing"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

const Tool = "batch_generate_images"

// ImageRunner produces one priced image result. *generate.Service satisfies it.
type ImageRunner interface {
	Images(ctx context.Context, tool string, req *models.ImageRequest) (*generate.ImageResult, error)
}

type Result struct {
	Index    int                   `json:"index"`
	Prompt   string                `json:"prompt"`
	Success  bool                  `json:"success"`
	Error    string                `json:"error,omitempty"`
	Image    *generate.ImageResult `json:"result,omitempty"`
	CostUSD  float64               `json:"estimated_cost_usd"`
	Duration time.Duration         `json:"-"`
}

type Summary struct {
	Total        int     `json:"total_images"`
	Successful   int     `json:"successful"`
	Failed       int     `json:"failed"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

type Report struct {
	Summary
	ModelVersion string   `json:"model_version"`
	Results      []Result `json:"results"`
}

type Options struct {
	ModelVersion string
	AspectRatio  string
	ImageSize    string
	Format       models.OutputFormat
	DelayMs      int
}

// Processor runs items one after another. A failed item is recorded and the
// batch moves on; only cancellation stops it early.
type Processor struct {
	runner ImageRunner
	out    io.Writer
	err    io.Writer
}

// NewProcessor prints progress to out and errOut; nil writers discard it.
func NewProcessor(runner ImageRunner, out, errOut io.Writer) *Processor {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return &Processor{runner: runner, out: out, err: errOut}
}

func (p *Processor) Process(ctx context.Context, items []Item, opts *Options) *Report {
	report := &Report{
		ModelVersion: opts.ModelVersion,
		Results:      make([]Result, 0, len(items)),
	}
	total := len(items)

	for i, item := range items {
		var result Result
		if err := ctx.Err(); err != nil {
			result = Result{Index: item.Index, Prompt: item.Prompt, Error: err.Error()}
		} else {
			result = p.processItem(ctx, item, opts, i+1, total)
		}
		report.add(result)

		if opts.DelayMs > 0 && i < len(items)-1 && ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	report.TotalCostUSD = pricing.RoundUSD(report.TotalCostUSD, pricing.LinePlaces)
	return report
}

func (r *Report) add(result Result) {
	r.Results = append(r.Results, result)
	r.Total++
	if result.Success {
		r.Successful++
		r.TotalCostUSD += result.CostUSD
	} else {
		r.Failed++
	}
}

func (p *Processor) processItem(ctx context.Context, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{
		Index:  item.Index,
		Prompt: item.Prompt,
	}

	fmt.Fprintf(p.out, "[%d/%d] Generating: %q...\n", current, total, truncate(item.Prompt, 50))

	req := models.NewImageRequest(item.Prompt)
	req.NegativePrompt = item.NegativePrompt
	req.ModelVersion = firstNonEmpty(item.Model, opts.ModelVersion, models.DefaultImageModel)
	req.AspectRatio = firstNonEmpty(item.AspectRatio, opts.AspectRatio, req.AspectRatio)
	req.ImageSize = firstNonEmpty(item.ImageSize, opts.ImageSize, req.ImageSize)
	if opts.Format != "" {
		req.Format = opts.Format
	}

	res, err := p.runner.Images(ctx, Tool, req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		fmt.Fprintf(p.err, "       Error: %v\n", err)
		return result
	}

	result.Success = true
	result.Image = res
	result.CostUSD = res.EstimatedCostUSD
	if len(res.Images) > 0 {
		fmt.Fprintf(p.out, "       Saved: %s ($%.4f)\n", res.Images[0].Path, result.CostUSD)
	}
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func PrintSummary(w io.Writer, report *Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Successful: %d/%d images\n", report.Successful, report.Total)
	if report.Failed > 0 {
		fmt.Fprintf(w, "  Failed: %d (see errors below)\n", report.Failed)
	}
	fmt.Fprintf(w, "  Total cost: $%.4f\n", report.TotalCostUSD)

	if report.Failed == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Errors:")
	for _, r := range report.Results {
		if !r.Success {
			fmt.Fprintf(w, "  [%d] %q: %s\n", r.Index, truncate(r.Prompt, 40), r.Error)
		}
	}
}
