package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vanman2024/content-image-generation-mcp/internal/asset"
	"github.com/vanman2024/content-image-generation-mcp/internal/generate"
	"github.com/vanman2024/content-image-generation-mcp/internal/ledger"
	"github.com/vanman2024/content-image-generation-mcp/internal/metrics"
	"github.com/vanman2024/content-image-generation-mcp/internal/provider"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

type fakeImages struct{}

func (fakeImages) GenerateImages(_ context.Context, req *models.ImageRequest) (*models.ImageResponse, error) {
	if strings.Contains(req.Prompt, "fail") {
		return nil, errors.New("prompt was filtered")
	}
	resp := &models.ImageResponse{APIModel: "imagen-3.0-generate-002", ImageSize: req.ImageSize}
	for i := 0; i < req.Count; i++ {
		resp.Images = append(resp.Images, models.GeneratedImage{Data: []byte("png-bytes"), MIMEType: "image/png", Index: i})
	}
	return resp, nil
}

type testEnv struct {
	server  *Server
	session *mcp.ClientSession
	outDir  string
}

func newTestEnv(t *testing.T, withImages, withLedger bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	factory := provider.NewFactory(models.DefaultRegistry())
	if withImages {
		factory.SetImageGenerator(fakeImages{})
	}
	outDir := t.TempDir()
	saver, err := asset.NewSaver(outDir, nil, logger)
	if err != nil {
		t.Fatalf("NewSaver() error: %v", err)
	}

	opts := Options{Logger: logger}
	var recorder generate.Recorder
	if withLedger {
		store, err := ledger.NewStore(filepath.Join(t.TempDir(), "costs.db"))
		if err != nil {
			t.Fatalf("NewStore() error: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		opts.Ledger = store
		recorder = store
	}
	opts.Generator = generate.NewService(factory, saver, nil, recorder, logger)
	srv := New(opts)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCP().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server Connect() error: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "contentgen-test", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect() error: %v", err)
	}
	t.Cleanup(func() { cs.Close() })

	return &testEnv{server: srv, session: cs, outDir: outDir}
}

// call invokes a tool and decodes its JSON text content into a map.
func (e *testEnv) call(t *testing.T, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := e.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) error: %v", name, err)
	}
	if res.IsError {
		t.Fatalf("CallTool(%s) returned a protocol error: %+v", name, res.Content)
	}
	if len(res.Content) == 0 {
		t.Fatalf("CallTool(%s) returned no content", name)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s) content is %T", name, res.Content[0])
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("CallTool(%s) content is not JSON: %v", name, err)
	}
	return out
}

func TestListTools(t *testing.T) {
	env := newTestEnv(t, false, false)
	res, err := env.session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}

	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{
		ToolGenerateImage, ToolBatchImages, ToolGenerateVideo, ToolMarketingContent,
		ToolCostEstimate, ToolValidatePlatform, ToolValidatePlatforms, ToolValidateMedia,
		ToolCampaignConfig, ToolCampaignCost, ToolCostSummary,
	} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestCalculateCostEstimate(t *testing.T) {
	env := newTestEnv(t, false, false)

	tests := []struct {
		name      string
		args      map[string]any
		wantTotal float64
		wantSubs  int
	}{
		{
			name:      "campaign mix",
			args:      map[string]any{"images_1k": 10, "images_2k": 5, "video_seconds": 16, "content_pieces": 20},
			wantTotal: 12.405,
		},
		{
			name:      "imagen 4",
			args:      map[string]any{"images_1k": 2, "image_model": "imagen-4.0"},
			wantTotal: 0.08,
		},
		{
			name:      "unknown video model priced as veo3",
			args:      map[string]any{"video_seconds": 8, "video_model": "sora"},
			wantTotal: 6.0,
			wantSubs:  1,
		},
		{
			name:      "empty request",
			args:      map[string]any{},
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := env.call(t, ToolCostEstimate, tt.args)
			if out["success"] != true {
				t.Fatalf("success = %v, error = %v", out["success"], out["error"])
			}
			if got := out["total_cost_usd"].(float64); !floatEquals(got, tt.wantTotal) {
				t.Errorf("total_cost_usd = %v, want %v", got, tt.wantTotal)
			}
			breakdown := out["breakdown"].(map[string]any)
			subs, _ := breakdown["substitutions"].([]any)
			if len(subs) != tt.wantSubs {
				t.Errorf("substitutions = %v, want %d", subs, tt.wantSubs)
			}
		})
	}
}

func TestCalculateCostEstimate_NegativeQuantity(t *testing.T) {
	env := newTestEnv(t, false, false)
	out := env.call(t, ToolCostEstimate, map[string]any{"images_1k": -1})
	if out["success"] != false {
		t.Fatalf("success = %v, want false", out["success"])
	}
	if msg, _ := out["error"].(string); !strings.Contains(msg, "images_1k") {
		t.Errorf("error = %q", msg)
	}
}

func TestValidatePlatformContent(t *testing.T) {
	env := newTestEnv(t, false, false)

	tests := []struct {
		name        string
		args        map[string]any
		wantSuccess bool
		wantValid   bool
	}{
		{"fits x", map[string]any{"platform": "x", "content": "Launch day!", "hashtags": []string{"#AI", "Launch"}}, true, true},
		{"too many hashtags for x", map[string]any{"platform": "x", "content": "Launch day!", "hashtags": []string{"a", "b", "c"}}, true, false},
		{"too long for x", map[string]any{"platform": "x", "content": strings.Repeat("é", 281)}, true, false},
		{"no limits on web", map[string]any{"platform": "web", "content": strings.Repeat("w", 100000)}, true, true},
		{"unknown platform", map[string]any{"platform": "myspace", "content": "hi"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := env.call(t, ToolValidatePlatform, tt.args)
			if out["success"] != tt.wantSuccess {
				t.Fatalf("success = %v, want %v (error %v)", out["success"], tt.wantSuccess, out["error"])
			}
			if out["all_valid"] != tt.wantValid {
				t.Errorf("all_valid = %v, want %v", out["all_valid"], tt.wantValid)
			}
			if !tt.wantSuccess && out["error"] == "" {
				t.Error("failure without an error message")
			}
		})
	}
}

func TestValidatePlatformContent_CharacterCount(t *testing.T) {
	env := newTestEnv(t, false, false)
	out := env.call(t, ToolValidatePlatform, map[string]any{
		"platform": "linkedin",
		"content":  "Hello",
		"hashtags": []string{"#Go", "MCP"},
	})
	// "Hello #Go #MCP"
	if got := out["character_count"].(float64); got != 14 {
		t.Errorf("character_count = %v, want 14", got)
	}
	if got := out["hashtag_count"].(float64); got != 2 {
		t.Errorf("hashtag_count = %v, want 2", got)
	}
	if got := out["character_limit"].(float64); got != 3000 {
		t.Errorf("character_limit = %v, want 3000", got)
	}
}

func TestValidateContentForPlatforms(t *testing.T) {
	env := newTestEnv(t, false, false)
	out := env.call(t, ToolValidatePlatforms, map[string]any{
		"platforms": []string{"linkedin", "myspace", "x"},
		"content":   "We are hiring Go engineers",
		"hashtags":  []string{"hiring"},
	})
	if out["success"] != true {
		t.Fatalf("success = %v", out["success"])
	}
	if out["successful"].(float64) != 2 || out["failed"].(float64) != 1 {
		t.Errorf("successful = %v, failed = %v", out["successful"], out["failed"])
	}
	if out["all_valid"] != false {
		t.Error("all_valid should be false when a platform is unknown")
	}
	results := out["results"].([]any)
	if len(results) != 3 || results[1].(map[string]any)["platform"] != "myspace" {
		t.Errorf("results = %v", results)
	}
}

func TestValidatePlatformMedia(t *testing.T) {
	env := newTestEnv(t, false, false)
	out := env.call(t, ToolValidateMedia, map[string]any{"platform": "email", "size_bytes": 2 << 20, "image_count": 1})
	if out["success"] != true || out["all_valid"] != false {
		t.Errorf("email 2MB: %v", out)
	}
	out = env.call(t, ToolValidateMedia, map[string]any{"platform": "tiktok", "size_bytes": 1 << 30})
	if out["success"] != true || out["all_valid"] != true {
		t.Errorf("tiktok 1GB: %v", out)
	}
}

func TestGenerateImage(t *testing.T) {
	env := newTestEnv(t, true, true)
	out := env.call(t, ToolGenerateImage, map[string]any{"prompt": "a red bicycle", "number_of_images": 2})
	if out["success"] != true {
		t.Fatalf("success = %v, error = %v", out["success"], out["error"])
	}
	if got := out["estimated_cost_usd"].(float64); !floatEquals(got, 0.04) {
		t.Errorf("estimated_cost_usd = %v, want 0.04", got)
	}
	if out["number_of_images"].(float64) != 2 || out["model_version"] != "imagen-3.0" {
		t.Errorf("result = %v", out)
	}
	images := out["images"].([]any)
	if len(images) != 2 {
		t.Fatalf("images = %v", images)
	}
	path := images[0].(map[string]any)["path"].(string)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("image not saved: %v", err)
	}

	summary := env.call(t, ToolCostSummary, map[string]any{})
	if summary["success"] != true {
		t.Fatalf("cost summary: %v", summary)
	}
	total := summary["total"].(map[string]any)
	if !floatEquals(total["total_usd"].(float64), 0.04) || total["entries"].(float64) != 1 {
		t.Errorf("total = %v", total)
	}
	if recent := summary["recent"].([]any); len(recent) != 1 {
		t.Errorf("recent = %v", recent)
	}
}

func TestGenerateImage_NotConfigured(t *testing.T) {
	env := newTestEnv(t, false, false)
	out := env.call(t, ToolGenerateImage, map[string]any{"prompt": "a red bicycle"})
	if out["success"] != false {
		t.Fatalf("success = %v, want false", out["success"])
	}
	if msg, _ := out["error"].(string); !strings.Contains(msg, "GOOGLE_API_KEY") {
		t.Errorf("error = %q", msg)
	}
}

func TestGenerateImage_InvalidFormat(t *testing.T) {
	env := newTestEnv(t, true, false)
	out := env.call(t, ToolGenerateImage, map[string]any{"prompt": "a red bicycle", "output_format": "bmp"})
	if out["success"] != false {
		t.Errorf("success = %v, want false", out["success"])
	}
}

func TestGenerateVideo_NotConfigured(t *testing.T) {
	env := newTestEnv(t, false, false)
	out := env.call(t, ToolGenerateVideo, map[string]any{"prompt": "waves at dusk"})
	if out["success"] != false || out["error"] == "" {
		t.Errorf("result = %v", out)
	}
}

func TestMarketingContent_NotConfigured(t *testing.T) {
	env := newTestEnv(t, false, false)
	out := env.call(t, ToolMarketingContent, map[string]any{"content_type": "social_post", "topic": "new espresso machine"})
	if out["success"] != false || out["error"] == "" {
		t.Errorf("result = %v", out)
	}
}

func TestBatchGenerateImages(t *testing.T) {
	env := newTestEnv(t, true, false)
	out := env.call(t, ToolBatchImages, map[string]any{
		"prompts": []string{"a lighthouse", "fail this one", "a harbor"},
	})
	if out["success"] != true {
		t.Fatalf("success = %v", out["success"])
	}
	if out["total_images"].(float64) != 3 || out["successful"].(float64) != 2 || out["failed"].(float64) != 1 {
		t.Errorf("summary = %v", out)
	}
	if got := out["total_cost_usd"].(float64); !floatEquals(got, 0.04) {
		t.Errorf("total_cost_usd = %v, want 0.04", got)
	}
	if out["model_version"] != "imagen-3.0" {
		t.Errorf("model_version = %v", out["model_version"])
	}

	results := out["results"].([]any)
	second := results[1].(map[string]any)
	if second["success"] != false || second["index"].(float64) != 2 {
		t.Errorf("results[1] = %v", second)
	}
}

func TestBatchGenerateImages_NoPrompts(t *testing.T) {
	env := newTestEnv(t, true, false)
	out := env.call(t, ToolBatchImages, map[string]any{"prompts": []string{}})
	if out["success"] != false {
		t.Errorf("success = %v, want false", out["success"])
	}
}

func TestCampaignTools(t *testing.T) {
	env := newTestEnv(t, false, false)

	out := env.call(t, ToolCampaignConfig, map[string]any{"campaign_type": "product_launch"})
	if out["success"] != true {
		t.Fatalf("get_campaign_config: %v", out)
	}
	if specs := out["platform_specs"].([]any); len(specs) == 0 {
		t.Error("no platform specs in campaign config")
	}

	out = env.call(t, ToolCampaignConfig, map[string]any{"campaign_type": "flash_mob"})
	if out["success"] != false || len(out["available_types"].([]any)) == 0 {
		t.Errorf("unknown campaign: %v", out)
	}

	out = env.call(t, ToolCampaignCost, map[string]any{"campaign_type": "job_recruitment", "post_count": 10, "image_count": 5})
	if out["success"] != true || out["total_cost"].(float64) <= 0 {
		t.Errorf("estimate_campaign_cost: %v", out)
	}

	out = env.call(t, ToolCampaignCost, map[string]any{"campaign_type": "job_recruitment", "post_count": -1})
	if out["success"] != false {
		t.Errorf("negative post count: %v", out)
	}
}

func TestCostSummary_NoLedger(t *testing.T) {
	env := newTestEnv(t, false, false)
	out := env.call(t, ToolCostSummary, map[string]any{})
	if out["success"] != false || !strings.Contains(out["error"].(string), "ledger") {
		t.Errorf("result = %v", out)
	}
}

func readResource(t *testing.T, env *testEnv, uri string) map[string]any {
	t.Helper()
	res, err := env.session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		t.Fatalf("ReadResource(%s) error: %v", uri, err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &doc); err != nil {
		t.Fatalf("resource %s is not JSON: %v", uri, err)
	}
	return doc
}

func TestResources(t *testing.T) {
	env := newTestEnv(t, false, false)

	pricingDoc := readResource(t, env, PricingURI)
	prices := pricingDoc["pricing"].(map[string]any)
	if got := prices["imagen-3.0/1K"].(float64); !floatEquals(got, 0.02) {
		t.Errorf("imagen-3.0/1K = %v", got)
	}
	if got := prices["veo3"].(float64); !floatEquals(got, 0.75) {
		t.Errorf("veo3 = %v", got)
	}
	if pricingDoc["currency"] != "USD" || pricingDoc["last_updated"] != "2025-11-09" {
		t.Errorf("pricing doc = %v", pricingDoc)
	}

	modelsDoc := readResource(t, env, ModelsURI)
	images := modelsDoc["image_generation"].(map[string]any)
	if _, ok := images["imagen-4.0"]; !ok {
		t.Errorf("image models = %v", images)
	}
	veo := modelsDoc["video_generation"].(map[string]any)["veo-3.0"].(map[string]any)
	if veo["fps"].(float64) != 24 {
		t.Errorf("veo-3.0 = %v", veo)
	}

	platformsDoc := readResource(t, env, PlatformsURI)
	if specs := platformsDoc["platforms"].([]any); len(specs) != 13 {
		t.Errorf("platforms = %d, want 13", len(specs))
	}
}

func TestPrompts(t *testing.T) {
	env := newTestEnv(t, false, false)
	tests := map[string]string{
		"campaign_planner":      "marketing campaign strategist",
		"image_prompt_enhancer": "Imagen image generation",
	}
	for name, want := range tests {
		res, err := env.session.GetPrompt(context.Background(), &mcp.GetPromptParams{Name: name})
		if err != nil {
			t.Fatalf("GetPrompt(%s) error: %v", name, err)
		}
		text := res.Messages[0].Content.(*mcp.TextContent).Text
		if !strings.Contains(text, want) {
			t.Errorf("prompt %s = %q", name, text)
		}
	}
}

func TestHandler(t *testing.T) {
	env := newTestEnv(t, false, false)
	metrics.ObserveTool(ToolCostEstimate, true)

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("/health = %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "contentgen_tool_calls_total") {
		t.Error("/metrics does not expose tool call counters")
	}
}
