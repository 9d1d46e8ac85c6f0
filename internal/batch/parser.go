package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

type Item struct {
	Index          int
	Prompt         string
	Model          string
	AspectRatio    string
	ImageSize      string
	NegativePrompt string
}

type jsonItem struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model_version,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	ImageSize      string `json:"image_size,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

// FromPrompts numbers plain prompts from 1. Blank prompts are kept so they
// show up as failed items rather than silently shifting the indexes.
func FromPrompts(prompts []string) ([]Item, error) {
	if len(prompts) == 0 {
		return nil, models.ErrNoPrompts
	}
	items := make([]Item, len(prompts))
	for i, p := range prompts {
		items[i] = Item{Index: i + 1, Prompt: p}
	}
	return items, nil
}

func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
}

// ParseText reads one prompt per line, skipping blanks and # comments.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		index++
		items = append(items, Item{
			Index:  index,
			Prompt: line,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, models.ErrNoPrompts
	}

	return items, nil
}

func ParseJSON(r io.Reader) ([]Item, error) {
	var jsonItems []jsonItem
	if err := json.NewDecoder(r).Decode(&jsonItems); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(jsonItems) == 0 {
		return nil, models.ErrNoPrompts
	}

	items := make([]Item, len(jsonItems))
	for i, ji := range jsonItems {
		if strings.TrimSpace(ji.Prompt) == "" {
			return nil, fmt.Errorf("item %d: %w", i+1, models.ErrEmptyPrompt)
		}
		items[i] = Item{
			Index:          i + 1,
			Prompt:         ji.Prompt,
			Model:          ji.Model,
			AspectRatio:    ji.AspectRatio,
			ImageSize:      ji.ImageSize,
			NegativePrompt: ji.NegativePrompt,
		}
	}

	return items, nil
}
