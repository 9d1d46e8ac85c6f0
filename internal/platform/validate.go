package platform

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Result is the outcome of checking one post against one platform. Limits
// are nil when the platform declares none.
type Result struct {
	Platform             ID   `json:"platform"`
	CharacterCount       int  `json:"character_count"`
	CharacterLimit       *int `json:"character_limit"`
	WithinCharacterLimit bool `json:"within_character_limit"`
	HashtagCount         int  `json:"hashtag_count"`
	HashtagLimit         *int `json:"hashtag_limit"`
	WithinHashtagLimit   bool `json:"within_hashtag_limit"`
	AllValid             bool `json:"all_valid"`
}

// RenderHashtags prefixes each tag with "#" unless it already has one and
// joins them with single spaces. Blank tags are dropped.
func RenderHashtags(hashtags []string) []string {
	out := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.TrimSpace(h)
		if h == "" || h == "#" {
			continue
		}
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		out = append(out, h)
	}
	return out
}

// ComposePost renders the text as published: body, one space, then the
// hashtags. The joining space is only added when there are hashtags.
func ComposePost(body string, hashtags []string) string {
	tags := RenderHashtags(hashtags)
	if len(tags) == 0 {
		return body
	}
	return body + " " + strings.Join(tags, " ")
}

// Validate checks body and hashtags against the limits of platform id.
// Characters are counted as Unicode code points over the composed post.
// Blank and bare "#" tags are not published, so they are not counted.
func (t *Table) Validate(id string, body string, hashtags []string) (*Result, error) {
	pid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	spec, err := t.Lookup(pid)
	if err != nil {
		return nil, err
	}

	chars := utf8.RuneCountInString(ComposePost(body, hashtags))
	tags := len(RenderHashtags(hashtags))

	r := &Result{
		Platform:             pid,
		CharacterCount:       chars,
		CharacterLimit:       spec.MaxChars,
		WithinCharacterLimit: spec.MaxChars == nil || chars <= *spec.MaxChars,
		HashtagCount:         tags,
		HashtagLimit:         spec.MaxHashtags,
		WithinHashtagLimit:   spec.MaxHashtags == nil || tags <= *spec.MaxHashtags,
	}
	r.AllValid = r.WithinCharacterLimit && r.WithinHashtagLimit
	return r, nil
}

type MediaResult struct {
	Platform        ID     `json:"platform"`
	SizeBytes       int64  `json:"size_bytes"`
	SizeLimitBytes  *int64 `json:"size_limit_bytes"`
	WithinSizeLimit bool   `json:"within_size_limit"`
	ImageCount      int    `json:"image_count"`
	ImageLimit      *int   `json:"image_limit"`
	WithinImages    bool   `json:"within_image_limit"`
	AspectRatio     string `json:"recommended_aspect_ratio"`
	AllValid        bool   `json:"all_valid"`
}

var ErrNegativeMedia = errors.New("media size and image count must be non-negative")

// ValidateMedia checks an attachment against the platform's file size and
// image count limits.
func (t *Table) ValidateMedia(id string, sizeBytes int64, imageCount int) (*MediaResult, error) {
	if sizeBytes < 0 || imageCount < 0 {
		return nil, ErrNegativeMedia
	}
	pid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	spec, err := t.Lookup(pid)
	if err != nil {
		return nil, err
	}

	r := &MediaResult{
		Platform:        pid,
		SizeBytes:       sizeBytes,
		WithinSizeLimit: true,
		ImageCount:      imageCount,
		ImageLimit:      spec.MaxImages,
		WithinImages:    spec.MaxImages == nil || imageCount <= *spec.MaxImages,
		AspectRatio:     spec.AspectRatio,
	}
	if limitBytes, ok := spec.MaxSizeBytes(); ok {
		r.SizeLimitBytes = &limitBytes
		r.WithinSizeLimit = sizeBytes <= limitBytes
	}
	r.AllValid = r.WithinSizeLimit && r.WithinImages
	return r, nil
}

type ItemResult struct {
	Platform string  `json:"platform"`
	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
	Result   *Result `json:"validation,omitempty"`
}

type BatchReport struct {
	Results    []ItemResult `json:"results"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	// AllValid is true when every platform was recognised and every post fits.
	AllValid bool `json:"all_valid"`
}

// ValidateAll validates the same post for each platform in order. A failed
// platform is recorded and the rest are still checked.
func (t *Table) ValidateAll(ids []string, body string, hashtags []string) *BatchReport {
	report := &BatchReport{Results: make([]ItemResult, 0, len(ids)), AllValid: len(ids) > 0}
	for _, id := range ids {
		res, err := t.Validate(id, body, hashtags)
		if err != nil {
			report.Failed++
			report.AllValid = false
			report.Results = append(report.Results, ItemResult{Platform: id, Error: err.Error()})
			continue
		}
		report.Successful++
		if !res.AllValid {
			report.AllValid = false
		}
		report.Results = append(report.Results, ItemResult{Platform: string(res.Platform), Success: true, Result: res})
	}
	return report
}
