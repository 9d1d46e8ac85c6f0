package platform

import (
	"fmt"
	"sort"
	"strings"
)

// ID names a publishing platform.
type ID string

const (
	LinkedIn       ID = "linkedin"
	X              ID = "x"
	Facebook       ID = "facebook"
	Instagram      ID = "instagram"
	Threads        ID = "threads"
	TikTok         ID = "tiktok"
	Pinterest      ID = "pinterest"
	YouTube        ID = "youtube"
	GoogleBusiness ID = "google_business"
	Reddit         ID = "reddit"
	Medium         ID = "medium"
	Web            ID = "web"
	Email          ID = "email"
)

var knownIDs = []ID{
	LinkedIn, X, Facebook, Instagram, Threads, TikTok, Pinterest,
	YouTube, GoogleBusiness, Reddit, Medium, Web, Email,
}

var aliases = map[string]ID{
	"twitter":         X,
	"google-business": GoogleBusiness,
	"gmb":             GoogleBusiness,
}

// UnknownPlatformError is returned for identifiers outside the known set.
// Platform lookups never fall back to a default.
type UnknownPlatformError struct {
	Platform string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("unknown platform %q", e.Platform)
}

// ParseID normalizes s and resolves aliases such as twitter. Unknown names
// return an *UnknownPlatformError.
func ParseID(s string) (ID, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	for _, id := range knownIDs {
		if string(id) == n {
			return id, nil
		}
	}
	if id, ok := aliases[n]; ok {
		return id, nil
	}
	return "", &UnknownPlatformError{Platform: s}
}

// IDs returns every known platform in table order.
func IDs() []ID {
	return append([]ID(nil), knownIDs...)
}

// Spec holds the publishing limits of one platform. A nil limit means the
// platform declares none, which is not the same as a limit of zero.
type Spec struct {
	ID             ID     `json:"platform"`
	AspectRatio    string `json:"aspect_ratio"`
	AltAspectRatio string `json:"alt_aspect_ratio,omitempty"`
	MaxChars       *int   `json:"max_chars,omitempty"`
	MaxHashtags    *int   `json:"max_hashtags,omitempty"`
	MaxSizeMB      *int   `json:"max_size_mb,omitempty"`
	MaxSizeGB      *int   `json:"max_size_gb,omitempty"`
	MaxImages      *int   `json:"max_images,omitempty"`
	CaptionStyle   string `json:"caption_style"`
}

// MaxSizeBytes folds the MB and GB limits into bytes. The bool is false when
// neither is set.
func (s Spec) MaxSizeBytes() (int64, bool) {
	switch {
	case s.MaxSizeMB != nil:
		return int64(*s.MaxSizeMB) << 20, true
	case s.MaxSizeGB != nil:
		return int64(*s.MaxSizeGB) << 30, true
	}
	return 0, false
}

// Table is a read-only set of platform specs.
type Table struct {
	specs map[ID]Spec
}

// NewTable creates a table from specs. A later spec for the same ID wins.
func NewTable(specs ...Spec) *Table {
	t := &Table{specs: make(map[ID]Spec, len(specs))}
	for _, s := range specs {
		t.specs[s.ID] = s
	}
	return t
}

// Lookup returns the spec for id or an *UnknownPlatformError.
func (t *Table) Lookup(id ID) (Spec, error) {
	s, ok := t.specs[id]
	if !ok {
		return Spec{}, &UnknownPlatformError{Platform: string(id)}
	}
	return s, nil
}

// Specs returns every spec ordered by platform id.
func (t *Table) Specs() []Spec {
	out := make([]Spec, 0, len(t.specs))
	for _, s := range t.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func limit(n int) *int { return &n }

var defaultTable = NewTable(
	Spec{ID: LinkedIn, AspectRatio: "1.91:1", AltAspectRatio: "1:1", MaxChars: limit(3000), MaxHashtags: limit(5), MaxSizeMB: limit(5), MaxImages: limit(9), CaptionStyle: "professional"},
	Spec{ID: X, AspectRatio: "16:9", AltAspectRatio: "1:1", MaxChars: limit(280), MaxHashtags: limit(2), MaxSizeMB: limit(5), MaxImages: limit(4), CaptionStyle: "concise"},
	Spec{ID: Facebook, AspectRatio: "1.91:1", AltAspectRatio: "1:1", MaxChars: limit(63206), MaxHashtags: limit(3), MaxSizeMB: limit(10), MaxImages: limit(10), CaptionStyle: "conversational"},
	Spec{ID: Instagram, AspectRatio: "1:1", AltAspectRatio: "4:5", MaxChars: limit(2200), MaxHashtags: limit(30), MaxSizeMB: limit(8), MaxImages: limit(10), CaptionStyle: "visual-first"},
	Spec{ID: Threads, AspectRatio: "1:1", AltAspectRatio: "4:5", MaxChars: limit(500), MaxHashtags: limit(1), MaxSizeMB: limit(8), MaxImages: limit(10), CaptionStyle: "casual"},
	Spec{ID: TikTok, AspectRatio: "9:16", MaxChars: limit(2200), MaxHashtags: limit(5), MaxSizeGB: limit(4), CaptionStyle: "hook-first"},
	Spec{ID: Pinterest, AspectRatio: "2:3", AltAspectRatio: "1:1", MaxChars: limit(500), MaxHashtags: limit(20), MaxSizeMB: limit(20), MaxImages: limit(5), CaptionStyle: "keyword-rich"},
	Spec{ID: YouTube, AspectRatio: "16:9", AltAspectRatio: "9:16", MaxChars: limit(5000), MaxHashtags: limit(15), MaxSizeGB: limit(256), CaptionStyle: "descriptive"},
	Spec{ID: GoogleBusiness, AspectRatio: "4:3", AltAspectRatio: "1:1", MaxChars: limit(1500), MaxSizeMB: limit(5), MaxImages: limit(10), CaptionStyle: "local"},
	Spec{ID: Reddit, AspectRatio: "16:9", AltAspectRatio: "1:1", MaxChars: limit(40000), MaxSizeMB: limit(20), MaxImages: limit(20), CaptionStyle: "community"},
	Spec{ID: Medium, AspectRatio: "16:9", MaxSizeMB: limit(25), CaptionStyle: "long-form"},
	Spec{ID: Web, AspectRatio: "16:9", AltAspectRatio: "1:1", CaptionStyle: "none"},
	Spec{ID: Email, AspectRatio: "2:1", AltAspectRatio: "1:1", MaxSizeMB: limit(1), CaptionStyle: "none"},
)

// DefaultTable returns the built-in platform limits.
func DefaultTable() *Table {
	return defaultTable
}
