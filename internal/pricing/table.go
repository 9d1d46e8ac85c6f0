package pricing

import (
	"fmt"
	"strings"
)

// ResourceKind is what a price is charged for.
type ResourceKind string

const (
	KindImage ResourceKind = "image"
	KindVideo ResourceKind = "video"
	KindText  ResourceKind = "text"
)

// Unit is the billing unit of an entry.
type Unit string

const (
	UnitPerImage    Unit = "per image"
	UnitPerSecond   Unit = "per second"
	UnitPer1KTokens Unit = "per 1000 tokens"
)

const (
	CurrencyUSD = "USD"
	// LastUpdated is the date the default prices were taken from the Gemini API price list.
	LastUpdated = "2025-11-09"

	DefaultTokensPerPiece = 500
)

// Tier is a pricing-table key within a resource kind, e.g. "imagen-3.0/1K" or "veo3".
type Tier string

// ImageModel is an Imagen pricing family.
type ImageModel string

const (
	Imagen3 ImageModel = "imagen-3.0"
	Imagen4 ImageModel = "imagen-4.0"
)

// Resolution is the output size an image is billed at.
type Resolution string

const (
	Res1K Resolution = "1K"
	Res2K Resolution = "2K"
)

// VideoModel is a Veo pricing tier, billed per second.
type VideoModel string

const (
	Veo2     VideoModel = "veo2"
	Veo3     VideoModel = "veo3"
	Veo3Fast VideoModel = "veo3_fast"
)

// TextModel is a copywriting model, billed per 1000 tokens.
type TextModel string

const (
	ClaudeSonnet TextModel = "claude_sonnet"
	GeminiFlash  TextModel = "gemini_flash"
)

// Models used when a request names none or names one that is not priced.
const (
	DefaultImageModel = Imagen3
	DefaultVideoModel = Veo3
	DefaultTextModel  = GeminiFlash
)

// ImageTier builds the table key of an image family at a resolution.
func ImageTier(m ImageModel, r Resolution) Tier {
	return Tier(string(m) + "/" + string(r))
}

// ParseImageModel maps model names and their variants onto a pricing family.
// Any name containing "4" is billed as imagen-4.0, so "4.0", "imagen 4" and
// every Imagen 4 variant (standard, ultra, fast) land there. Other Imagen
// names are imagen-3.0; anything else is unknown.
func ParseImageModel(s string) (ImageModel, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	switch {
	case n == "":
		return "", false
	case strings.Contains(n, "4"):
		return Imagen4, true
	case strings.Contains(n, "imagen"):
		return Imagen3, true
	}
	return "", false
}

// ParseResolution accepts 1K and 2K in any case.
func ParseResolution(s string) (Resolution, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1K":
		return Res1K, true
	case "2K":
		return Res2K, true
	}
	return "", false
}

// ParseVideoModel accepts veo2, veo3 and veo3_fast, case-insensitive, with
// dashes or underscores.
func ParseVideoModel(s string) (VideoModel, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "-", "_")
	switch VideoModel(n) {
	case Veo2, Veo3, Veo3Fast:
		return VideoModel(n), true
	}
	return "", false
}

// ParseTextModel accepts the canonical names plus the claude and gemini
// shorthands.
func ParseTextModel(s string) (TextModel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "claude", "claude_sonnet", "claude-sonnet", "claude-sonnet-4":
		return ClaudeSonnet, true
	case "gemini", "gemini_flash", "gemini-flash", "gemini-2.5-flash":
		return GeminiFlash, true
	}
	return "", false
}

// Entry is one priced tier. Entries are values and never change after the
// table is built.
type Entry struct {
	Kind         ResourceKind `json:"kind"`
	Tier         Tier         `json:"tier"`
	Unit         Unit         `json:"unit"`
	UnitPriceUSD float64      `json:"unit_price_usd"`
}

type tableKey struct {
	kind ResourceKind
	tier Tier
}

// Table is a read-only price list. It has no mutation methods; build a new
// one with NewTable to change prices.
type Table struct {
	entries map[tableKey]Entry
	order   []tableKey
}

// NewTable builds a table from entries. Negative prices and duplicate
// (kind, tier) pairs are rejected.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{entries: make(map[tableKey]Entry, len(entries))}
	for _, e := range entries {
		if e.UnitPriceUSD < 0 {
			return nil, fmt.Errorf("%s tier %q: negative unit price %v", e.Kind, e.Tier, e.UnitPriceUSD)
		}
		k := tableKey{e.Kind, e.Tier}
		if _, dup := t.entries[k]; dup {
			return nil, fmt.Errorf("%s tier %q: duplicate entry", e.Kind, e.Tier)
		}
		t.entries[k] = e
		t.order = append(t.order, k)
	}
	return t, nil
}

// Lookup returns the entry for kind and tier or an *UnknownTierError.
func (t *Table) Lookup(kind ResourceKind, tier Tier) (Entry, error) {
	e, ok := t.entries[tableKey{kind, tier}]
	if !ok {
		return Entry{}, &UnknownTierError{Kind: kind, Tier: tier}
	}
	return e, nil
}

// Entries returns a copy of the table in definition order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.entries[k])
	}
	return out
}

// Prices flattens the table to tier -> price, the shape published by the
// pricing resource.
func (t *Table) Prices() map[string]float64 {
	out := make(map[string]float64, len(t.order))
	for _, k := range t.order {
		out[string(k.tier)] = t.entries[k].UnitPriceUSD
	}
	return out
}

var defaultEntries = []Entry{
	{KindImage, ImageTier(Imagen3, Res1K), UnitPerImage, 0.02},
	{KindImage, ImageTier(Imagen3, Res2K), UnitPerImage, 0.04},
	{KindImage, ImageTier(Imagen4, Res1K), UnitPerImage, 0.04},
	{KindImage, ImageTier(Imagen4, Res2K), UnitPerImage, 0.08},
	{KindVideo, Tier(Veo2), UnitPerSecond, 0.40},
	{KindVideo, Tier(Veo3), UnitPerSecond, 0.75},
	{KindVideo, Tier(Veo3Fast), UnitPerSecond, 0.40},
	{KindText, Tier(ClaudeSonnet), UnitPer1KTokens, 0.003},
	{KindText, Tier(GeminiFlash), UnitPer1KTokens, 0.0005},
}

var defaultTable = mustTable(defaultEntries...)

// DefaultTable returns the process-wide price list.
func DefaultTable() *Table {
	return defaultTable
}

// WithOverrides returns a new table equal to base with the given prices
// replaced. Used once at startup when the config file carries overrides.
func WithOverrides(base *Table, overrides []Entry) (*Table, error) {
	replaced := make(map[tableKey]Entry, len(overrides))
	for _, o := range overrides {
		k := tableKey{o.Kind, o.Tier}
		if _, ok := base.entries[k]; !ok {
			return nil, &UnknownTierError{Kind: o.Kind, Tier: o.Tier}
		}
		replaced[k] = o
	}
	merged := make([]Entry, 0, len(base.order))
	for _, k := range base.order {
		e := base.entries[k]
		if o, ok := replaced[k]; ok {
			e.UnitPriceUSD = o.UnitPriceUSD
		}
		merged = append(merged, e)
	}
	return NewTable(merged...)
}

func mustTable(entries ...Entry) *Table {
	t, err := NewTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}
