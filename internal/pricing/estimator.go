package pricing

import (
	"errors"
	"math"
)

const (
	LinePlaces    = 4
	TextPlaces    = 6
	SummaryPlaces = 2
)

// RoundUSD rounds half away from zero to the given number of decimal places.
func RoundUSD(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

type CostRequest struct {
	Images1K          int    `json:"images_1k"`
	Images2K          int    `json:"images_2k"`
	VideoSeconds      int    `json:"video_seconds"`
	ContentPieces     int    `json:"content_pieces"`
	AvgTokensPerPiece int    `json:"avg_tokens_per_piece,omitempty"`
	ImageModel        string `json:"image_model,omitempty"`
	VideoModel        string `json:"video_model,omitempty"`
	TextModel         string `json:"text_model,omitempty"`
}

type LineItem struct {
	Quantity     int     `json:"quantity"`
	UnitPriceUSD float64 `json:"unit_price_usd"`
	SubtotalUSD  float64 `json:"subtotal_usd"`
	Tier         Tier    `json:"tier"`
}

// Substitution records a requested model that was not priced and the
// default that was billed instead.
type Substitution struct {
	Kind      ResourceKind `json:"kind"`
	Requested string       `json:"requested"`
	Used      string       `json:"used"`
}

type CostBreakdown struct {
	ImageModel     ImageModel     `json:"image_model"`
	Images1K       LineItem       `json:"images_1k"`
	Images2K       LineItem       `json:"images_2k"`
	ImageTotalUSD  float64        `json:"image_total_usd"`
	VideoModel     VideoModel     `json:"video_model"`
	Video          LineItem       `json:"video"`
	TextModel      TextModel      `json:"text_model"`
	TokensPerPiece int            `json:"avg_tokens_per_piece"`
	Text           LineItem       `json:"text"`
	Substitutions  []Substitution `json:"substitutions,omitempty"`
	TotalUSD       float64        `json:"total_usd"`
}

// Estimator prices requests against a fixed table. It performs no I/O.
type Estimator struct {
	table *Table
}

func NewEstimator(table *Table) *Estimator {
	if table == nil {
		table = DefaultTable()
	}
	return &Estimator{table: table}
}

func (e *Estimator) Table() *Table {
	return e.table
}

func (e *Estimator) ImageCost(count int, tier Tier) (float64, error) {
	if count < 0 {
		return 0, &InvalidQuantityError{Field: "image count", Value: count}
	}
	entry, err := e.table.Lookup(KindImage, tier)
	if err != nil {
		return 0, err
	}
	return float64(count) * entry.UnitPriceUSD, nil
}

// VideoCost bills per second. Allowed clip lengths are enforced by the
// video provider, not here.
func (e *Estimator) VideoCost(seconds int, tier Tier) (float64, error) {
	if seconds < 0 {
		return 0, &InvalidQuantityError{Field: "video seconds", Value: seconds}
	}
	entry, err := e.table.Lookup(KindVideo, tier)
	if err != nil {
		return 0, err
	}
	return float64(seconds) * entry.UnitPriceUSD, nil
}

func (e *Estimator) TextCost(pieces, avgTokens int, tier Tier) (float64, error) {
	if pieces < 0 {
		return 0, &InvalidQuantityError{Field: "content pieces", Value: pieces}
	}
	if avgTokens < 0 {
		return 0, &InvalidQuantityError{Field: "avg tokens per piece", Value: avgTokens}
	}
	entry, err := e.table.Lookup(KindText, tier)
	if err != nil {
		return 0, err
	}
	return float64(pieces) * (float64(avgTokens) / 1000) * entry.UnitPriceUSD, nil
}

// TokensCost prices an exact token count, as reported by a text provider.
func (e *Estimator) TokensCost(tokens int, tier Tier) (float64, error) {
	return e.TextCost(1, tokens, tier)
}

func (e *Estimator) validate(req CostRequest) error {
	checks := []struct {
		field string
		value int
	}{
		{"images_1k", req.Images1K},
		{"images_2k", req.Images2K},
		{"video_seconds", req.VideoSeconds},
		{"content_pieces", req.ContentPieces},
		{"avg_tokens_per_piece", req.AvgTokensPerPiece},
	}
	for _, c := range checks {
		if c.value < 0 {
			return &InvalidQuantityError{Field: c.field, Value: c.value}
		}
	}
	return nil
}

// EstimateTotal prices a whole request. Unknown model names never fail the
// estimate: they are billed at the default model and listed in
// Substitutions. Subtotals are summed unrounded and rounded on output.
func (e *Estimator) EstimateTotal(req CostRequest) (*CostBreakdown, error) {
	if err := e.validate(req); err != nil {
		return nil, err
	}

	var subs []Substitution
	note := func(kind ResourceKind, requested, used string) {
		subs = append(subs, Substitution{Kind: kind, Requested: requested, Used: used})
	}

	imageModel, ok := ParseImageModel(req.ImageModel)
	if !ok {
		imageModel = DefaultImageModel
		if req.ImageModel != "" {
			note(KindImage, req.ImageModel, string(imageModel))
		}
	}
	videoModel, ok := ParseVideoModel(req.VideoModel)
	if !ok {
		videoModel = DefaultVideoModel
		if req.VideoModel != "" {
			note(KindVideo, req.VideoModel, string(videoModel))
		}
	}
	textModel, ok := ParseTextModel(req.TextModel)
	if !ok {
		textModel = DefaultTextModel
		if req.TextModel != "" {
			note(KindText, req.TextModel, string(textModel))
		}
	}
	tokens := req.AvgTokensPerPiece
	if tokens == 0 {
		tokens = DefaultTokensPerPiece
	}

	img1k, err := e.line(KindImage, ImageTier(imageModel, Res1K), ImageTier(DefaultImageModel, Res1K), req.Images1K, 1, note)
	if err != nil {
		return nil, err
	}
	img2k, err := e.line(KindImage, ImageTier(imageModel, Res2K), ImageTier(DefaultImageModel, Res2K), req.Images2K, 1, note)
	if err != nil {
		return nil, err
	}
	video, err := e.line(KindVideo, Tier(videoModel), Tier(DefaultVideoModel), req.VideoSeconds, 1, note)
	if err != nil {
		return nil, err
	}
	text, err := e.line(KindText, Tier(textModel), Tier(DefaultTextModel), req.ContentPieces, float64(tokens)/1000, note)
	if err != nil {
		return nil, err
	}

	imageTotal := img1k.raw + img2k.raw
	total := imageTotal + video.raw + text.raw

	return &CostBreakdown{
		ImageModel:     imageModel,
		Images1K:       img1k.item(LinePlaces),
		Images2K:       img2k.item(LinePlaces),
		ImageTotalUSD:  RoundUSD(imageTotal, LinePlaces),
		VideoModel:     videoModel,
		Video:          video.item(LinePlaces),
		TextModel:      textModel,
		TokensPerPiece: tokens,
		Text:           text.item(TextPlaces),
		Substitutions:  subs,
		TotalUSD:       RoundUSD(total, LinePlaces),
	}, nil
}

type rawLine struct {
	quantity int
	price    float64
	raw      float64
	tier     Tier
}

func (l rawLine) item(places int) LineItem {
	return LineItem{
		Quantity:     l.quantity,
		UnitPriceUSD: l.price,
		SubtotalUSD:  RoundUSD(l.raw, places),
		Tier:         l.tier,
	}
}

// line looks up tier, falling back to fallback when the table lacks it. A
// zero quantity never fails, so tables that omit a kind still price
// requests that do not use it.
func (e *Estimator) line(kind ResourceKind, tier, fallback Tier, qty int, scale float64, note func(ResourceKind, string, string)) (rawLine, error) {
	entry, err := e.table.Lookup(kind, tier)
	var unknown *UnknownTierError
	if errors.As(err, &unknown) && tier != fallback {
		entry, err = e.table.Lookup(kind, fallback)
		if err == nil {
			note(kind, string(tier), string(fallback))
		}
	}
	if err != nil {
		if qty == 0 {
			return rawLine{tier: tier}, nil
		}
		return rawLine{}, err
	}
	return rawLine{
		quantity: qty,
		price:    entry.UnitPriceUSD,
		raw:      float64(qty) * scale * entry.UnitPriceUSD,
		tier:     entry.Tier,
	}, nil
}
