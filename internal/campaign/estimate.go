package campaign

import "github.com/vanman2024/content-image-generation-mcp/internal/pricing"

// Flat campaign-planning rates, kept apart from the generation price table.
const (
	PostingCostPerPost     = 0.35
	ImageCostPerImage      = 0.04
	VideoCostPerSecond     = 0.15
	CopywritingCostPerPost = 0.06

	DefaultVideoSeconds = 30
)

type CostLine struct {
	Count       int     `json:"count"`
	SecondsEach int     `json:"seconds_each,omitempty"`
	UnitCost    float64 `json:"unit_cost"`
	Total       float64 `json:"total"`
}

type Estimate struct {
	CampaignType string   `json:"campaign_type"`
	SocialPosts  CostLine `json:"social_posts"`
	Images       CostLine `json:"images"`
	Videos       CostLine `json:"videos"`
	Copywriting  CostLine `json:"content_generation"`
	TotalCost    float64  `json:"total_cost"`
	CostPerPost  float64  `json:"cost_per_post"`
}

// EstimateCost budgets a campaign. All figures are rounded to cents. The
// campaign type must be one of Types().
func EstimateCost(campaignType string, posts, images, videos, videoSeconds int) (*Estimate, error) {
	if _, err := Lookup(campaignType); err != nil {
		return nil, err
	}
	for _, q := range []struct {
		field string
		v     int
	}{{"post_count", posts}, {"image_count", images}, {"video_count", videos}, {"video_length_seconds", videoSeconds}} {
		if q.v < 0 {
			return nil, &pricing.InvalidQuantityError{Field: q.field, Value: q.v}
		}
	}

	postCost := float64(posts) * PostingCostPerPost
	imageCost := float64(images) * ImageCostPerImage
	videoCost := float64(videos) * float64(videoSeconds) * VideoCostPerSecond
	copyCost := float64(posts) * CopywritingCostPerPost
	total := postCost + imageCost + videoCost + copyCost

	round := func(v float64) float64 { return pricing.RoundUSD(v, pricing.SummaryPlaces) }

	est := &Estimate{
		CampaignType: campaignType,
		SocialPosts:  CostLine{Count: posts, UnitCost: PostingCostPerPost, Total: round(postCost)},
		Images:       CostLine{Count: images, UnitCost: ImageCostPerImage, Total: round(imageCost)},
		Videos:       CostLine{Count: videos, SecondsEach: videoSeconds, UnitCost: VideoCostPerSecond, Total: round(videoCost)},
		Copywriting:  CostLine{Count: posts, UnitCost: CopywritingCostPerPost, Total: round(copyCost)},
		TotalCost:    round(total),
	}
	if posts > 0 {
		est.CostPerPost = round(total / float64(posts))
	}
	return est, nil
}
