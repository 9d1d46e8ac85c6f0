package campaign

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanman2024/content-image-generation-mcp/internal/platform"
)

type Template struct {
	Name             string
	Platforms        []platform.ID
	ContentStyle     string
	VisualStyle      string
	PostingFrequency string
	OptimalTimes     []string
	HashtagStrategy  string
	CTAPattern       string
}

var templates = map[string]Template{
	"job_recruitment": {
		Name:             "Job Recruitment",
		Platforms:        []platform.ID{platform.LinkedIn, platform.X, platform.Facebook, platform.Threads},
		ContentStyle:     "Professional, benefits-focused, clear requirements",
		VisualStyle:      "Office environment, team collaboration, company culture",
		PostingFrequency: "2-3 times per week per position",
		OptimalTimes:     []string{"Tuesday 10am", "Wednesday 3pm", "Thursday 11am"},
		HashtagStrategy:  "Mix of role (#SeniorDeveloper), tech (#Python), and location (#RemoteJob)",
		CTAPattern:       "Apply now, View details, Join our team",
	},
	"product_launch": {
		Name:             "Product Marketing",
		Platforms:        []platform.ID{platform.Instagram, platform.TikTok, platform.Pinterest, platform.YouTube, platform.X},
		ContentStyle:     "Benefit-driven, problem-solution, feature highlights",
		VisualStyle:      "Product mockups, UI screenshots, lifestyle context",
		PostingFrequency: "Daily leading to launch, 3x/week post-launch",
		OptimalTimes:     []string{"Monday 9am", "Wednesday 1pm", "Friday 4pm"},
		HashtagStrategy:  "Product category (#AITools), use case (#Productivity), industry (#SaaS)",
		CTAPattern:       "Learn more, Try free trial, Get early access",
	},
	"event_promotion": {
		Name:             "Event Marketing",
		Platforms:        []platform.ID{platform.LinkedIn, platform.Facebook, platform.Instagram, platform.Threads, platform.X},
		ContentStyle:     "Excitement-building, speaker highlights, agenda teasers",
		VisualStyle:      "Venue photos, speaker headshots, schedule graphics",
		PostingFrequency: "Weekly countdown, daily week-of, hourly day-of",
		OptimalTimes:     []string{"Monday 8am", "Thursday 2pm", "Sunday 6pm"},
		HashtagStrategy:  "Event name (#TechConf2025), topic (#AIConference), location (#SFEvents)",
		CTAPattern:       "Register now, Save your spot, Get tickets",
	},
	"service_marketing": {
		Name:             "Service Marketing",
		Platforms:        []platform.ID{platform.LinkedIn, platform.GoogleBusiness, platform.Facebook, platform.Instagram, platform.YouTube},
		ContentStyle:     "Trust-building, case studies, client testimonials",
		VisualStyle:      "Client success stories, before/after, process diagrams",
		PostingFrequency: "2-3 times per week, consistent schedule",
		OptimalTimes:     []string{"Tuesday 9am", "Thursday 2pm", "Saturday 10am"},
		HashtagStrategy:  "Service type (#Consulting), industry (#TechServices), value (#BusinessGrowth)",
		CTAPattern:       "Schedule consultation, Get quote, Learn more",
	},
	"content_marketing": {
		Name:             "Content Marketing",
		Platforms:        []platform.ID{platform.LinkedIn, platform.X, platform.Threads, platform.Reddit, platform.Medium},
		ContentStyle:     "Educational, insight-driven, actionable tips",
		VisualStyle:      "Infographics, data visualizations, quote cards",
		PostingFrequency: "Daily or multiple times per day",
		OptimalTimes:     []string{"Monday 7am", "Wednesday 12pm", "Friday 5pm"},
		HashtagStrategy:  "Topic (#MarketingTips), industry (#B2BMarketing), format (#Infographic)",
		CTAPattern:       "Read full article, Download guide, Subscribe for more",
	},
	"recruitment_agency": {
		Name:             "Recruitment Agency Portfolio",
		Platforms:        []platform.ID{platform.LinkedIn, platform.X, platform.Facebook, platform.Instagram},
		ContentStyle:     "Mix of job listings, career advice, industry insights",
		VisualStyle:      "Professional settings, success stories, career tips graphics",
		PostingFrequency: "Daily job posts + 2-3x weekly thought leadership",
		OptimalTimes:     []string{"Monday 8am", "Wednesday 11am", "Friday 3pm"},
		HashtagStrategy:  "Job titles, skills, locations, career advice topics",
		CTAPattern:       "Apply now, Contact recruiter, View all jobs",
	},
}

type UnknownCampaignError struct {
	Type      string
	Available []string
}

func (e *UnknownCampaignError) Error() string {
	return fmt.Sprintf("unknown campaign type %q (available: %s)", e.Type, strings.Join(e.Available, ", "))
}

// Types lists the campaign types in alphabetical order.
func Types() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Lookup(campaignType string) (Template, error) {
	t, ok := templates[strings.ToLower(strings.TrimSpace(campaignType))]
	if !ok {
		return Template{}, &UnknownCampaignError{Type: campaignType, Available: Types()}
	}
	return t, nil
}

type Config struct {
	CampaignType         string             `json:"campaign_type"`
	RecommendedPlatforms []platform.ID      `json:"recommended_platforms"`
	ContentGuidelines    ContentGuidelines  `json:"content_guidelines"`
	VisualGuidelines     VisualGuidelines   `json:"visual_guidelines"`
	EngagementStrategy   EngagementStrategy `json:"engagement_strategy"`
	PlatformSpecs        []platform.Spec    `json:"platform_specs"`
}

type ContentGuidelines struct {
	Style            string   `json:"style"`
	PostingFrequency string   `json:"posting_frequency"`
	OptimalTimes     []string `json:"optimal_times"`
}

type VisualGuidelines struct {
	Style string `json:"style"`
}

type EngagementStrategy struct {
	Hashtags     string `json:"hashtags"`
	CallToAction string `json:"call_to_action"`
}

// ConfigFor renders the planning config for a campaign type, including the
// publishing limits of each recommended platform.
func ConfigFor(campaignType string, table *platform.Table) (*Config, error) {
	t, err := Lookup(campaignType)
	if err != nil {
		return nil, err
	}
	specs := make([]platform.Spec, 0, len(t.Platforms))
	for _, id := range t.Platforms {
		s, err := table.Lookup(id)
		if err != nil {
			return nil, fmt.Errorf("campaign %s: %w", campaignType, err)
		}
		specs = append(specs, s)
	}
	return &Config{
		CampaignType:         t.Name,
		RecommendedPlatforms: append([]platform.ID(nil), t.Platforms...),
		ContentGuidelines: ContentGuidelines{
			Style:            t.ContentStyle,
			PostingFrequency: t.PostingFrequency,
			OptimalTimes:     append([]string(nil), t.OptimalTimes...),
		},
		VisualGuidelines: VisualGuidelines{Style: t.VisualStyle},
		EngagementStrategy: EngagementStrategy{
			Hashtags:     t.HashtagStrategy,
			CallToAction: t.CTAPattern,
		},
		PlatformSpecs: specs,
	}, nil
}
