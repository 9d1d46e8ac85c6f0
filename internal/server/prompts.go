package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const campaignPlannerText = `You are a marketing campaign strategist. Help plan a comprehensive marketing campaign.

Please provide:
1. Campaign objective and target audience
2. Key messages and value propositions
3. Content mix (images, videos, copy)
4. Channel strategy (social, email, ads)
5. Timeline and milestones

I'll help you:
- Generate cost estimates
- Create visual assets with Imagen
- Produce video content with Veo
- Write compelling copy with Claude/Gemini
- Optimize for different platforms

What campaign would you like to plan?`

const imagePromptEnhancerText = `I'll help you create better prompts for Imagen image generation.

For best results, include:
- **Subject**: What is the main focus?
- **Style**: Photography, illustration, 3D render, etc.
- **Mood**: Professional, playful, luxurious, etc.
- **Composition**: Layout, framing, perspective
- **Details**: Colors, lighting, background, textures
- **Quality terms**: High detail, sharp focus, professional lighting

Example: "Professional product photography of a smartphone, centered composition,
white background, soft studio lighting, high detail, commercial quality, modern and clean aesthetic"

What image do you want to create?`

func (s *Server) registerPrompts() {
	s.addTextPrompt("campaign_planner", "Generate a comprehensive marketing campaign plan.", campaignPlannerText)
	s.addTextPrompt("image_prompt_enhancer", "Enhance image generation prompts for better results.", imagePromptEnhancerText)
}

func (s *Server) addTextPrompt(name, description, text string) {
	s.mcp.AddPrompt(&mcp.Prompt{Name: name, Description: description},
		func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return &mcp.GetPromptResult{
				Description: description,
				Messages: []*mcp.PromptMessage{
					{Role: "user", Content: &mcp.TextContent{Text: text}},
				},
			}, nil
		})
}
