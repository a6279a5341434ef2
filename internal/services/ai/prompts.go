// Package ai builds the prompts sent to the generative extraction backend.
package ai

import (
	"fmt"
	"strings"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

const roleSection = `<ROLE>
You are a recipe extraction AI. You read recipe content and return it as a small, strict JSON object.
</ROLE>`

const textTaskSection = `<TASK>
Extract the recipe from the text below.

Video Title: %s

Recipe Text:
%s
</TASK>`

const tiktokTaskSection = `<TASK>
Extract the recipe from this TikTok caption. TikTok captions are short and mix the recipe with hashtags, emojis and calls to action.

Caption Title: %s

Caption:
%s
</TASK>`

const mediaTaskSection = `<TASK>
Analyze this cooking video and extract the recipe information.
</TASK>`

const textFieldsSection = `<EXTRACT>
1. Recipe title (use the video title if no specific recipe title in text)
2. Ingredients list (with exact quantities as stated)
3. Cooking steps/instructions (in order, if available)
4. Language of the content (en for English, zh for Chinese, etc.)
</EXTRACT>`

const tiktokFieldsSection = `<EXTRACT>
1. Recipe title: write a short descriptive dish name. Do not copy hashtags, emojis or phrases like "follow for more" into the title
2. Ingredients list (with exact quantities as stated). Hashtags naming an ingredient count only when the caption has no ingredient list
3. Cooking steps/instructions (in order, if available)
4. Language of the content (en for English, zh for Chinese, etc.)
</EXTRACT>`

const mediaFieldsSection = `<EXTRACT>
1. Recipe title (create a descriptive name if not explicitly stated)
2. Ingredients list (with quantities if mentioned)
3. Cooking steps/instructions (in order)
4. Language of the content (en for English, zh for Chinese, etc.)
</EXTRACT>`

const outputFormatSection = `<OUTPUT_FORMAT>
Return the information in the following JSON format:
{
  "title": "Recipe Name",
  "ingredients": ["ingredient 1 with quantity", "ingredient 2 with quantity"],
  "steps": ["step 1", "step 2"],
  "language": "en"
}
</OUTPUT_FORMAT>`

const textGuidelinesSection = `<GUIDELINES>
- Keep all quantities EXACTLY as stated
- If no steps are provided, return an empty steps array []
- Be concise but complete
- If the content is in Chinese, keep it in Chinese but set language to "zh"
- If this is not a recipe, return: {"error": "Not a recipe"}
</GUIDELINES>`

const mediaGuidelinesSection = `<GUIDELINES>
- If ingredients appear as text overlays in the video, extract them
- If ingredients are spoken, transcribe them
- Keep ingredient quantities and units
- Keep steps in the order they are shown
- Be concise but complete
- If the video is in Chinese, keep content in Chinese but set language to "zh"
- If this is not a cooking/recipe video, return: {"error": "Not a recipe video"}
</GUIDELINES>`

const closingInstruction = `Return ONLY the JSON object, no other text.`

func getPlatformContext(platform recipe.Platform) string {
	switch platform {
	case recipe.PlatformYouTube:
		return `<PLATFORM_CONTEXT>
This content comes from YouTube. Descriptions often hold a full ingredient list followed by links, sponsors and chapter timestamps. Ignore everything that is not part of the recipe.
</PLATFORM_CONTEXT>`
	case recipe.PlatformInstagram:
		return `<PLATFORM_CONTEXT>
This content comes from Instagram. Captions may format ingredients with emojis or bullet points and often end with hashtags. Informal measurements ("a splash of", "a handful") should be kept as written.
</PLATFORM_CONTEXT>`
	case recipe.PlatformTikTok:
		return `<PLATFORM_CONTEXT>
This content comes from TikTok. Videos are fast-paced and the recipe is often spoken in voiceover or shown as on-screen text rather than written in the caption.
</PLATFORM_CONTEXT>`
	case recipe.PlatformWebsite:
		return `<PLATFORM_CONTEXT>
This content is the visible text of a recipe web page. Skip navigation, comments, ads and related-recipe teasers.
</PLATFORM_CONTEXT>`
	default:
		return ""
	}
}

// BuildTextPrompt builds the prompt for extracting a recipe from a caption,
// description, comment or page text. TikTok captions get a prompt that asks
// the model to write its own title instead of reusing the caption.
func BuildTextPrompt(platform recipe.Platform, title, text string) string {
	task, fields := textTaskSection, textFieldsSection
	if platform == recipe.PlatformTikTok {
		task, fields = tiktokTaskSection, tiktokFieldsSection
	}

	sections := []string{
		roleSection,
		getPlatformContext(platform),
		fmt.Sprintf(task, strings.TrimSpace(title), strings.TrimSpace(text)),
		fields,
		outputFormatSection,
		textGuidelinesSection,
		closingInstruction,
	}
	return joinSections(sections)
}

// BuildMediaPrompt builds the prompt sent alongside a downloaded video.
func BuildMediaPrompt(platform recipe.Platform) string {
	return joinSections([]string{
		roleSection,
		getPlatformContext(platform),
		mediaTaskSection,
		mediaFieldsSection,
		outputFormatSection,
		mediaGuidelinesSection,
		closingInstruction,
	})
}

func joinSections(sections []string) string {
	var sb strings.Builder
	for _, s := range sections {
		if s == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s)
	}
	return sb.String()
}
