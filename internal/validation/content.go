// Package validation holds the text predicates that decide whether scraped
// or user-generated text is worth treating as recipe content.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinIngredientLength  = 2
	MaxIngredientLength  = 200
	MinInstructionLength = 5
	MaxInstructionLength = 1000

	// MinDescriptionLength is the description length above which a video
	// description is sent to the extractor.
	MinDescriptionLength = 50
	// MinCommentLength is the length above which a non-uploader comment is
	// sent to the extractor.
	MinCommentLength = 100
)

// Section headers and page chrome that show up inside ingredient lists.
var ingredientExclusions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^ingredients?:?$`),
	regexp.MustCompile(`(?i)^for the`),
	regexp.MustCompile(`(?i)^recipe$`),
	regexp.MustCompile(`(?i)^print$`),
	regexp.MustCompile(`(?i)^pin$`),
	regexp.MustCompile(`(?i)^share$`),
	regexp.MustCompile(`(?i)^save$`),
}

var instructionExclusions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^instructions?:?$`),
	regexp.MustCompile(`(?i)^directions?:?$`),
	regexp.MustCompile(`(?i)^steps?:?$`),
	regexp.MustCompile(`(?i)^method:?$`),
	regexp.MustCompile(`(?i)^print$`),
	regexp.MustCompile(`(?i)^pin$`),
	regexp.MustCompile(`(?i)^share$`),
	regexp.MustCompile(`(?i)^save$`),
}

// ActionVerbs is the cooking vocabulary an instruction must mention.
var ActionVerbs = []string{
	"add", "mix", "stir", "pour", "bake", "cook", "heat", "place", "put",
	"remove", "cut", "chop", "slice", "combine", "whisk", "fold", "blend",
	"serve", "prepare",
}

// Verbs match anywhere in the text, so "preheat" and "premix" count.
var actionVerbPattern = regexp.MustCompile(`(?i)(?:` + strings.Join(ActionVerbs, "|") + `)`)

// IsValidIngredient reports whether text looks like an ingredient line rather
// than a header or a UI label.
func IsValidIngredient(text string) bool {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < MinIngredientLength || n > MaxIngredientLength {
		return false
	}
	return !matchesAny(ingredientExclusions, text)
}

// IsValidInstruction reports whether text looks like a cooking step.
func IsValidInstruction(text string) bool {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < MinInstructionLength || n >= MaxInstructionLength {
		return false
	}
	if matchesAny(instructionExclusions, text) {
		return false
	}
	return HasActionVerb(text)
}

// HasActionVerb reports whether text mentions a cooking action.
func HasActionVerb(text string) bool {
	return actionVerbPattern.MatchString(text)
}

// IsSubstantialDescription reports whether a video description is long enough
// to be worth an extraction call.
func IsSubstantialDescription(description string) bool {
	return utf8.RuneCountInString(description) > MinDescriptionLength
}

// ShouldTryComment reports whether a comment is worth an extraction call:
// the uploader wrote it, or it is long enough to hold a recipe.
func ShouldTryComment(text string, authorIsUploader bool) bool {
	return authorIsUploader || utf8.RuneCountInString(text) > MinCommentLength
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
