package recipe

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/socialchef/recipekeeper/internal/errors"
	model "github.com/socialchef/recipekeeper/internal/recipe"
	"github.com/socialchef/recipekeeper/internal/services/ai"
)

const maxLoggedReply = 2000

const quotaMessage = "QUOTA_EXCEEDED: the recipe extraction model's daily quota is exhausted. Please wait for the quota to reset and try again."

// TextInput is free text (a caption, description, comment or page text) to
// extract a recipe from, plus the metadata copied onto the result.
type TextInput struct {
	Text         string
	Title        string
	SourceURL    string
	Platform     model.Platform
	ThumbnailURL string
	Author       string
}

// MediaInput is a downloaded video to extract a recipe from.
type MediaInput struct {
	Path         string
	MIMEType     string
	SourceURL    string
	Platform     model.Platform
	ThumbnailURL string
	Author       string
}

// Extractor prompts a Generator and turns its reply into a recipe record.
type Extractor struct {
	generator Generator
}

// NewExtractor creates a new extractor backed by the given generator
func NewExtractor(generator Generator) *Extractor {
	return &Extractor{generator: generator}
}

// ExtractFromText returns nil, nil when the model finds no recipe, when the
// reply is malformed, or when generation fails for a non-quota reason. A
// quota failure is returned as a QuotaExceeded AppError.
func (e *Extractor) ExtractFromText(ctx context.Context, in TextInput) (*model.Recipe, error) {
	prompt := ai.BuildTextPrompt(in.Platform, in.Title, in.Text)
	return e.run(ctx, prompt, nil, in.SourceURL, in.Platform, in.ThumbnailURL, in.Author)
}

// ExtractFromMedia behaves like ExtractFromText for a video file.
func (e *Extractor) ExtractFromMedia(ctx context.Context, in MediaInput) (*model.Recipe, error) {
	media := &Media{Path: in.Path, MIMEType: in.MIMEType}
	return e.run(ctx, ai.BuildMediaPrompt(in.Platform), media, in.SourceURL, in.Platform, in.ThumbnailURL, in.Author)
}

func (e *Extractor) run(ctx context.Context, prompt string, media *Media, sourceURL string, platform model.Platform, thumbnail, author string) (*model.Recipe, error) {
	raw, err := e.generator.Generate(ctx, prompt, media)
	if err != nil {
		if IsQuotaError(err) {
			slog.Warn("Generation quota exceeded", "provider", e.generator.Name(), "url", sourceURL, "error", err)
			return nil, apperrors.NewQuotaExceededError(quotaMessage, err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		slog.Warn("Recipe generation failed", "provider", e.generator.Name(), "url", sourceURL, "media", media != nil, "error", err)
		return nil, nil
	}

	reply, err := ParseReply(raw)
	switch {
	case errors.Is(err, ErrNotARecipe):
		slog.Info("Model reported content is not a recipe", "url", sourceURL, "reason", err)
		return nil, nil
	case err != nil:
		slog.Warn("Could not parse model reply", "url", sourceURL, "error", err, "raw_reply", truncate(raw, maxLoggedReply))
		return nil, nil
	}

	r := &model.Recipe{
		Title:        reply.Title,
		Ingredients:  reply.Ingredients,
		Steps:        reply.Steps,
		SourceURL:    sourceURL,
		Platform:     platform,
		Language:     reply.Language,
		ThumbnailURL: thumbnail,
		Author:       author,
	}
	if r.Title == "" {
		r.Title = model.DefaultTitle
	}
	if r.Language == "" {
		r.Language = model.DefaultLanguage
	}
	return r, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
