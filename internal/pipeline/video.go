package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/socialchef/recipekeeper/internal/errors"
	"github.com/socialchef/recipekeeper/internal/recipe"
	generation "github.com/socialchef/recipekeeper/internal/services/recipe"
	"github.com/socialchef/recipekeeper/internal/services/tiktok"
	"github.com/socialchef/recipekeeper/internal/services/video"
	"github.com/socialchef/recipekeeper/internal/validation"
)

const videoMIMEType = "video/mp4"

// VideoOrchestrator extracts recipes from short-form videos. Text sources are
// tried before the media because they are cheaper; TikTok videos that yield
// nothing fall back to the creator's own website.
type VideoOrchestrator struct {
	videos     VideoSource
	ai         RecipeExtractor
	discoverer WebsiteDiscoverer
	website    WebsiteExtractor
}

// NewVideoOrchestrator creates a video orchestrator. discoverer and website
// may be nil, which disables the author-website steps.
func NewVideoOrchestrator(videos VideoSource, ai RecipeExtractor, discoverer WebsiteDiscoverer, website WebsiteExtractor) *VideoOrchestrator {
	return &VideoOrchestrator{
		videos:     videos,
		ai:         ai,
		discoverer: discoverer,
		website:    website,
	}
}

// videoRun is the state of one extraction.
type videoRun struct {
	url      string
	platform recipe.Platform
	info     *video.Info
	// title carried from a description reply that had no content
	title string
}

// Extract runs description, comment and media layers for videoURL. A nil
// recipe with a nil error means nothing was found.
func (o *VideoOrchestrator) Extract(ctx context.Context, videoURL string, platform recipe.Platform) (*recipe.Recipe, recipe.Method, error) {
	info, err := o.videos.GetInfo(ctx, videoURL)
	if err != nil {
		return nil, "", metadataError(err, platform)
	}
	run := &videoRun{url: videoURL, platform: platform, info: info}

	if r, err := o.fromDescription(ctx, run); err != nil || r != nil {
		return o.finish(ctx, run, r, recipe.MethodDescription, err)
	}

	if r, err := o.fromComments(ctx, run); err != nil || r != nil {
		return o.finish(ctx, run, r, recipe.MethodComment, err)
	}

	if r, err := o.fromMedia(ctx, run); err != nil || r != nil {
		return o.finish(ctx, run, r, recipe.MethodMultimedia, err)
	}

	if platform == recipe.PlatformTikTok {
		r, err := o.fromAuthorWebsite(ctx, run)
		if err != nil {
			return nil, "", err
		}
		if r != nil {
			return r, recipe.MethodAuthorWebsite, nil
		}
	}

	slog.Info("All video extraction layers failed", "url", videoURL, "platform", platform)
	return nil, "", nil
}

func (o *VideoOrchestrator) finish(ctx context.Context, run *videoRun, r *recipe.Recipe, method recipe.Method, err error) (*recipe.Recipe, recipe.Method, error) {
	if err != nil {
		return nil, "", err
	}
	if r.Title == "" || r.Title == recipe.DefaultTitle {
		if run.title != "" {
			r.Title = run.title
		}
	}
	o.enrich(ctx, run, r)
	return r, method, nil
}

func (o *VideoOrchestrator) fromDescription(ctx context.Context, run *videoRun) (*recipe.Recipe, error) {
	layer := string(recipe.MethodDescription)
	if !validation.IsSubstantialDescription(run.info.Description) {
		recordLayer(ctx, layer, run.platform, run.url, resultSkipped)
		return nil, nil
	}

	r, err := o.ai.ExtractFromText(ctx, o.textInput(run, run.info.Description, run.info.Title))
	if err != nil {
		recordLayer(ctx, layer, run.platform, run.url, resultError)
		return nil, err
	}
	if r.HasContent() {
		recordLayer(ctx, layer, run.platform, run.url, resultFound)
		return r, nil
	}
	if r != nil && r.Title != "" && r.Title != recipe.DefaultTitle {
		run.title = r.Title
	}
	recordLayer(ctx, layer, run.platform, run.url, resultEmpty)
	return nil, nil
}

func (o *VideoOrchestrator) fromComments(ctx context.Context, run *videoRun) (*recipe.Recipe, error) {
	layer := string(recipe.MethodComment)
	title := run.title
	if title == "" {
		title = run.info.Title
	}

	tried := 0
	for _, c := range run.info.Comments {
		if !validation.ShouldTryComment(c.Text, c.AuthorIsUploader) {
			continue
		}
		tried++
		slog.Debug("Trying comment", "url", run.url, "author", c.Author, "uploader", c.AuthorIsUploader)

		r, err := o.ai.ExtractFromText(ctx, o.textInput(run, c.Text, title))
		if err != nil {
			recordLayer(ctx, layer, run.platform, run.url, resultError)
			return nil, err
		}
		if r.HasContent() {
			recordLayer(ctx, layer, run.platform, run.url, resultFound)
			return r, nil
		}
	}

	if tried == 0 {
		recordLayer(ctx, layer, run.platform, run.url, resultSkipped)
	} else {
		recordLayer(ctx, layer, run.platform, run.url, resultEmpty)
	}
	return nil, nil
}

func (o *VideoOrchestrator) fromMedia(ctx context.Context, run *videoRun) (*recipe.Recipe, error) {
	layer := string(recipe.MethodMultimedia)
	path, err := o.videos.Download(ctx, run.url)
	if err != nil {
		recordLayer(ctx, layer, run.platform, run.url, resultError)
		return nil, downloadError(err, run.platform)
	}
	defer o.videos.Cleanup(path)

	r, err := o.ai.ExtractFromMedia(ctx, generation.MediaInput{
		Path:         path,
		MIMEType:     videoMIMEType,
		SourceURL:    run.url,
		Platform:     run.platform,
		ThumbnailURL: run.info.Thumbnail,
		Author:       run.info.Uploader,
	})
	if err != nil {
		recordLayer(ctx, layer, run.platform, run.url, resultError)
		return nil, err
	}
	if !r.HasContent() {
		recordLayer(ctx, layer, run.platform, run.url, resultEmpty)
		return nil, nil
	}
	recordLayer(ctx, layer, run.platform, run.url, resultFound)
	return r, nil
}

// fromAuthorWebsite finds the creator's website and extracts the recipe from
// it, keeping the video's identity on the result.
func (o *VideoOrchestrator) fromAuthorWebsite(ctx context.Context, run *videoRun) (*recipe.Recipe, error) {
	layer := string(recipe.MethodAuthorWebsite)
	if o.discoverer == nil || o.website == nil {
		recordLayer(ctx, layer, run.platform, run.url, resultSkipped)
		return nil, nil
	}

	site := o.discover(ctx, run)
	if site == "" {
		recordLayer(ctx, layer, run.platform, run.url, resultSkipped)
		return nil, nil
	}
	slog.Info("Trying creator website", "url", run.url, "site", site)

	wr, _, err := o.website.Extract(ctx, site)
	if err != nil {
		if apperrors.IsQuota(err) {
			recordLayer(ctx, layer, run.platform, run.url, resultError)
			return nil, err
		}
		slog.Warn("Creator website extraction failed", "url", run.url, "site", site, "error", err)
		recordLayer(ctx, layer, run.platform, run.url, resultError)
		return nil, nil
	}
	if wr == nil {
		recordLayer(ctx, layer, run.platform, run.url, resultEmpty)
		return nil, nil
	}

	r := &recipe.Recipe{
		Title:            spliceTitle(run, wr),
		Ingredients:      wr.Ingredients,
		Steps:            wr.Steps,
		SourceURL:        run.url,
		Platform:         run.platform,
		Language:         wr.Language,
		ThumbnailURL:     run.info.Thumbnail,
		Author:           run.info.Uploader,
		AuthorWebsiteURL: site,
	}
	if r.ThumbnailURL == "" {
		r.ThumbnailURL = wr.ThumbnailURL
	}
	if r.Language == "" {
		r.Language = recipe.DefaultLanguage
	}
	if r.Author == "" {
		r.Author = wr.Author
	}
	if !r.HasContent() {
		r.Ingredients = []string{authorWebsiteLine(site)}
	}

	recordLayer(ctx, layer, run.platform, run.url, resultFound)
	return r, nil
}

// enrich attaches the creator's website to TikTok recipes.
func (o *VideoOrchestrator) enrich(ctx context.Context, run *videoRun, r *recipe.Recipe) {
	if run.platform != recipe.PlatformTikTok || o.discoverer == nil || r.AuthorWebsiteURL != "" {
		return
	}
	if site := o.discover(ctx, run); site != "" {
		withAuthorWebsite(r, site)
	}
}

func (o *VideoOrchestrator) discover(ctx context.Context, run *videoRun) string {
	profile := tiktok.ProfileURL(run.url, run.info.UploaderURL, run.info.UploaderID)
	return o.discoverer.Discover(ctx, run.info.Description, profile)
}

func (o *VideoOrchestrator) textInput(run *videoRun, text, title string) generation.TextInput {
	return generation.TextInput{
		Text:         text,
		Title:        title,
		SourceURL:    run.url,
		Platform:     run.platform,
		ThumbnailURL: run.info.Thumbnail,
		Author:       run.info.Uploader,
	}
}

func spliceTitle(run *videoRun, wr *recipe.Recipe) string {
	for _, t := range []string{CleanTitle(run.info.Title), run.title, wr.Title} {
		if t != "" {
			return t
		}
	}
	return recipe.DefaultTitle
}

func metadataError(err error, platform recipe.Platform) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	name := platform.DisplayName()
	if errors.Is(err, video.ErrAccessBlocked) {
		if platform == recipe.PlatformYouTube {
			return apperrors.NewAccessBlockedError(
				"YouTube is blocking automated access to this video.",
				"YOUTUBE_BOT_DETECTION",
				"Try again later, or share the recipe text from the video description.",
				err,
			)
		}
		return apperrors.NewAccessBlockedError(
			fmt.Sprintf("%s blocked access to this video.", name),
			"VIDEO_ACCESS_BLOCKED",
			"Check that the video is public and try again later.",
			err,
		)
	}
	return apperrors.NewScraperError(
		fmt.Sprintf("Could not read video information from %s.", name),
		"VIDEO_INFO_FAILED",
		err,
	)
}

func downloadError(err error, platform recipe.Platform) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	name := platform.DisplayName()
	if errors.Is(err, video.ErrAccessBlocked) {
		return apperrors.NewAccessBlockedError(
			fmt.Sprintf("No recipe was found in the video text, and %s blocked the video download.", name),
			"DOWNLOAD_BLOCKED",
			"Try again later, or share the recipe text directly.",
			err,
		)
	}
	return apperrors.NewScraperError(
		fmt.Sprintf("Failed to download video from %s.", name),
		"DOWNLOAD_FAILED",
		err,
	)
}
