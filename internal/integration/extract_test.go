package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/recipekeeper/internal/api"
	"github.com/socialchef/recipekeeper/internal/services/video"
	"github.com/socialchef/recipekeeper/internal/worker"
)

func postExtract(t *testing.T, h http.Handler, rawURL string, useCache *bool) (int, api.ExtractRecipeResponse) {
	t.Helper()
	body, err := json.Marshal(api.ExtractRecipeRequest{URL: rawURL, UseCache: useCache})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/extract-recipe", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp api.ExtractRecipeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return rr.Code, resp
}

func TestWebsiteExtraction_SchemaThenCache(t *testing.T) {
	f := setupFixtures(t)

	status, resp := postExtract(t, f.router, "https://www.pancakeplace.com/pancakes?utm_source=newsletter", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
	assert.Equal(t, "website", resp.Platform)
	assert.Equal(t, "schema", resp.ExtractionMethod)
	assert.False(t, resp.FromCache)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "Fluffy Pancakes", resp.Recipe.Title)
	assert.Len(t, resp.Recipe.Ingredients, 3)
	assert.Len(t, resp.Recipe.Steps, 2)
	assert.Equal(t, int32(1), f.hits.Load())

	// Same page, different tracking parameters and trailing slash.
	status, resp = postExtract(t, f.router, "http://www.pancakeplace.com/pancakes/?utm_source=instagram", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.FromCache)
	assert.Equal(t, "cache", resp.ExtractionMethod)
	assert.NotNil(t, resp.CachedAt)
	assert.Equal(t, int32(1), f.hits.Load())

	f.ai.AssertNotCalled(t, "ExtractFromText", mock.Anything, mock.Anything)
}

func TestWebsiteExtraction_BypassAndInvalidate(t *testing.T) {
	f := setupFixtures(t)
	noCache := false

	_, resp := postExtract(t, f.router, "https://www.pancakeplace.com/pancakes", nil)
	require.True(t, resp.Success)

	_, resp = postExtract(t, f.router, "https://www.pancakeplace.com/pancakes", &noCache)
	require.True(t, resp.Success)
	assert.False(t, resp.FromCache)
	assert.Equal(t, int32(2), f.hits.Load())

	body, _ := json.Marshal(api.InvalidateRequest{URL: "https://www.pancakeplace.com/pancakes#comments"})
	req := httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, resp = postExtract(t, f.router, "https://www.pancakeplace.com/pancakes", nil)
	require.True(t, resp.Success)
	assert.False(t, resp.FromCache)
	assert.Equal(t, int32(3), f.hits.Load())
}

func TestWebsiteExtraction_Blocked(t *testing.T) {
	f := setupFixtures(t)

	status, resp := postExtract(t, f.router, "https://www.pancakeplace.com/blocked", nil)

	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, resp.Success)
	assert.Equal(t, "WEBSITE_BLOCKED", resp.ErrorCode)
	assert.Equal(t, "website", resp.Platform)
	assert.NotEmpty(t, resp.RecoverySuggestion)
}

func TestUnsupportedURL(t *testing.T) {
	f := setupFixtures(t)

	status, resp := postExtract(t, f.router, "ftp://files.example.org/recipe.txt", nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "UNSUPPORTED_URL", resp.ErrorCode)
	assert.Equal(t, int32(0), f.hits.Load())
}

func TestTikTokExtraction_FallsBackToCreatorWebsite(t *testing.T) {
	f := setupFixtures(t)
	videoURL := "https://www.tiktok.com/@mamaskitchen/video/7300000000000000001"

	f.videos.On("GetInfo", mock.Anything, videoURL).Return(&video.Info{
		Title:       "My famous lasagna #dinner",
		Description: "Full recipe on mamaskitchen.com",
		Uploader:    "mamaskitchen",
		Thumbnail:   "https://p16.tiktokcdn.com/thumb.jpg",
	}, nil)
	f.videos.On("Download", mock.Anything, videoURL).Return("/tmp/lasagna.mp4", nil)
	f.videos.On("Cleanup", "/tmp/lasagna.mp4").Return()
	f.ai.On("ExtractFromText", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	f.ai.On("ExtractFromMedia", mock.Anything, mock.Anything).Return(nil, nil)

	status, resp := postExtract(t, f.router, videoURL, nil)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "tiktok", resp.Platform)
	assert.Equal(t, "author_website", resp.ExtractionMethod)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "My famous lasagna", resp.Recipe.Title)
	assert.Equal(t, videoURL, resp.Recipe.SourceURL)
	assert.Equal(t, "mamaskitchen", resp.Recipe.Author)
	assert.Equal(t, "https://mamaskitchen.com", resp.Recipe.AuthorWebsiteURL)
	assert.Len(t, resp.Recipe.Ingredients, 3)
	f.videos.AssertCalled(t, "Cleanup", "/tmp/lasagna.mp4")

	// Another URL form of the same video is served from cache.
	status, resp = postExtract(t, f.router, "https://tiktok.com/@mamaskitchen/video/7300000000000000001?lang=en", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.FromCache)
	f.videos.AssertNumberOfCalls(t, "GetInfo", 1)
}

func TestVideoExtraction_NothingFound(t *testing.T) {
	f := setupFixtures(t)
	videoURL := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	f.videos.On("GetInfo", mock.Anything, videoURL).Return(&video.Info{Title: "Vlog"}, nil)
	f.videos.On("Download", mock.Anything, videoURL).Return("/tmp/vlog.mp4", nil)
	f.videos.On("Cleanup", "/tmp/vlog.mp4").Return()
	f.ai.On("ExtractFromMedia", mock.Anything, mock.Anything).Return(nil, nil)

	status, resp := postExtract(t, f.router, videoURL, nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "RECIPE_NOT_FOUND", resp.ErrorCode)
	assert.Equal(t, "youtube", resp.Platform)

	assert.Equal(t, 0, f.cache.Stats(context.Background()).FastSize)
}

func TestWorkerWarmBatch_PopulatesCache(t *testing.T) {
	f := setupFixtures(t)
	processor := worker.NewProcessor(f.service, nil, nil)

	task, err := worker.NewWarmBatchTask(worker.WarmBatchPayload{URLs: []string{
		"https://www.pancakeplace.com/pancakes",
		"https://www.pancakeplace.com/blocked",
	}})
	require.NoError(t, err)

	// The blocked page is a permanent failure, so the batch itself succeeds.
	require.NoError(t, processor.HandleWarmBatch(context.Background(), task))
	hitsAfterWarm := f.hits.Load()

	status, resp := postExtract(t, f.router, "https://www.pancakeplace.com/pancakes", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.FromCache)
	assert.Equal(t, hitsAfterWarm, f.hits.Load())

	stats := f.cache.Stats(context.Background())
	assert.Equal(t, 1, stats.FastSize)
}

func TestWorkerWarmRecipe_SkipsUnsupported(t *testing.T) {
	f := setupFixtures(t)
	processor := worker.NewProcessor(f.service, nil, nil)

	task, err := worker.NewWarmRecipeTask(worker.WarmRecipePayload{URL: "not a url"})
	require.NoError(t, err)

	err = processor.HandleWarmRecipe(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
