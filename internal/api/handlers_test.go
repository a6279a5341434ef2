package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/recipekeeper/internal/cache"
	"github.com/socialchef/recipekeeper/internal/config"
	apperrors "github.com/socialchef/recipekeeper/internal/errors"
	"github.com/socialchef/recipekeeper/internal/pipeline"
	"github.com/socialchef/recipekeeper/internal/platform"
	"github.com/socialchef/recipekeeper/internal/recipe"
	"github.com/socialchef/recipekeeper/internal/worker"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, rawURL string, useCache bool) (*pipeline.Result, error) {
	args := m.Called(ctx, rawURL, useCache)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Result), args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

func newTestRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeExtract(t *testing.T, rr *httptest.ResponseRecorder) ExtractRecipeResponse {
	t.Helper()
	var resp ExtractRecipeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestHandleExtractRecipe_Success(t *testing.T) {
	extractor := new(MockExtractor)
	extractor.On("Extract", mock.Anything, "https://site.com/pancakes", true).Return(&pipeline.Result{
		Recipe:   &recipe.Recipe{Title: "Pancakes", Ingredients: []string{"2 eggs"}},
		Platform: recipe.PlatformWebsite,
		Method:   recipe.MethodSchema,
	}, nil)

	h := newTestRouter(NewServer(&config.Config{}, extractor, nil, nil, nil))
	rr := doJSON(t, h, http.MethodPost, "/api/extract-recipe", map[string]string{"url": " https://site.com/pancakes "})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeExtract(t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, "website", resp.Platform)
	assert.Equal(t, "schema", resp.ExtractionMethod)
	assert.False(t, resp.FromCache)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "Pancakes", resp.Recipe.Title)
	extractor.AssertExpectations(t)
}

func TestHandleExtractRecipe_UseCacheFalse(t *testing.T) {
	cachedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	extractor := new(MockExtractor)
	extractor.On("Extract", mock.Anything, "https://youtu.be/abc", false).Return(&pipeline.Result{
		Recipe:    &recipe.Recipe{Title: "Soup"},
		Platform:  recipe.PlatformYouTube,
		Method:    recipe.MethodCache,
		FromCache: true,
		CachedAt:  &cachedAt,
	}, nil)

	h := newTestRouter(NewServer(&config.Config{}, extractor, nil, nil, nil))
	rr := doJSON(t, h, http.MethodPost, "/api/extract-recipe", map[string]any{"url": "https://youtu.be/abc", "useCache": false})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeExtract(t, rr)
	assert.True(t, resp.FromCache)
	require.NotNil(t, resp.CachedAt)
	assert.True(t, cachedAt.Equal(*resp.CachedAt))
	extractor.AssertExpectations(t)
}

func TestHandleExtractRecipe_Validation(t *testing.T) {
	srv := NewServer(&config.Config{}, new(MockExtractor), nil, nil, nil)
	h := newTestRouter(srv)

	rr := doJSON(t, h, http.MethodPost, "/api/extract-recipe", map[string]string{"url": "  "})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	assert.Equal(t, "URL_REQUIRED", decodeExtract(t, rr).ErrorCode)

	req := httptest.NewRequest(http.MethodPost, "/api/extract-recipe", strings.NewReader("{not json"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestHandleExtractRecipe_BodyTooLarge(t *testing.T) {
	h := newTestRouter(NewServer(&config.Config{}, new(MockExtractor), nil, nil, nil))
	huge := `{"url":"` + strings.Repeat("a", MaxBodyBytes) + `"}`

	req := httptest.NewRequest(http.MethodPost, "/api/extract-recipe", strings.NewReader(huge))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
	}
}

func TestHandleExtractRecipe_AppErrors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		err        error
		wantStatus int
		wantCode   string
		wantPlat   string
	}{
		{
			name:       "unsupported",
			url:        "ftp://nope",
			err:        apperrors.NewUnsupportedError("Unsupported URL."),
			wantStatus: http.StatusBadRequest,
			wantCode:   "UNSUPPORTED_URL",
			wantPlat:   "",
		},
		{
			name:       "not found",
			url:        "https://www.tiktok.com/@chef/video/123",
			err:        apperrors.NewNotFoundError("No recipe found.", "RECIPE_NOT_FOUND", "Try another video."),
			wantStatus: http.StatusNotFound,
			wantCode:   "RECIPE_NOT_FOUND",
			wantPlat:   "tiktok",
		},
		{
			name:       "quota",
			url:        "https://site.com/x",
			err:        apperrors.NewQuotaExceededError("AI quota exceeded.", nil),
			wantStatus: http.StatusTooManyRequests,
			wantPlat:   "website",
		},
		{
			name:       "plain error",
			url:        "https://site.com/x",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantPlat:   "website",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := new(MockExtractor)
			extractor.On("Extract", mock.Anything, tt.url, true).Return(nil, tt.err)

			h := newTestRouter(NewServer(&config.Config{}, extractor, nil, nil, nil))
			rr := doJSON(t, h, http.MethodPost, "/api/extract-recipe", map[string]string{"url": tt.url})

			assert.Equal(t, tt.wantStatus, rr.Code)
			resp := decodeExtract(t, rr)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.wantPlat, resp.Platform)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp.ErrorCode)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	cfg := &config.Config{ServiceVersion: "1.2.3"}

	h := newTestRouter(NewServer(cfg, new(MockExtractor), nil, nil, nil))
	rr := doJSON(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.False(t, resp.Cache.Enabled)

	facade := cache.NewFacade(nil, 10, time.Hour)
	h = newTestRouter(NewServer(cfg, new(MockExtractor), facade, nil, nil))
	rr = doJSON(t, h, http.MethodGet, "/api/health", nil)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Cache.Enabled)
	assert.False(t, resp.Cache.DurableAvailable)

	rr = doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestCacheAdmin_DisabledCache(t *testing.T) {
	h := newTestRouter(NewServer(&config.Config{}, new(MockExtractor), nil, nil, nil))

	rr := doJSON(t, h, http.MethodGet, "/api/cache/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats cache.Stats
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&stats))
	assert.False(t, stats.Enabled)

	rr = doJSON(t, h, http.MethodDelete, "/api/cache", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCacheAdmin_InvalidateAndDelete(t *testing.T) {
	facade := cache.NewFacade(nil, 10, time.Hour)
	h := newTestRouter(NewServer(&config.Config{}, new(MockExtractor), facade, nil, nil))
	ctx := context.Background()

	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42"
	canonicalID, key := platform.NormalizeAndHash(url, recipe.PlatformYouTube)
	facade.Set(ctx, key, &recipe.Recipe{Title: "Soup"}, canonicalID, recipe.PlatformYouTube)

	_, ok := facade.Get(ctx, key)
	require.True(t, ok)

	rr := doJSON(t, h, http.MethodPost, "/api/cache/invalidate", InvalidateRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})
	require.Equal(t, http.StatusOK, rr.Code)
	var resp CacheActionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, key, resp.Key)
	assert.Equal(t, canonicalID, resp.CanonicalID)

	_, ok = facade.Get(ctx, key)
	assert.False(t, ok)

	rr = doJSON(t, h, http.MethodDelete, "/api/cache/"+key, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodDelete, "/api/cache/NOT-A-KEY", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/cache/invalidate", InvalidateRequest{URL: "mailto:someone"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCacheAdmin_Clear(t *testing.T) {
	facade := cache.NewFacade(nil, 10, time.Hour)
	facade.Set(context.Background(), "0123456789abcdef", &recipe.Recipe{Title: "A"}, "site.com/a", recipe.PlatformWebsite)

	h := newTestRouter(NewServer(&config.Config{}, new(MockExtractor), facade, nil, nil))
	rr := doJSON(t, h, http.MethodDelete, "/api/cache", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	stats := facade.Stats(context.Background())
	assert.Equal(t, 0, stats.FastSize)
}

func TestHandleCacheWarm(t *testing.T) {
	enqueuer := new(MockEnqueuer)
	enqueuer.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var payload worker.WarmBatchPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return false
		}
		return task.Type() == worker.TypeWarmBatch && len(payload.URLs) == 2 && payload.Refresh
	})).Return(&asynq.TaskInfo{ID: "task-1"}, nil)

	h := newTestRouter(NewServer(&config.Config{}, new(MockExtractor), nil, enqueuer, nil))
	rr := doJSON(t, h, http.MethodPost, "/api/cache/warm", WarmRequest{
		URLs:    []string{"https://site.com/a", " ", "https://youtu.be/abc"},
		Refresh: true,
	})

	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp WarmResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, 2, resp.Queued)
	enqueuer.AssertExpectations(t)
}

func TestHandleCacheWarm_Errors(t *testing.T) {
	h := newTestRouter(NewServer(&config.Config{}, new(MockExtractor), nil, nil, nil))
	rr := doJSON(t, h, http.MethodPost, "/api/cache/warm", WarmRequest{URLs: []string{"https://site.com/a"}})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	enqueuer := new(MockEnqueuer)
	h = newTestRouter(NewServer(&config.Config{}, new(MockExtractor), nil, enqueuer, nil))
	rr = doJSON(t, h, http.MethodPost, "/api/cache/warm", WarmRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	enqueuer.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))
	rr = doJSON(t, h, http.MethodPost, "/api/cache/warm", WarmRequest{URLs: []string{"https://site.com/a"}})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("recipe_cache_hits 1"))
	})
	h := newTestRouter(NewServer(&config.Config{}, new(MockExtractor), nil, nil, metrics))

	rr := doJSON(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "recipe_cache_hits")
}
