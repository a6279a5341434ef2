package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/socialchef/recipekeeper/internal/cache"
	"github.com/socialchef/recipekeeper/internal/config"
	apperrors "github.com/socialchef/recipekeeper/internal/errors"
	"github.com/socialchef/recipekeeper/internal/middleware"
	"github.com/socialchef/recipekeeper/internal/pipeline"
	"github.com/socialchef/recipekeeper/internal/platform"
	"github.com/socialchef/recipekeeper/internal/recipe"
	"github.com/socialchef/recipekeeper/internal/sentry"
	"github.com/socialchef/recipekeeper/internal/worker"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 64 << 10

// RecipeExtractor runs the extraction pipeline.
type RecipeExtractor interface {
	Extract(ctx context.Context, rawURL string, useCache bool) (*pipeline.Result, error)
}

// CacheAdmin is the cache surface exposed to operators.
type CacheAdmin interface {
	Stats(ctx context.Context) cache.Stats
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	DurableAvailable(ctx context.Context) bool
}

// TaskEnqueuer enqueues background tasks.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	cfg       *config.Config
	extractor RecipeExtractor
	cache     CacheAdmin
	tasks     TaskEnqueuer
	metrics   http.Handler
}

// NewServer creates the API server. cache, tasks and metrics may be nil when
// the corresponding feature is disabled.
func NewServer(cfg *config.Config, extractor RecipeExtractor, cacheAdmin CacheAdmin, tasks TaskEnqueuer, metrics http.Handler) *Server {
	return &Server{
		cfg:       cfg,
		extractor: extractor,
		cache:     cacheAdmin,
		tasks:     tasks,
		metrics:   metrics,
	}
}

// Routes registers the API routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HandleLiveness)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.BodyLimit(MaxBodyBytes))
		r.Get("/health", s.HandleHealth)
		r.Post("/extract-recipe", s.HandleExtractRecipe)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", s.HandleCacheStats)
			r.Delete("/", s.HandleCacheClear)
			r.Delete("/{key}", s.HandleCacheDelete)
			r.Post("/invalidate", s.HandleCacheInvalidate)
			r.Post("/warm", s.HandleCacheWarm)
		})
	})
}

type ExtractRecipeRequest struct {
	URL      string `json:"url"`
	UseCache *bool  `json:"useCache,omitempty"`
}

type ExtractRecipeResponse struct {
	Success            bool           `json:"success"`
	Platform           string         `json:"platform,omitempty"`
	Recipe             *recipe.Recipe `json:"recipe,omitempty"`
	Error              string         `json:"error,omitempty"`
	ErrorCode          string         `json:"errorCode,omitempty"`
	RecoverySuggestion string         `json:"recoverySuggestion,omitempty"`
	FromCache          bool           `json:"fromCache"`
	CachedAt           *time.Time     `json:"cachedAt,omitempty"`
	ExtractionMethod   string         `json:"extractionMethod,omitempty"`
}

func (s *Server) HandleExtractRecipe(w http.ResponseWriter, r *http.Request) {
	var req ExtractRecipeRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeExtractError(w, r, "", appErr)
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeExtractError(w, r, "", apperrors.NewValidationError("url is required", "URL_REQUIRED", "Send a JSON body like {\"url\": \"https://...\"}."))
		return
	}

	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	res, err := s.extractor.Extract(r.Context(), req.URL, useCache)
	if err != nil {
		p, _ := platform.Classify(req.URL)
		writeExtractError(w, r, string(p), err)
		return
	}

	writeJSON(w, http.StatusOK, ExtractRecipeResponse{
		Success:          true,
		Platform:         string(res.Platform),
		Recipe:           res.Recipe,
		FromCache:        res.FromCache,
		CachedAt:         res.CachedAt,
		ExtractionMethod: string(res.Method),
	})
}

type HealthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Cache   CacheHealth `json:"cache"`
}

type CacheHealth struct {
	Enabled          bool `json:"enabled"`
	DurableAvailable bool `json:"durableAvailable"`
}

// HandleLiveness is the bare probe endpoint.
func (s *Server) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: s.cfg.ServiceVersion}
	if s.cache != nil {
		resp.Cache = CacheHealth{Enabled: true, DurableAvailable: s.cache.DurableAvailable(r.Context())}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, cache.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats(r.Context()))
}

type CacheActionResponse struct {
	Success     bool   `json:"success"`
	Key         string `json:"key,omitempty"`
	CanonicalID string `json:"canonicalId,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) HandleCacheDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireCache(w) {
		return
	}
	key := chi.URLParam(r, "key")
	if !isCacheKey(key) {
		writeJSON(w, http.StatusBadRequest, CacheActionResponse{Error: "key must be a 16 character hex cache key"})
		return
	}
	if err := s.cache.Delete(r.Context(), key); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, CacheActionResponse{Key: key, Error: "durable cache unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, CacheActionResponse{Success: true, Key: key})
}

func (s *Server) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	if !s.requireCache(w) {
		return
	}
	if err := s.cache.Clear(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, CacheActionResponse{Error: "durable cache unavailable"})
		return
	}
	slog.Info("Cache cleared")
	writeJSON(w, http.StatusOK, CacheActionResponse{Success: true})
}

type InvalidateRequest struct {
	URL string `json:"url"`
}

func (s *Server) HandleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if !s.requireCache(w) {
		return
	}
	var req InvalidateRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeJSON(w, appErr.StatusCode, CacheActionResponse{Error: appErr.Message})
		return
	}

	p, ok := platform.Classify(strings.TrimSpace(req.URL))
	if !ok {
		writeJSON(w, http.StatusBadRequest, CacheActionResponse{Error: "url is missing or unsupported"})
		return
	}
	canonicalID, key := platform.NormalizeAndHash(strings.TrimSpace(req.URL), p)

	if err := s.cache.Delete(r.Context(), key); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, CacheActionResponse{Key: key, CanonicalID: canonicalID, Error: "durable cache unavailable"})
		return
	}
	slog.Info("Cache entry invalidated", "key", key, "canonical_id", canonicalID)
	writeJSON(w, http.StatusOK, CacheActionResponse{Success: true, Key: key, CanonicalID: canonicalID})
}

type WarmRequest struct {
	URLs    []string `json:"urls"`
	Refresh bool     `json:"refresh,omitempty"`
}

type WarmResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"taskId,omitempty"`
	Queued  int    `json:"queued,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) HandleCacheWarm(w http.ResponseWriter, r *http.Request) {
	if s.tasks == nil {
		writeJSON(w, http.StatusServiceUnavailable, WarmResponse{Error: "background jobs are not configured"})
		return
	}

	var req WarmRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeJSON(w, appErr.StatusCode, WarmResponse{Error: appErr.Message})
		return
	}

	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	task, err := worker.NewWarmBatchTask(worker.WarmBatchPayload{URLs: urls, Refresh: req.Refresh})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, WarmResponse{Error: err.Error()})
		return
	}

	info, err := s.tasks.EnqueueContext(r.Context(), task)
	if err != nil {
		slog.Error("Failed to enqueue warm batch", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, WarmResponse{Error: "failed to enqueue task"})
		return
	}

	writeJSON(w, http.StatusAccepted, WarmResponse{Success: true, TaskID: info.ID, Queued: len(urls)})
}

func (s *Server) requireCache(w http.ResponseWriter) bool {
	if s.cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, CacheActionResponse{Error: "cache is disabled"})
		return false
	}
	return true
}

func decodeJSON(r *http.Request, v any) *apperrors.AppError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			appErr := apperrors.NewValidationError("Request body too large", "BODY_TOO_LARGE", "")
			appErr.StatusCode = http.StatusRequestEntityTooLarge
			return appErr
		}
		return apperrors.NewValidationError("Invalid request body", "INVALID_JSON", "Send a valid JSON object.")
	}
	return nil
}

func writeExtractError(w http.ResponseWriter, r *http.Request, p string, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		if errors.Is(err, context.Canceled) {
			slog.Info("Extraction cancelled by client", "path", r.URL.Path)
		}
		appErr = apperrors.NewInternalError("Extraction failed unexpectedly.", err)
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		slog.Error("Extraction request failed", "error", err)
	}
	sentry.CaptureError(r.Context(), appErr)
	writeJSON(w, appErr.StatusCode, ExtractRecipeResponse{
		Success:            false,
		Platform:           p,
		Error:              appErr.Message,
		ErrorCode:          appErr.ErrorCode,
		RecoverySuggestion: appErr.Recovery,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func isCacheKey(key string) bool {
	if len(key) != platform.KeyLength {
		return false
	}
	for _, c := range key {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
