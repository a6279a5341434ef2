// Package integration runs whole extractions through the HTTP router, the
// pipeline and the worker. Web pages come from an httptest server; video
// metadata and the language model are mocked.
package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/socialchef/recipekeeper/internal/api"
	"github.com/socialchef/recipekeeper/internal/cache"
	"github.com/socialchef/recipekeeper/internal/config"
	"github.com/socialchef/recipekeeper/internal/middleware"
	"github.com/socialchef/recipekeeper/internal/pipeline"
	"github.com/socialchef/recipekeeper/internal/recipe"
	"github.com/socialchef/recipekeeper/internal/services/fetcher"
	generation "github.com/socialchef/recipekeeper/internal/services/recipe"
	"github.com/socialchef/recipekeeper/internal/services/tiktok"
	"github.com/socialchef/recipekeeper/internal/services/video"
)

const pancakePage = `<!DOCTYPE html>
<html><head><title>Fluffy Pancakes | Pancake Place</title>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Recipe","name":"Fluffy Pancakes",
 "recipeIngredient":["200g flour","2 eggs","300ml milk"],
 "recipeInstructions":[{"@type":"HowToStep","text":"Whisk everything together."},
                       {"@type":"HowToStep","text":"Fry in a hot pan."}]}
</script></head><body><h1>Fluffy Pancakes</h1></body></html>`

const lasagnaPage = `<!DOCTYPE html>
<html><head><title>Lasagna</title>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[{"@type":"WebSite","name":"Mama's Kitchen"},
 {"@type":"Recipe","name":"Mama's Lasagna",
  "recipeIngredient":["12 lasagna sheets","500g ragu","250g bechamel"],
  "recipeInstructions":["Layer sheets, ragu and bechamel.","Bake for 40 minutes."]}]}
</script></head><body></body></html>`

// newSiteServer serves the recipe pages used across the tests. hits counts
// every request that reached it.
func newSiteServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pancakes", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(pancakePage))
	})
	mux.HandleFunc("/blocked", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(lasagnaPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// localFetcher sends every request to the test server while reporting the
// public URL as the final URL.
type localFetcher struct {
	inner *fetcher.Fetcher
	base  string
}

func (f *localFetcher) Fetch(ctx context.Context, targetURL string) (*fetcher.Page, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, err
	}
	page, err := f.inner.Fetch(ctx, f.base+u.Path)
	if err != nil {
		return nil, err
	}
	page.FinalURL = targetURL
	return page, nil
}

type MockAI struct {
	mock.Mock
}

func (m *MockAI) ExtractFromText(ctx context.Context, in generation.TextInput) (*recipe.Recipe, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockAI) ExtractFromMedia(ctx context.Context, in generation.MediaInput) (*recipe.Recipe, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

type MockVideos struct {
	mock.Mock
}

func (m *MockVideos) GetInfo(ctx context.Context, videoURL string) (*video.Info, error) {
	args := m.Called(ctx, videoURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*video.Info), args.Error(1)
}

func (m *MockVideos) Download(ctx context.Context, videoURL string) (string, error) {
	args := m.Called(ctx, videoURL)
	return args.String(0), args.Error(1)
}

func (m *MockVideos) Cleanup(path string) {
	m.Called(path)
}

type fixtures struct {
	site    *httptest.Server
	hits    *atomic.Int32
	ai      *MockAI
	videos  *MockVideos
	cache   *cache.Facade
	service *pipeline.Service
	router  http.Handler
}

func setupFixtures(t *testing.T) *fixtures {
	t.Helper()
	hits := &atomic.Int32{}
	site := newSiteServer(t, hits)

	pages := &localFetcher{
		inner: fetcher.New(fetcher.Options{Timeout: 5 * time.Second, RatePerSecond: 100, Burst: 10}),
		base:  site.URL,
	}
	ai := new(MockAI)
	videos := new(MockVideos)
	facade := cache.NewFacade(nil, 100, time.Hour)

	website := pipeline.NewWebsiteOrchestrator(pages, ai, pipeline.DefaultWebsiteLayers())
	videoOrch := pipeline.NewVideoOrchestrator(videos, ai, tiktok.NewDiscoverer(pages), website)
	service := pipeline.NewService(facade, website, videoOrch)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	api.NewServer(&config.Config{ServiceVersion: "test"}, service, facade, nil, nil).Routes(r)

	return &fixtures{
		site:    site,
		hits:    hits,
		ai:      ai,
		videos:  videos,
		cache:   facade,
		service: service,
		router:  r,
	}
}
