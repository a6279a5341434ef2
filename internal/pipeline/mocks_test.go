package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/mock"

	"github.com/socialchef/recipekeeper/internal/cache"
	"github.com/socialchef/recipekeeper/internal/recipe"
	"github.com/socialchef/recipekeeper/internal/services/fetcher"
	generation "github.com/socialchef/recipekeeper/internal/services/recipe"
	"github.com/socialchef/recipekeeper/internal/services/video"
)

// Mocks

type MockRecipeExtractor struct {
	mock.Mock
}

func (m *MockRecipeExtractor) ExtractFromText(ctx context.Context, in generation.TextInput) (*recipe.Recipe, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeExtractor) ExtractFromMedia(ctx context.Context, in generation.MediaInput) (*recipe.Recipe, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

type MockVideoSource struct {
	mock.Mock
}

func (m *MockVideoSource) GetInfo(ctx context.Context, videoURL string) (*video.Info, error) {
	args := m.Called(ctx, videoURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*video.Info), args.Error(1)
}

func (m *MockVideoSource) Download(ctx context.Context, videoURL string) (string, error) {
	args := m.Called(ctx, videoURL)
	return args.String(0), args.Error(1)
}

func (m *MockVideoSource) Cleanup(path string) {
	m.Called(path)
}

type MockDiscoverer struct {
	mock.Mock
}

func (m *MockDiscoverer) Discover(ctx context.Context, description, profileURL string) string {
	args := m.Called(ctx, description, profileURL)
	return args.String(0)
}

type MockWebsiteExtractor struct {
	mock.Mock
}

func (m *MockWebsiteExtractor) Extract(ctx context.Context, pageURL string) (*recipe.Recipe, recipe.Method, error) {
	args := m.Called(ctx, pageURL)
	if args.Get(0) == nil {
		return nil, recipe.Method(args.String(1)), args.Error(2)
	}
	return args.Get(0).(*recipe.Recipe), recipe.Method(args.String(1)), args.Error(2)
}

type MockVideoExtractor struct {
	mock.Mock
}

func (m *MockVideoExtractor) Extract(ctx context.Context, videoURL string, p recipe.Platform) (*recipe.Recipe, recipe.Method, error) {
	args := m.Called(ctx, videoURL, p)
	if args.Get(0) == nil {
		return nil, recipe.Method(args.String(1)), args.Error(2)
	}
	return args.Get(0).(*recipe.Recipe), recipe.Method(args.String(1)), args.Error(2)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (*cache.Entry, bool) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*cache.Entry), args.Bool(1)
}

func (m *MockCache) Set(ctx context.Context, key string, r *recipe.Recipe, canonicalURL string, p recipe.Platform) {
	m.Called(ctx, key, r, canonicalURL, p)
}

// Doubles

type stubPages struct {
	page *fetcher.Page
	err  error
}

func (s *stubPages) Fetch(ctx context.Context, targetURL string) (*fetcher.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

// countingExtractor records how often a markup layer runs.
type countingExtractor struct {
	result *recipe.Recipe
	calls  atomic.Int32
}

func (c *countingExtractor) Extract(doc *goquery.Document, sourceURL string) *recipe.Recipe {
	c.calls.Add(1)
	return c.result.Clone()
}

func htmlPage(html, finalURL string) *stubPages {
	return &stubPages{page: &fetcher.Page{HTML: html, FinalURL: finalURL, StatusCode: 200}}
}

func textRecipe(title string) *recipe.Recipe {
	return &recipe.Recipe{
		Title:       title,
		Ingredients: []string{"2 eggs", "1 cup flour"},
		Steps:       []string{"Whisk the eggs.", "Fold in the flour."},
		Platform:    recipe.PlatformYouTube,
		Language:    recipe.DefaultLanguage,
	}
}
