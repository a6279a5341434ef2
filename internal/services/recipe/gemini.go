package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipekeeper/internal/httpclient"
	"github.com/socialchef/recipekeeper/internal/metrics"
)

const (
	geminiBaseURL       = "https://generativelanguage.googleapis.com"
	geminiTimeout       = 180 * time.Second
	defaultMediaMIME    = "video/mp4"
	defaultPollInterval = time.Second
	maxPollAttempts     = 120
)

// File states reported by the Files API.
const (
	fileStateProcessing = "PROCESSING"
	fileStateActive     = "ACTIVE"
	fileStateFailed     = "FAILED"
)

// GeminiGenerator implements Generator for the Gemini API. Media is sent
// through the Files API: upload, wait until the file is active, reference it
// in generateContent, then delete it.
type GeminiGenerator struct {
	client       *resty.Client
	model        string
	pollInterval time.Duration
}

// NewGeminiGenerator creates a new Gemini generator
func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	client := resty.NewWithClient(httpclient.NewInstrumentedClient(geminiTimeout)).
		SetBaseURL(geminiBaseURL).
		SetHeader("x-goog-api-key", apiKey).
		SetHeader("Content-Type", "application/json")

	return &GeminiGenerator{
		client:       client,
		model:        strings.TrimPrefix(model, "models/"),
		pollInterval: defaultPollInterval,
	}
}

// WithBaseURL points the generator at a different API host.
func (g *GeminiGenerator) WithBaseURL(baseURL string) *GeminiGenerator {
	g.client.SetBaseURL(baseURL)
	return g
}

// WithPollInterval sets how often file processing state is checked.
func (g *GeminiGenerator) WithPollInterval(d time.Duration) *GeminiGenerator {
	g.pollInterval = d
	return g
}

func (g *GeminiGenerator) Name() string { return string(ProviderGemini) }

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"file_data,omitempty"`
}

type geminiFileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	State    string `json:"state"`
}

// Generate sends the prompt, and the media file when given, to generateContent.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, media *Media) (string, error) {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		attrs := []attribute.KeyValue{attribute.String("provider", "gemini")}
		metrics.AIGenerationDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	parts := []geminiPart{{Text: prompt}}

	if media != nil {
		file, err := g.uploadFile(ctx, media)
		if err != nil {
			return "", err
		}
		defer g.deleteFile(file.Name)

		file, err = g.waitForFile(ctx, file)
		if err != nil {
			return "", err
		}
		parts = append(parts, geminiPart{FileData: &geminiFileData{MIMEType: file.MIMEType, FileURI: file.URI}})
	}

	var out geminiResponse
	resp, err := g.client.R().
		SetContext(httpclient.WithProvider(ctx, "Gemini")).
		SetBody(geminiRequest{Contents: []geminiContent{{Parts: parts}}}).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return "", fmt.Errorf("Gemini request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode(), resp.String())
	}

	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// uploadFile runs the two-step resumable upload and returns the file record.
func (g *GeminiGenerator) uploadFile(ctx context.Context, media *Media) (*geminiFile, error) {
	data, err := os.ReadFile(media.Path)
	if err != nil {
		return nil, fmt.Errorf("read media file: %w", err)
	}
	mimeType := media.MIMEType
	if mimeType == "" {
		mimeType = defaultMediaMIME
	}
	ctx = httpclient.WithProvider(ctx, "Gemini")

	start, err := g.client.R().
		SetContext(ctx).
		SetHeader("X-Goog-Upload-Protocol", "resumable").
		SetHeader("X-Goog-Upload-Command", "start").
		SetHeader("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(data))).
		SetHeader("X-Goog-Upload-Header-Content-Type", mimeType).
		SetBody(map[string]any{"file": map[string]string{"display_name": filepath.Base(media.Path)}}).
		Post("/upload/v1beta/files")
	if err != nil {
		return nil, fmt.Errorf("Gemini upload start failed: %w", err)
	}
	if start.IsError() {
		return nil, fmt.Errorf("Gemini API error (status %d): %s", start.StatusCode(), start.String())
	}
	uploadURL := start.Header().Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return nil, fmt.Errorf("Gemini upload start returned no upload URL")
	}

	var uploaded struct {
		File geminiFile `json:"file"`
	}
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", mimeType).
		SetHeader("X-Goog-Upload-Offset", "0").
		SetHeader("X-Goog-Upload-Command", "upload, finalize").
		SetBody(data).
		SetResult(&uploaded).
		Post(uploadURL)
	if err != nil {
		return nil, fmt.Errorf("Gemini upload failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode(), resp.String())
	}
	if uploaded.File.Name == "" {
		return nil, fmt.Errorf("Gemini upload returned no file name")
	}
	if uploaded.File.MIMEType == "" {
		uploaded.File.MIMEType = mimeType
	}

	slog.Debug("Uploaded media to Gemini", "file", uploaded.File.Name, "bytes", len(data))
	return &uploaded.File, nil
}

// waitForFile polls the file until processing finishes.
func (g *GeminiGenerator) waitForFile(ctx context.Context, file *geminiFile) (*geminiFile, error) {
	for attempt := 0; file.State == fileStateProcessing || file.State == ""; attempt++ {
		if attempt >= maxPollAttempts {
			return nil, fmt.Errorf("Gemini file %s still processing after %d checks", file.Name, attempt)
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.pollInterval):
			}
		}

		var current geminiFile
		resp, err := g.client.R().
			SetContext(httpclient.WithProvider(ctx, "Gemini")).
			SetResult(&current).
			Get("/v1beta/" + file.Name)
		if err != nil {
			return nil, fmt.Errorf("Gemini file status failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode(), resp.String())
		}
		if current.MIMEType == "" {
			current.MIMEType = file.MIMEType
		}
		file = &current
	}

	switch file.State {
	case fileStateActive:
		return file, nil
	case fileStateFailed:
		return nil, fmt.Errorf("Gemini failed to process file %s", file.Name)
	default:
		return nil, fmt.Errorf("Gemini file %s in unexpected state %q", file.Name, file.State)
	}
}

// deleteFile removes the uploaded file; failures are only logged.
func (g *GeminiGenerator) deleteFile(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := g.client.R().
		SetContext(httpclient.WithProvider(ctx, "Gemini")).
		Delete("/v1beta/" + name)
	if err != nil {
		slog.Warn("Failed to delete Gemini file", "file", name, "error", err)
		return
	}
	if resp.IsError() {
		slog.Warn("Failed to delete Gemini file", "file", name, "status", resp.StatusCode())
	}
}
