package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipekeeper/internal/httpclient"
	"github.com/socialchef/recipekeeper/internal/metrics"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultGroqModel = "llama-3.3-70b-versatile"
	groqTimeout      = 60 * time.Second
)

const groqSystemPrompt = "You extract recipes and answer with a single JSON object only."

// GroqGenerator implements Generator for Groq's chat completions API. It
// only handles text.
type GroqGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGroqGenerator creates a new Groq generator
func NewGroqGenerator(apiKey, model string) *GroqGenerator {
	if model == "" {
		model = defaultGroqModel
	}
	return &GroqGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: groqBaseURL,
		client:  httpclient.NewInstrumentedClient(groqTimeout),
	}
}

// WithBaseURL points the generator at a different API host.
func (g *GroqGenerator) WithBaseURL(baseURL string) *GroqGenerator {
	g.baseURL = baseURL
	return g
}

func (g *GroqGenerator) Name() string { return string(ProviderGroq) }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

// Generate sends the prompt as a chat completion in JSON mode.
func (g *GroqGenerator) Generate(ctx context.Context, prompt string, media *Media) (string, error) {
	if media != nil {
		return "", ErrMediaUnsupported
	}

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		attrs := []attribute.KeyValue{attribute.String("provider", "groq")}
		metrics.AIGenerationDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: groqSystemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	req.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Groq"), http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("Groq API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from Groq")
	}

	return chatResp.Choices[0].Message.Content, nil
}
