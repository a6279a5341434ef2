// Package recipe turns free text or a downloaded video into a recipe record
// by prompting a generative model and parsing its JSON reply.
package recipe

import "context"

// ProviderType names a generative backend.
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderGroq   ProviderType = "groq"
)

// Media is a local file sent to the model alongside the prompt.
type Media struct {
	Path     string
	MIMEType string
}

// Generator sends a prompt, and optionally a media file, to a generative
// model and returns its raw text reply.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, media *Media) (string, error)
}
