package prompt

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"
)

const geminiDefaultTimeout = 15 * time.Second

type textGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiOptions struct {
	Client     *genai.Client
	Model      string
	Timeout    time.Duration
	Fallback   Enhancer
	OnFallback func(reason string, err error)
}

// GeminiEnhancer rewrites prompts with a Gemini text model.
type GeminiEnhancer struct {
	models     textGenerator
	model      string
	timeout    time.Duration
	fallback   Enhancer
	onFallback func(reason string, err error)
}

func NewGeminiEnhancer(opts GeminiOptions) (*GeminiEnhancer, error) {
	if opts.Client == nil {
		return nil, errors.New("gemini client is required")
	}
	return newGeminiEnhancer(opts.Client.Models, opts), nil
}

func newGeminiEnhancer(models textGenerator, opts GeminiOptions) *GeminiEnhancer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = geminiDefaultTimeout
	}
	return &GeminiEnhancer{
		models:     models,
		model:      coalesce(opts.Model, "gemini-2.5-flash"),
		timeout:    timeout,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}
}

func (g *GeminiEnhancer) Name() string { return geminiProviderName }

func (g *GeminiEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temperature := float32(0.7)
	resp, err := g.models.GenerateContent(callCtx, g.model, genai.Text(userMessage(prompt)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   256,
	})
	if err != nil {
		return withFallback(ctx, g.fallback, g.onFallback, "generate_content", prompt, err)
	}
	text := cleanEnhancement(resp.Text())
	if strings.TrimSpace(text) == "" {
		return withFallback(ctx, g.fallback, g.onFallback, "empty_response", prompt, ErrEmptyEnhancement)
	}
	return text, nil
}

var _ Enhancer = (*GeminiEnhancer)(nil)
