package prompt

import (
	"google.golang.org/genai"

	"thumbgen/internal/infra"
)

// Settings selects and configures the enhancer chain.
type Settings struct {
	Provider      string
	Gemini        *genai.Client
	GeminiModel   string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string
}

// Select builds the enhancer named by s.Provider, chaining the other
// configured model as its fallback. It never returns nil.
func Select(s Settings, logger *infra.Logger) Enhancer {
	logger = infra.LoggerOrDiscard(logger)
	onFallback := func(reason string, err error) {
		logger.Warn().Err(err).Str("reason", reason).Msg("prompt: enhancer falling back")
	}
	onWarning := func(reason, detail string) {
		logger.Warn().Str("reason", reason).Str("detail", detail).Msg("prompt: enhancer configuration")
	}

	var gemini, openAI Enhancer
	if s.Gemini != nil {
		if g, err := NewGeminiEnhancer(GeminiOptions{Client: s.Gemini, Model: s.GeminiModel, OnFallback: onFallback}); err == nil {
			gemini = g
		}
	}
	if s.OpenAIKey != "" {
		if o, err := NewOpenAIEnhancer(OpenAIOptions{
			APIKey:       s.OpenAIKey,
			Model:        s.OpenAIModel,
			BaseURL:      s.OpenAIBaseURL,
			Organization: s.OpenAIOrg,
			OnFallback:   onFallback,
			OnWarning:    onWarning,
		}); err == nil {
			openAI = o
		}
	}

	switch s.Provider {
	case geminiProviderName:
		if g, ok := gemini.(*GeminiEnhancer); ok {
			g.fallback = openAI
			return g
		}
		if openAI != nil {
			return openAI
		}
	case openAIProviderName:
		if o, ok := openAI.(*OpenAIEnhancer); ok {
			o.fallback = gemini
			return o
		}
		if gemini != nil {
			return gemini
		}
	}
	return NewStaticEnhancer()
}
