package image

import (
	"google.golang.org/genai"

	"thumbgen/internal/imagegen"
	"thumbgen/internal/infra"
	"thumbgen/internal/providers/qwen"
)

// Keys carries resolved provider API keys.
type Keys struct {
	Gemini string
	OpenAI string
	Qwen   string
}

// FromConfig builds every known provider and returns them in cfg.ImageProviders
// order. Unknown names are logged and skipped. gemini may be nil when no Gemini
// key is available.
func FromConfig(cfg *infra.Config, keys Keys, gemini *genai.Client, logger *infra.Logger) []imagegen.Provider {
	logger = infra.LoggerOrDiscard(logger)
	qwenClient := qwen.NewClient(qwen.Options{
		APIKey:         keys.Qwen,
		BaseURL:        cfg.QwenBaseURL,
		Model:          cfg.QwenModel,
		EditModel:      cfg.QwenEditModel,
		DefaultSize:    cfg.QwenSize,
		RequestTimeout: cfg.ProviderTimeout,
		Logger:         logger,
	})
	available := map[string]imagegen.Provider{
		NameGemini: NewGeminiProvider(gemini, cfg.GeminiImageModel),
		NameImagen: NewImagenProvider(gemini, cfg.ImagenModel),
		NameOpenAI: NewOpenAIProvider(keys.OpenAI, cfg.OpenAIBaseURL, cfg.OpenAIOrg, cfg.OpenAIImageModel, cfg.OpenAIImageSize),
		NameQwen:   NewQwenProvider(qwenClient),
	}
	return Ordered(cfg.ImageProviders, available, logger)
}

// Ordered picks providers by name, keeping the order of names and dropping duplicates.
func Ordered(names []string, available map[string]imagegen.Provider, logger *infra.Logger) []imagegen.Provider {
	logger = infra.LoggerOrDiscard(logger)
	seen := map[string]bool{}
	var out []imagegen.Provider
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := available[name]
		if !ok {
			logger.Warn().Str("provider", name).Msg("image: unknown provider in IMAGE_PROVIDER_ORDER")
			continue
		}
		out = append(out, p)
	}
	return out
}
