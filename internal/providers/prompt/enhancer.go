// Package prompt rewrites composed thumbnail prompts with a text model.
package prompt

import (
	"context"
	"errors"
	"strings"

	"thumbgen/internal/infra"
)

// ErrEmptyEnhancement is returned when a model answered with nothing usable.
var ErrEmptyEnhancement = errors.New("prompt: empty enhancement")

// Enhancer rewrites a prompt into a more vivid one.
type Enhancer interface {
	Name() string
	Enhance(ctx context.Context, prompt string) (string, error)
}

// StaticEnhancer returns prompts unchanged. Used when no text model is configured.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (s *StaticEnhancer) Name() string { return staticProviderName }

func (s *StaticEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	return prompt, nil
}

// BestEffort runs e and falls back to prompt on any failure. The bool reports
// whether the returned text differs from the input.
func BestEffort(ctx context.Context, e Enhancer, prompt string, logger *infra.Logger) (string, bool) {
	if e == nil {
		return prompt, false
	}
	logger = infra.LoggerOrDiscard(logger)
	enhanced, err := e.Enhance(ctx, prompt)
	if err != nil {
		logger.Warn().Err(err).Str("enhancer", e.Name()).Msg("prompt: enhancement failed, using composed prompt")
		return prompt, false
	}
	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		logger.Warn().Str("enhancer", e.Name()).Msg("prompt: empty enhancement, using composed prompt")
		return prompt, false
	}
	return enhanced, enhanced != prompt
}

// withFallback delegates to fallback when err is non-nil and a fallback exists.
func withFallback(ctx context.Context, fallback Enhancer, onFallback func(string, error), reason, prompt string, err error) (string, error) {
	if onFallback != nil {
		onFallback(reason, err)
	}
	if fallback == nil {
		return "", err
	}
	return fallback.Enhance(ctx, prompt)
}

var _ Enhancer = (*StaticEnhancer)(nil)
