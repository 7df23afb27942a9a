// Package image adapts upstream image APIs to the imagegen.Provider contract.
package image

import (
	"fmt"
	"net/http"
	"strings"

	"thumbgen/internal/imagegen"
)

const (
	NameGemini = "gemini"
	NameImagen = "imagen"
	NameOpenAI = "openai"
	NameQwen   = "qwen"
)

// DefaultAspectRatio is the thumbnail frame requested from providers that accept one.
const DefaultAspectRatio = "16:9"

// classify wraps err with imagegen.ErrRateLimited when the upstream status is 429.
func classify(provider string, status int, err error) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %v", provider, imagegen.ErrRateLimited, err)
	}
	return fmt.Errorf("%s: %w", provider, err)
}

func supportsMode(mode imagegen.Mode, modes ...imagegen.Mode) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

func hasKey(key string) bool {
	return strings.TrimSpace(key) != ""
}
