package prompt

import (
	"strings"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"
)

const systemInstruction = "You rewrite image generation prompts for video thumbnails. " +
	"Return one or two vivid sentences describing the image, keeping every subject, style, color and text requirement of the input. " +
	"Reply with the rewritten prompt only, without quotes, labels or commentary."

func userMessage(prompt string) string {
	return "Rewrite this thumbnail prompt:\n" + prompt
}

// cleanEnhancement strips the wrapping models like to add around a one-line answer.
func cleanEnhancement(raw string) string {
	text := trimCodeFence(raw)
	for _, prefix := range []string{"enhanced prompt:", "rewritten prompt:", "prompt:"} {
		if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			text = strings.TrimSpace(text[len(prefix):])
		}
	}
	text = strings.Trim(text, "\"'“”` \n\t")
	return strings.Join(strings.Fields(text), " ")
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```text")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
