package domain

import "strings"

// Mode selects between prompt-only and reference-guided generation.
type Mode string

const (
	ModeTextToImage  Mode = "text-to-image"
	ModeImageToImage Mode = "image-to-image"
)

// ParseMode maps a form value onto a Mode. Unknown values yield ok=false.
func ParseMode(raw string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "text-to-image", "text", "t2i":
		return ModeTextToImage, true
	case "image-to-image", "image", "i2i":
		return ModeImageToImage, true
	default:
		return "", false
	}
}

// PromptFields are the structured inputs a thumbnail prompt is composed from.
// Every field is optional.
type PromptFields struct {
	Category       string `json:"category,omitempty"`
	Mood           string `json:"mood,omitempty"`
	Theme          string `json:"theme,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	IncludeText    bool   `json:"includeText,omitempty"`
	TextStyle      string `json:"textStyle,omitempty"`
	ThumbnailStyle string `json:"thumbnailStyle,omitempty"`
	CustomPrompt   string `json:"customPrompt,omitempty"`
}

// HasStructured reports whether any field besides CustomPrompt is set.
func (f PromptFields) HasStructured() bool {
	for _, v := range []string{f.Category, f.Mood, f.Theme, f.PrimaryColor, f.TextStyle, f.ThumbnailStyle} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return f.IncludeText
}
