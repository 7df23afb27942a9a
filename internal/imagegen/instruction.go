package imagegen

import (
	"strconv"
	"strings"

	"thumbgen/internal/domain"
)

// QualitySuffix closes every composed prompt.
const QualitySuffix = "high quality, professional, eye-catching, clean composition"

var preservationClauses = []string{
	"preserve the key visual elements of the reference image",
	"maintain the composition and subject matter of the reference image",
	"keep recognizable features from the reference image",
}

// Compose builds the generation prompt from structured fields. It never
// fails and never returns an empty string.
func Compose(fields domain.PromptFields, mode Mode) string {
	seed := strings.TrimSpace(fields.CustomPrompt)

	var clauses []string
	if v := strings.TrimSpace(fields.Category); v != "" {
		clauses = append(clauses, v+" style")
	}
	if v := strings.TrimSpace(fields.ThumbnailStyle); v != "" {
		clauses = append(clauses, v+" thumbnail")
	}
	if v := strings.TrimSpace(fields.Theme); v != "" {
		clauses = append(clauses, "with "+v+" theme")
	}
	if v := strings.TrimSpace(fields.Mood); v != "" {
		clauses = append(clauses, v+" mood")
	}
	if v := strings.TrimSpace(fields.PrimaryColor); v != "" {
		clauses = append(clauses, "dominant "+v+" color palette")
	}
	if fields.IncludeText {
		if style := strings.TrimSpace(fields.TextStyle); style != "" {
			clauses = append(clauses, "featuring "+style+" text overlay")
		} else {
			clauses = append(clauses, "with text overlay")
		}
	}
	if mode == ModeImageToImage {
		clauses = append(clauses, preservationClauses...)
	}

	prompt := seed
	if len(clauses) > 0 {
		if prompt != "" {
			prompt += ", "
		}
		prompt += strings.Join(clauses, ", ")
	}
	if prompt == "" {
		return QualitySuffix
	}
	return prompt + ", " + QualitySuffix
}

// ParseFlag reads a boolean form value such as includeText or enhance.
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes", "y":
		return true
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
