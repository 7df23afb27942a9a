package imagegen

import (
	"strconv"
	"strings"
)

const (
	MinCount     = 1
	MaxCount     = 4
	DefaultCount = MaxCount
)

// ClampCount parses a requested image count. Unparseable input yields
// DefaultCount; everything else is clamped to [MinCount, MaxCount].
func ClampCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultCount
	}
	return clamp(n)
}

func clamp(n int) int {
	if n < MinCount {
		return MinCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}
