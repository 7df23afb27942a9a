package imagegen

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Normalize flattens a provider response into raw image buffers in arrival
// order. Text asides are logged and dropped; undecodable payloads are skipped.
// A stream error keeps whatever was collected before it.
func Normalize(resp Response, logger *zerolog.Logger) [][]byte {
	var out [][]byte
	add := func(p *Payload) {
		if p == nil {
			return
		}
		data, err := decodePayload(*p)
		if err != nil {
			logger.Warn().Err(err).Msg("imagegen: skipping undecodable image payload")
			return
		}
		if len(data) > 0 {
			out = append(out, data)
		}
	}

	if !resp.IsStreaming() {
		for i := range resp.images {
			add(&resp.images[i])
		}
		return out
	}

	for chunk, err := range resp.stream {
		if err != nil {
			logger.Warn().Err(err).Int("images", len(out)).Msg("imagegen: stream ended with error")
			break
		}
		if text := strings.TrimSpace(chunk.Text); text != "" {
			logger.Debug().Str("text", truncate(text, 200)).Msg("imagegen: provider text")
		}
		add(chunk.Image)
	}
	return out
}

func decodePayload(p Payload) ([]byte, error) {
	if len(p.Data) > 0 {
		return p.Data, nil
	}
	encoded := strings.TrimSpace(p.Base64)
	if encoded == "" {
		return nil, nil
	}
	if idx := strings.Index(encoded, ";base64,"); strings.HasPrefix(encoded, "data:") && idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(encoded); rawErr == nil {
			return raw, nil
		}
		return nil, err
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
