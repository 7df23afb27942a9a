package image

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"thumbgen/internal/imagegen"
	"thumbgen/internal/providers/qwen"
)

type qwenImageClient interface {
	GenerateImage(context.Context, qwen.ImageRequest) (*qwen.ImageAsset, error)
	HasCredentials() bool
	SupportsEdit() bool
}

// QwenProvider calls DashScope's Qwen image models.
type QwenProvider struct {
	client qwenImageClient
}

func NewQwenProvider(client qwenImageClient) *QwenProvider {
	return &QwenProvider{client: client}
}

func (p *QwenProvider) Name() string { return NameQwen }

func (p *QwenProvider) Configured() bool {
	return p.client != nil && p.client.HasCredentials()
}

func (p *QwenProvider) Supports(mode imagegen.Mode) bool {
	if mode == imagegen.ModeImageToImage {
		return p.client != nil && p.client.SupportsEdit()
	}
	return mode == imagegen.ModeTextToImage
}

func (p *QwenProvider) Generate(ctx context.Context, req imagegen.Request) (imagegen.Response, error) {
	imageReq := qwen.ImageRequest{
		Prompt: strings.TrimSpace(req.Prompt),
		Seed:   deterministicSeed(req.Prompt, req.Mode, req.Slot),
	}
	if req.Reference != nil {
		imageReq.Reference = req.Reference.Data
		imageReq.ReferenceMIME = req.Reference.MIMEType
	}
	asset, err := p.client.GenerateImage(ctx, imageReq)
	if err != nil {
		var apiErr *qwen.APIError
		if errors.As(err, &apiErr) && apiErr.Throttled() {
			return imagegen.Response{}, fmt.Errorf("%s: %w: %v", NameQwen, imagegen.ErrRateLimited, err)
		}
		return imagegen.Response{}, err
	}
	if asset == nil || len(asset.Data) == 0 {
		return imagegen.Single(), nil
	}
	return imagegen.Single(imagegen.Payload{MIMEType: asset.Format, Data: asset.Data}), nil
}

// deterministicSeed gives each slot of the same prompt a distinct, reproducible seed.
func deterministicSeed(values ...any) int {
	var parts []string
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	n := binary.BigEndian.Uint32(sum[:4])
	value := int(n % 2147483647)
	if value <= 0 {
		fallback := binary.BigEndian.Uint32(sum[4:8]) % 2147483647
		if fallback == 0 {
			fallback = 1
		}
		value = int(fallback)
	}
	return value
}

var _ imagegen.Provider = (*QwenProvider)(nil)
