package image

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"thumbgen/internal/imagegen"
)

type imageGenerator interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// ImagenProvider calls a dedicated Imagen model. It only does text-to-image.
type ImagenProvider struct {
	models imageGenerator
	model  string
}

// NewImagenProvider wraps client.Models. A nil client yields an unconfigured provider.
func NewImagenProvider(client *genai.Client, model string) *ImagenProvider {
	p := &ImagenProvider{model: strings.TrimSpace(model)}
	if client != nil {
		p.models = client.Models
	}
	return p
}

func (p *ImagenProvider) Name() string { return NameImagen }

func (p *ImagenProvider) Configured() bool { return p.models != nil && p.model != "" }

func (p *ImagenProvider) Supports(mode imagegen.Mode) bool {
	return supportsMode(mode, imagegen.ModeTextToImage)
}

func (p *ImagenProvider) Generate(ctx context.Context, req imagegen.Request) (imagegen.Response, error) {
	if req.Mode != imagegen.ModeTextToImage {
		return imagegen.Response{}, errors.New("imagen: image-to-image not supported")
	}
	resp, err := p.models.GenerateImages(ctx, p.model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    DefaultAspectRatio,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return imagegen.Response{}, geminiError(NameImagen, err)
	}
	var payloads []imagegen.Payload
	for _, gen := range resp.GeneratedImages {
		if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
			continue
		}
		payloads = append(payloads, imagegen.Payload{MIMEType: gen.Image.MIMEType, Data: gen.Image.ImageBytes})
	}
	return imagegen.Single(payloads...), nil
}

var _ imagegen.Provider = (*ImagenProvider)(nil)
