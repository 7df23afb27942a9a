package image

import (
	"bytes"
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"thumbgen/internal/imagegen"
)

type openAIImages interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
	CreateEditImage(ctx context.Context, request openai.ImageEditRequest) (openai.ImageResponse, error)
}

// OpenAIProvider calls the OpenAI images API. Image-to-image goes through the
// edits endpoint, which only accepts PNG references.
type OpenAIProvider struct {
	client openAIImages
	model  string
	size   string
}

// NewOpenAIProvider builds a provider around go-openai. Empty apiKey yields an
// unconfigured provider.
func NewOpenAIProvider(apiKey, baseURL, org, model, size string) *OpenAIProvider {
	p := &OpenAIProvider{model: strings.TrimSpace(model), size: strings.TrimSpace(size)}
	if p.model == "" {
		p.model = openai.CreateImageModelGptImage1
	}
	if p.size == "" {
		p.size = openai.CreateImageSize1536x1024
	}
	if hasKey(apiKey) {
		cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
		if base := strings.TrimSpace(baseURL); base != "" {
			cfg.BaseURL = strings.TrimRight(base, "/")
		}
		cfg.OrgID = strings.TrimSpace(org)
		p.client = openai.NewClientWithConfig(cfg)
	}
	return p
}

func (p *OpenAIProvider) Name() string { return NameOpenAI }

func (p *OpenAIProvider) Configured() bool { return p.client != nil }

func (p *OpenAIProvider) Supports(mode imagegen.Mode) bool {
	return supportsMode(mode, imagegen.ModeTextToImage, imagegen.ModeImageToImage)
}

func (p *OpenAIProvider) Generate(ctx context.Context, req imagegen.Request) (imagegen.Response, error) {
	var (
		resp openai.ImageResponse
		err  error
	)
	if req.Mode == imagegen.ModeImageToImage && req.Reference != nil {
		if req.Reference.MIMEType != "image/png" {
			return imagegen.Response{}, errors.New("openai: edits require a png reference")
		}
		resp, err = p.client.CreateEditImage(ctx, openai.ImageEditRequest{
			Image:          openai.WrapReader(bytes.NewReader(req.Reference.Data), "reference.png", req.Reference.MIMEType),
			Prompt:         req.Prompt,
			Model:          openai.CreateImageModelDallE2,
			N:              1,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
	} else {
		imgReq := openai.ImageRequest{
			Prompt: req.Prompt,
			Model:  p.model,
			N:      1,
			Size:   p.size,
		}
		// gpt-image models always answer in base64 and reject the parameter.
		if strings.HasPrefix(p.model, "dall-e") {
			imgReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
		}
		resp, err = p.client.CreateImage(ctx, imgReq)
	}
	if err != nil {
		return imagegen.Response{}, openAIError(err)
	}

	payloads := make([]imagegen.Payload, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.B64JSON == "" {
			continue
		}
		payloads = append(payloads, imagegen.Payload{MIMEType: "image/png", Base64: item.B64JSON})
	}
	return imagegen.Single(payloads...), nil
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classify(NameOpenAI, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classify(NameOpenAI, reqErr.HTTPStatusCode, err)
	}
	return classify(NameOpenAI, 0, err)
}

var _ imagegen.Provider = (*OpenAIProvider)(nil)
