package image

import (
	"context"
	"errors"
	"iter"
	"strings"

	"google.golang.org/genai"

	"thumbgen/internal/imagegen"
)

type contentStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GeminiProvider calls a multimodal Gemini model and streams image parts back.
type GeminiProvider struct {
	models      contentStreamer
	model       string
	aspectRatio string
}

// NewGeminiProvider wraps client.Models. A nil client yields an unconfigured provider.
func NewGeminiProvider(client *genai.Client, model string) *GeminiProvider {
	p := &GeminiProvider{model: strings.TrimSpace(model), aspectRatio: DefaultAspectRatio}
	if client != nil {
		p.models = client.Models
	}
	return p
}

func (p *GeminiProvider) Name() string { return NameGemini }

func (p *GeminiProvider) Configured() bool { return p.models != nil && p.model != "" }

func (p *GeminiProvider) Supports(mode imagegen.Mode) bool {
	return supportsMode(mode, imagegen.ModeTextToImage, imagegen.ModeImageToImage)
}

func (p *GeminiProvider) Generate(ctx context.Context, req imagegen.Request) (imagegen.Response, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Reference.Data, req.Reference.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	}
	if req.Mode == imagegen.ModeTextToImage && p.aspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: p.aspectRatio}
	}

	next, stop := iter.Pull2(p.models.GenerateContentStream(ctx, p.model, contents, config))
	first, err, ok := next()
	if !ok {
		stop()
		return imagegen.Streaming(func(func(imagegen.Chunk, error) bool) {}), nil
	}
	if err != nil {
		stop()
		return imagegen.Response{}, geminiError(NameGemini, err)
	}

	return imagegen.Streaming(func(yield func(imagegen.Chunk, error) bool) {
		defer stop()
		resp := first
		for {
			for _, chunk := range geminiChunks(resp) {
				if !yield(chunk, nil) {
					return
				}
			}
			var err error
			var ok bool
			resp, err, ok = next()
			if !ok {
				return
			}
			if err != nil {
				yield(imagegen.Chunk{}, geminiError(NameGemini, err))
				return
			}
		}
	}), nil
}

func geminiChunks(resp *genai.GenerateContentResponse) []imagegen.Chunk {
	if resp == nil {
		return nil
	}
	var out []imagegen.Chunk
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				out = append(out, imagegen.Chunk{Image: &imagegen.Payload{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				}})
				continue
			}
			if part.Text != "" {
				out = append(out, imagegen.Chunk{Text: part.Text})
			}
		}
	}
	return out
}

func geminiError(provider string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classify(provider, apiErr.Code, err)
	}
	return classify(provider, 0, err)
}

var _ imagegen.Provider = (*GeminiProvider)(nil)
