package imagegen

import (
	"context"
	"iter"

	"thumbgen/internal/domain"
)

// Mode aliases domain.Mode so providers only need this package.
type Mode = domain.Mode

const (
	ModeTextToImage  = domain.ModeTextToImage
	ModeImageToImage = domain.ModeImageToImage
)

// Reference is the caller-supplied image guiding an image-to-image run.
type Reference struct {
	Data     []byte
	MIMEType string
}

// Request is what a provider receives for one attempt of one slot.
type Request struct {
	Mode      Mode
	Prompt    string
	Slot      int
	Reference *Reference
}

// Payload is a single generated image, either raw or base64 encoded.
type Payload struct {
	MIMEType string
	Data     []byte
	Base64   string
}

// Chunk is one piece of a streamed provider response. Text is an aside the
// model produced alongside (or instead of) an image.
type Chunk struct {
	Text  string
	Image *Payload
}

// Response is either a stream of chunks or a single batch of images.
type Response struct {
	stream iter.Seq2[Chunk, error]
	images []Payload
}

// Streaming wraps a chunk sequence. Iteration stops at the first error.
func Streaming(seq iter.Seq2[Chunk, error]) Response {
	return Response{stream: seq}
}

// Single wraps images returned in one piece.
func Single(images ...Payload) Response {
	return Response{images: images}
}

// IsStreaming reports which variant r holds.
func (r Response) IsStreaming() bool {
	return r.stream != nil
}

// Provider is an upstream image generator.
type Provider interface {
	Name() string
	Supports(mode Mode) bool
	Configured() bool
	Generate(ctx context.Context, req Request) (Response, error)
}
