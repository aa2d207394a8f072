package ops

import (
	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/datauri"
	"github.com/hpungsan/frag/internal/fragment"
	"github.com/hpungsan/frag/internal/imaging"
)

// InspectInput contains parameters for the Inspect operation.
// Exactly one of Text or Fragments should be set.
type InspectInput struct {
	Text      string
	Fragments []string

	// Digest, when set, is checked against the reassembled text.
	Digest string

	MaxBytes int64
}

// InspectOutput describes a data URI without persisting it.
type InspectOutput struct {
	MimeType      string `json:"mime_type"`
	IsImage       bool   `json:"is_image"`
	Destination   string `json:"destination"`
	Extension     string `json:"extension,omitempty"`
	Length        int    `json:"length"`
	EstimatedSize int    `json:"estimated_size"`
	Size          string `json:"size"`
	DecodedSize   int    `json:"decoded_size"`
	Digest        string `json:"digest"`
	Verified      bool   `json:"verified,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
}

// Inspect validates and decodes a data URI and reports where Save would put
// it. Nothing is written.
func Inspect(input InspectInput) (*InspectOutput, error) {
	text, err := resolveText(input.Text, input.Fragments)
	if err != nil {
		return nil, err
	}
	if err := checkSize(text, input.MaxBytes); err != nil {
		return nil, err
	}

	parts, err := datauri.Validate(text)
	if err != nil {
		return nil, err
	}
	if err := fragment.Verify(text, input.Digest); err != nil {
		return nil, err
	}
	data, err := datauri.DecodePayload(parts.Payload)
	if err != nil {
		return nil, err
	}

	out := &InspectOutput{
		MimeType:      parts.MimeType,
		IsImage:       datauri.IsImage(text),
		Destination:   DestinationFile,
		Extension:     datauri.SelectExtension(parts.MimeType),
		Length:        len(text),
		EstimatedSize: datauri.EstimateDecodedSize(text),
		DecodedSize:   len(data),
		Digest:        fragment.Digest(text),
		Verified:      input.Digest != "",
	}
	out.Size = imaging.FormatBytes(out.EstimatedSize)
	if out.IsImage {
		out.Destination = DestinationGallery
		if w, h, ok := collab.ImageSize(data); ok {
			out.Width, out.Height = w, h
		}
	}
	return out, nil
}
