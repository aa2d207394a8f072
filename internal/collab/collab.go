// Package collab defines the external services the encode/decode pipeline
// talks to (pickers, image processing, file and gallery writers, clipboard)
// together with local implementations of each.
package collab

import "context"

// SourceRef identifies a picked source. Local implementations use a file path.
type SourceRef string

// FileInfo is what a file picker returns for a generic file.
type FileInfo struct {
	Ref      SourceRef `json:"ref"`
	MimeType string    `json:"mime_type"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
}

// Picker selects a source. ok is false when the user cancelled, which is not
// an error.
type Picker interface {
	PickImage(ctx context.Context) (ref SourceRef, ok bool, err error)
	PickFile(ctx context.Context) (info *FileInfo, ok bool, err error)
}

// RenderOptions controls one image render. A zero Width or Height keeps the
// source dimensions. Quality is in (0, 1].
type RenderOptions struct {
	Width   int
	Height  int
	Quality float64
}

// Rendered is an encoded image. Base64 carries no data URI header.
type Rendered struct {
	Base64   string
	MimeType string
	Width    int
	Height   int
}

// ImageProcessor re-encodes (and optionally resizes) an image. Output must be
// deterministic for fixed inputs.
type ImageProcessor interface {
	Render(ctx context.Context, ref SourceRef, opts RenderOptions) (*Rendered, error)
}

// FileReader returns the raw Base64 of a source, without a data URI header.
type FileReader interface {
	ReadAsBase64(ctx context.Context, ref SourceRef) (string, error)
}

// Asset is a decoded image handed to the gallery.
type Asset struct {
	MimeType string
	Data     []byte
}

// GalleryWriter persists images to a media library and returns the new asset id.
type GalleryWriter interface {
	SaveAsset(ctx context.Context, asset Asset) (string, error)
}

// FileWriter decodes a Base64 payload and writes it under name, returning the
// final path.
type FileWriter interface {
	Write(ctx context.Context, name, base64Payload string) (string, error)
}

// Clipboard receives copied text. Calls are fire-and-forget from the user's
// point of view, but failures are still reported to the caller.
type Clipboard interface {
	SetString(text string) error
}
