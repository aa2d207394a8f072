package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/datauri"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
)

// SaveInput contains parameters for the Save operation.
// Exactly one of Text or Fragments should be set.
type SaveInput struct {
	Text      string
	Fragments []string

	// Digest, when set, must match the reassembled text or nothing is written.
	Digest string

	MaxBytes int64
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	Destination string `json:"destination"`
	AssetID     string `json:"asset_id,omitempty"`
	Path        string `json:"path,omitempty"`
	MimeType    string `json:"mime_type"`
	Bytes       int    `json:"bytes"`
	Message     string `json:"message"`
}

// Savers are the persistence targets for Save.
type Savers struct {
	Gallery collab.GalleryWriter
	Files   collab.FileWriter

	// Now names generic files; nil means time.Now.
	Now func() time.Time
}

// Save validates a pasted data URI and persists the decoded bytes: images
// (text starting with "data:image") go to the gallery, everything else to a
// file named file_<unix-millis><ext>. No retry is attempted on failure.
func Save(ctx context.Context, savers Savers, input SaveInput) (*SaveOutput, error) {
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

	if datauri.IsImage(text) {
		return saveAsGalleryAsset(ctx, savers, parts, data)
	}
	return saveAsGenericFile(ctx, savers, parts, len(data))
}

func saveAsGalleryAsset(ctx context.Context, savers Savers, parts *datauri.Parts, data []byte) (*SaveOutput, error) {
	if savers.Gallery == nil {
		return nil, errors.NewInternal(fmt.Errorf("no gallery configured"))
	}
	id, err := savers.Gallery.SaveAsset(ctx, collab.Asset{MimeType: parts.MimeType, Data: data})
	if err != nil {
		return nil, errors.WrapIO("save image to gallery", err)
	}
	return &SaveOutput{
		Destination: DestinationGallery,
		AssetID:     id,
		MimeType:    parts.MimeType,
		Bytes:       len(data),
		Message:     "Image saved to gallery",
	}, nil
}

func saveAsGenericFile(ctx context.Context, savers Savers, parts *datauri.Parts, size int) (*SaveOutput, error) {
	if savers.Files == nil {
		return nil, errors.NewInternal(fmt.Errorf("no file writer configured"))
	}
	now := time.Now
	if savers.Now != nil {
		now = savers.Now
	}

	name := GenericFileName(now(), parts.MimeType)
	path, err := savers.Files.Write(ctx, name, parts.Payload)
	if err != nil {
		return nil, errors.WrapIO("save file", err)
	}
	return &SaveOutput{
		Destination: DestinationFile,
		Path:        path,
		MimeType:    parts.MimeType,
		Bytes:       size,
		Message:     "File saved to " + path,
	}, nil
}

// GenericFileName is file_<unix-millis><ext>; the extension is empty for
// unknown MIME types.
func GenericFileName(t time.Time, mimeType string) string {
	return fmt.Sprintf("file_%d%s", t.UnixMilli(), datauri.SelectExtension(mimeType))
}
