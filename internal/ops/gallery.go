package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
	"github.com/hpungsan/frag/internal/gallery"
)

// GalleryListInput contains parameters for the GalleryList operation.
type GalleryListInput struct {
	Limit          int // default: 20, max: 100
	Offset         int // default: 0
	IncludeDeleted bool
}

// GalleryListOutput contains the result of the GalleryList operation.
type GalleryListOutput struct {
	Items      []gallery.Summary  `json:"items"`
	Pagination gallery.Pagination `json:"pagination"`
	Sort       string             `json:"sort"`
}

// GalleryList returns asset summaries, newest first.
func GalleryList(ctx context.Context, store *gallery.Store, input GalleryListInput) (*GalleryListOutput, error) {
	items, page, err := store.List(ctx, input.Limit, input.Offset, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	return &GalleryListOutput{
		Items:      items,
		Pagination: page,
		Sort:       "created_at_desc",
	}, nil
}

// GalleryShowInput contains parameters for the GalleryShow operation.
type GalleryShowInput struct {
	ID string

	// IncludeData adds the asset as a data URI plus its fragments.
	IncludeData bool
	ChunkSize   int
}

// GalleryShowOutput contains the result of the GalleryShow operation.
type GalleryShowOutput struct {
	gallery.Summary
	DataURI    string          `json:"data_uri,omitempty"`
	DataDigest string          `json:"data_uri_digest,omitempty"`
	Fragments  []fragment.Info `json:"fragments,omitempty"`
}

// GalleryShow returns one asset. With IncludeData the asset is re-encoded as
// a data URI, ready to be chunked and sent again.
func GalleryShow(ctx context.Context, store *gallery.Store, input GalleryShowInput) (*GalleryShowOutput, error) {
	a, err := store.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &GalleryShowOutput{Summary: a.ToSummary()}
	if !input.IncludeData {
		return out, nil
	}

	out.DataURI = a.DataURI()
	out.DataDigest = fragment.Digest(out.DataURI)
	if input.ChunkSize > 0 {
		frags, err := fragment.Chunk(out.DataURI, input.ChunkSize)
		if err != nil {
			return nil, err
		}
		out.Fragments = fragment.Describe(frags)
	}
	return out, nil
}

// GalleryExportInput contains parameters for the GalleryExport operation.
type GalleryExportInput struct {
	ID string

	// Path is optional; default: <output dir>/asset_<id><ext>.
	Path string
}

// GalleryExportOutput contains the result of the GalleryExport operation.
type GalleryExportOutput struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Bytes        int    `json:"bytes"`
	MimeType     string `json:"mime_type"`
	DetectedType string `json:"detected_mime_type"`
}

// GalleryExport writes an asset's bytes to a file. Existing files are never
// overwritten.
func GalleryExport(ctx context.Context, store *gallery.Store, cfg *config.Config, outputDir string, input GalleryExportInput) (*GalleryExportOutput, error) {
	a, err := store.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	path := input.Path
	if path == "" {
		if err := os.MkdirAll(outputDir, 0700); err != nil {
			return nil, errors.WrapIO("create output directory", err)
		}
		path = filepath.Join(outputDir, collab.SanitizeForFilename("asset_"+a.ID+a.Extension()))
	}

	if err := collab.ValidateExportPath(path, outputDir, cfg); err != nil {
		return nil, err
	}
	if _, err := os.Lstat(path); err == nil {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("file already exists: %s", path))
	}

	if err := collab.WriteFileAtomic(path, a.Data); err != nil {
		return nil, errors.WrapIO("export asset", err)
	}

	return &GalleryExportOutput{
		ID:           a.ID,
		Path:         path,
		Bytes:        a.ByteSize,
		MimeType:     a.MimeType,
		DetectedType: collab.DetectMimeType(a.Data),
	}, nil
}

// GalleryDeleteOutput contains the result of the GalleryDelete operation.
type GalleryDeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// GalleryDelete soft-deletes an asset.
func GalleryDelete(ctx context.Context, store *gallery.Store, id string) (*GalleryDeleteOutput, error) {
	if err := store.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &GalleryDeleteOutput{Deleted: true, ID: id}, nil
}

// GalleryPurgeInput contains parameters for the GalleryPurge operation.
type GalleryPurgeInput struct {
	OlderThanDays *int // optional, only purge if deleted_at < (now - N days)
}

// GalleryPurgeOutput contains the result of the GalleryPurge operation.
type GalleryPurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// GalleryPurge permanently removes soft-deleted assets.
func GalleryPurge(ctx context.Context, store *gallery.Store, input GalleryPurgeInput) (*GalleryPurgeOutput, error) {
	n, err := store.Purge(ctx, input.OlderThanDays)
	if err != nil {
		return nil, err
	}
	return &GalleryPurgeOutput{Purged: n, Message: formatPurgeMessage(n, input.OlderThanDays)}, nil
}

func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No deleted assets to purge"
	}
	msg := "Permanently deleted " + plural(count, "asset")
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted more than %d days ago)", *olderThanDays)
	}
	return msg
}
