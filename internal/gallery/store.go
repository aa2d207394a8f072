package gallery

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Store is the gallery backed by a database opened with Init.
// It implements collab.GalleryWriter.
type Store struct {
	DB *sql.DB

	// now is overridden in tests.
	now func() time.Time
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, now: time.Now}
}

var _ collab.GalleryWriter = (*Store)(nil)

// SaveAsset stores an image and returns its new id. The MIME type must start
// with "image", the same test datauri.IsImage applies. Dimensions are read
// from the image header when a decoder is registered for the format.
func (s *Store) SaveAsset(ctx context.Context, asset collab.Asset) (string, error) {
	mt := strings.ToLower(collab.BareMimeType(asset.MimeType))
	if !strings.HasPrefix(mt, "image") {
		return "", errors.NewInvalidArgument(fmt.Sprintf("gallery only accepts images, got %q", asset.MimeType))
	}

	id, err := NewID()
	if err != nil {
		return "", errors.NewInternal(err)
	}

	data := asset.Data
	if data == nil {
		data = []byte{}
	}

	a := &Asset{
		ID:        id,
		MimeType:  mt,
		ByteSize:  len(data),
		Digest:    DigestBytes(data),
		Data:      data,
		CreatedAt: s.clock().Unix(),
	}
	if w, h, ok := collab.ImageSize(data); ok {
		a.Width, a.Height = w, h
	}

	if err := Insert(ctx, s.DB, a); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns an active asset with its bytes.
func (s *Store) Get(ctx context.Context, id string) (*Asset, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidArgument("id is required")
	}
	return GetByID(ctx, s.DB, id, false)
}

// List returns a page of summaries, newest first. limit is clamped to
// [1, MaxListLimit] with DefaultListLimit for non-positive values.
func (s *Store) List(ctx context.Context, limit, offset int, includeDeleted bool) ([]Summary, Pagination, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	items, total, err := ListSummaries(ctx, s.DB, limit, offset, includeDeleted)
	if err != nil {
		return nil, Pagination{}, err
	}
	if items == nil {
		items = []Summary{}
	}

	return items, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(items) < total,
		Total:   total,
	}, nil
}

// Delete soft-deletes an asset.
func (s *Store) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.NewInvalidArgument("id is required")
	}
	return SoftDelete(ctx, s.DB, id)
}

// Purge permanently removes soft-deleted assets.
func (s *Store) Purge(ctx context.Context, olderThanDays *int) (int, error) {
	if olderThanDays != nil && *olderThanDays < 0 {
		return 0, errors.NewInvalidArgument("older_than_days must be >= 0")
	}
	return PurgeDeleted(ctx, s.DB, olderThanDays)
}

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
