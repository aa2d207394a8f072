// Package gallery is the local media library that decoded images are saved
// to: a SQLite table of assets keyed by ULID.
package gallery

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zeebo/blake3"

	"github.com/hpungsan/frag/internal/datauri"
	"github.com/hpungsan/frag/internal/imaging"
)

// Asset is one stored image.
type Asset struct {
	// ID is a ULID.
	ID string

	// MimeType is taken from the data URI the image arrived in.
	MimeType string

	// ByteSize is len(Data).
	ByteSize int

	// Width and Height are read from the image header; 0 when the format
	// has no registered decoder.
	Width  int
	Height int

	// Digest is the hex BLAKE3-256 of Data.
	Digest string

	Data []byte

	// CreatedAt is a Unix timestamp.
	CreatedAt int64

	// DeletedAt is set on soft delete.
	DeletedAt *int64
}

// Summary is an asset without its bytes, for listings.
type Summary struct {
	ID        string `json:"id"`
	MimeType  string `json:"mime_type"`
	ByteSize  int    `json:"byte_size"`
	Size      string `json:"size"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Digest    string `json:"digest"`
	CreatedAt int64  `json:"created_at"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
}

// ToSummary strips the image bytes.
func (a *Asset) ToSummary() Summary {
	return Summary{
		ID:        a.ID,
		MimeType:  a.MimeType,
		ByteSize:  a.ByteSize,
		Size:      imaging.FormatBytes(a.ByteSize),
		Width:     a.Width,
		Height:    a.Height,
		Digest:    a.Digest,
		CreatedAt: a.CreatedAt,
		DeletedAt: a.DeletedAt,
	}
}

// DataURI re-encodes the asset as a data URI.
func (a *Asset) DataURI() string {
	return datauri.Encode(a.Data, a.MimeType)
}

// Extension is the file extension for the asset's MIME type, or "".
func (a *Asset) Extension() string {
	return datauri.SelectExtension(a.MimeType)
}

// DigestBytes returns the hex BLAKE3-256 of data.
func DigestBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewID generates a new ULID.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
