package ops

import (
	"github.com/hpungsan/frag/internal/fragment"
)

// ChunkInput contains parameters for the Chunk operation.
type ChunkInput struct {
	Text string
	Size int

	// MaxBytes caps Text. 0 means no limit.
	MaxBytes int64
}

// ChunkOutput contains the result of the Chunk operation.
type ChunkOutput struct {
	Length    int             `json:"length"`
	Size      int             `json:"size"`
	Count     int             `json:"count"`
	Digest    string          `json:"digest"`
	Fragments []string        `json:"fragments"`
	Infos     []fragment.Info `json:"infos"`
}

// Chunk splits arbitrary text into fixed-size fragments. The text need not be
// a data URI.
func Chunk(input ChunkInput) (*ChunkOutput, error) {
	if err := checkSize(input.Text, input.MaxBytes); err != nil {
		return nil, err
	}

	fragments, err := fragment.Chunk(input.Text, input.Size)
	if err != nil {
		return nil, err
	}
	if fragments == nil {
		fragments = []string{}
	}

	return &ChunkOutput{
		Length:    len(input.Text),
		Size:      input.Size,
		Count:     len(fragments),
		Digest:    fragment.Digest(input.Text),
		Fragments: fragments,
		Infos:     fragment.Describe(fragments),
	}, nil
}
