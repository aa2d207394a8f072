package ops

import (
	"fmt"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
)

// CopyInput contains parameters for the Copy operation.
type CopyInput struct {
	Text string

	// Index selects one fragment of Text split at ChunkSize. Nil copies the
	// whole text.
	Index     *int
	ChunkSize int
}

// CopyOutput contains the result of the Copy operation.
type CopyOutput struct {
	Label   string `json:"label"`
	Length  int    `json:"length"`
	Message string `json:"message"`
}

// Copy puts the whole text, or one fragment of it, on the clipboard.
func Copy(clip collab.Clipboard, input CopyInput) (*CopyOutput, error) {
	if input.Text == "" {
		return nil, errors.NewInvalidArgument("nothing to copy")
	}

	if input.Index == nil {
		if err := clip.SetString(input.Text); err != nil {
			return nil, errors.WrapIO("copy to clipboard", err)
		}
		return &CopyOutput{
			Label:   "Complete Base64",
			Length:  len(input.Text),
			Message: "Complete Base64 copied to clipboard",
		}, nil
	}

	fragments, err := fragment.Chunk(input.Text, input.ChunkSize)
	if err != nil {
		return nil, err
	}
	i := *input.Index
	if i < 0 || i >= len(fragments) {
		return nil, errors.NewInvalidArgument(
			fmt.Sprintf("fragment index %d out of range (have %s)", i, plural(len(fragments), "fragment")))
	}

	if err := clip.SetString(fragments[i]); err != nil {
		return nil, errors.WrapIO("copy to clipboard", err)
	}
	label := fragment.Label(i)
	return &CopyOutput{
		Label:   label,
		Length:  len(fragments[i]),
		Message: label + " copied to clipboard",
	}, nil
}
