// Package ops implements the operations shared by the CLI, the MCP server and
// the web UI. Each takes an input struct and returns an output struct ready to
// be rendered as JSON.
package ops

import (
	"fmt"

	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
)

// Destinations for a saved data URI.
const (
	DestinationGallery = "gallery"
	DestinationFile    = "file"
)

// resolveText returns text, or the in-order concatenation of fragments when
// text is empty. Supplying both is ambiguous.
func resolveText(text string, fragments []string) (string, error) {
	if text != "" && len(fragments) > 0 {
		return "", errors.NewInvalidArgument("specify either text or fragments, not both")
	}
	if len(fragments) > 0 {
		return fragment.Reassemble(fragments), nil
	}
	return text, nil
}

// checkSize enforces max (0 = unlimited) on a pasted string.
func checkSize(text string, max int64) error {
	if max > 0 && int64(len(text)) > max {
		return errors.NewInputTooLarge(max, int64(len(text)))
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
