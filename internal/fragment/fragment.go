// Package fragment splits data URI strings into fixed-size pieces for manual
// transport and joins them back.
package fragment

import (
	"fmt"
	"math"
	"strings"

	"github.com/hpungsan/frag/internal/errors"
)

// Chunk splits s into consecutive slices of size bytes starting at offset 0.
// The last slice may be shorter. An empty s yields an empty slice.
//
// Slicing is by byte. Data URIs are ASCII so bytes and characters coincide;
// for other input the concatenation law still holds exactly.
func Chunk(s string, size int) ([]string, error) {
	if size <= 0 {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("chunk size must be a positive integer, got %d", size))
	}

	chunks := make([]string, 0, Count(len(s), size))
	for i := 0; i < len(s); i += size {
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks, nil
}

// Count returns ceil(length/size), the number of fragments Chunk produces.
// size must be positive.
func Count(length, size int) int {
	if length <= 0 || size <= 0 {
		return 0
	}
	return (length + size - 1) / size
}

// Reassemble concatenates fragments in the order given. It performs no
// reordering, deduplication or integrity checks; see Verify for that.
func Reassemble(fragments []string) string {
	return strings.Join(fragments, "")
}

// Label returns the one-based display name of the fragment at index i.
func Label(i int) string {
	return fmt.Sprintf("Fragment %d", i+1)
}

// SizeLabel renders a fragment length in thousands of characters, rounded,
// e.g. 20000 → "20k chars".
func SizeLabel(length int) string {
	return fmt.Sprintf("%dk chars", int(math.Round(float64(length)/1000)))
}
