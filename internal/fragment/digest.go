package fragment

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/hpungsan/frag/internal/errors"
)

// Digest returns the hex BLAKE3-256 digest of s.
//
// Digests are an addition on top of plain reassembly: the sender reports the
// digest of the full data URI and the receiver may pass it back to Verify.
func Digest(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Verify checks that s hashes to want. An empty want skips the check.
// Comparison is case-insensitive on the hex text.
func Verify(s, want string) error {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return nil
	}
	if _, err := hex.DecodeString(want); err != nil || len(want) != 64 {
		return errors.NewInvalidArgument("digest must be 64 hex characters")
	}
	got := Digest(s)
	if got != want {
		return errors.NewIntegrityMismatch(want, got)
	}
	return nil
}

// Info describes one fragment for listings.
type Info struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Length int    `json:"length"`
	Digest string `json:"digest"`
}

// Describe builds listing entries for fragments. Each entry carries its own
// digest so a single mistyped fragment can be located.
func Describe(fragments []string) []Info {
	infos := make([]Info, len(fragments))
	for i, f := range fragments {
		infos[i] = Info{
			Index:  i,
			Label:  Label(i),
			Length: len(f),
			Digest: Digest(f),
		}
	}
	return infos
}
