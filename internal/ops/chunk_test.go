package ops

import (
	"strings"
	"testing"

	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
)

func TestChunk(t *testing.T) {
	text := strings.Repeat("a", 45)
	out, err := Chunk(ChunkInput{Text: text, Size: 20})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 3 || len(out.Fragments[2]) != 5 {
		t.Errorf("out = %+v", out)
	}
	if out.Infos[0].Label != "Fragment 1" {
		t.Errorf("label = %q", out.Infos[0].Label)
	}
	if fragment.Reassemble(out.Fragments) != text {
		t.Error("reassembly mismatch")
	}
}

func TestChunk_Empty(t *testing.T) {
	out, err := Chunk(ChunkInput{Text: "", Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 0 || out.Fragments == nil {
		t.Errorf("out = %+v", out)
	}
}

func TestChunk_BadSize(t *testing.T) {
	for _, size := range []int{0, -5} {
		if _, err := Chunk(ChunkInput{Text: "abc", Size: size}); !errors.Is(err, errors.ErrInvalidArgument) {
			t.Errorf("size %d: expected ErrInvalidArgument, got %v", size, err)
		}
	}
}
