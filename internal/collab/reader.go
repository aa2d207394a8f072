package collab

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"

	"github.com/hpungsan/frag/internal/errors"
)

// FSReader reads picked files from the local filesystem.
type FSReader struct {
	// MaxBytes caps the file size. 0 means no limit.
	MaxBytes int64
}

// ReadAsBase64 implements FileReader.
func (r FSReader) ReadAsBase64(ctx context.Context, ref SourceRef) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := openFileNoFollowRead(string(ref))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var src io.Reader = f
	if r.MaxBytes > 0 {
		if st, err := f.Stat(); err == nil && st.Size() > r.MaxBytes {
			return "", errors.NewInputTooLarge(r.MaxBytes, st.Size())
		}
		src = io.LimitReader(f, r.MaxBytes+1)
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(src)
	if err != nil {
		return "", err
	}
	if r.MaxBytes > 0 && n > r.MaxBytes {
		return "", errors.NewInputTooLarge(r.MaxBytes, n)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
