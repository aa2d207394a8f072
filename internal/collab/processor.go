package collab

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/hpungsan/frag/internal/errors"
)

// JPEGProcessor decodes any registered image format and re-encodes it as JPEG,
// scaling with Catmull-Rom when the target size differs from the source.
// Transparent areas are flattened onto white.
type JPEGProcessor struct {
	// MaxBytes caps the source file size. 0 means no limit.
	MaxBytes int64
}

// Render implements ImageProcessor.
func (p *JPEGProcessor) Render(ctx context.Context, ref SourceRef, opts RenderOptions) (*Rendered, error) {
	if opts.Quality <= 0 || opts.Quality > 1 {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("quality must be in (0, 1], got %v", opts.Quality))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := p.decode(string(ref))
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = bounds.Dx(), bounds.Dy()
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(opts.Quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &Rendered{
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType: "image/jpeg",
		Width:    w,
		Height:   h,
	}, nil
}

func (p *JPEGProcessor) decode(path string) (image.Image, error) {
	f, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if p.MaxBytes > 0 {
		if st, err := f.Stat(); err == nil && st.Size() > p.MaxBytes {
			return nil, errors.NewInputTooLarge(p.MaxBytes, st.Size())
		}
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.NewInvalidArgument(fmt.Sprintf("cannot decode image %s: %v", path, err))
	}
	return img, nil
}

// jpegQuality maps (0, 1] onto the encoder's 1..100 scale.
func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	return min(max(v, 1), 100)
}

// ImageSize reads just the header of an encoded image.
func ImageSize(data []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// CanDecodeImage reports whether a registered decoder recognizes the header
// of the file at ref. SVG, HEIC and ICON sniff as image/* but fail here.
func CanDecodeImage(ref SourceRef) bool {
	f, err := openFileNoFollowRead(string(ref))
	if err != nil {
		return false
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err == nil
}
