// Package imaging holds the scaling policy and size accounting shown next to
// an encoded image. Pixel work is done by collab.ImageProcessor.
package imaging

import (
	"fmt"
	"math"
)

// Descriptor describes one encoded snapshot. Size is the display estimate
// from datauri.EstimateDecodedSize, not an exact byte count.
type Descriptor struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Size   int `json:"size"`
}

// Dimensions is a width and height in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TargetDimensions applies the long-edge policy: when max(w, h) exceeds
// maxSize both sides are scaled by maxSize/max(w, h) and rounded to the
// nearest integer independently, never below 1. resize is false when no resize step is
// needed, in which case the input dimensions are returned unchanged.
func TargetDimensions(width, height, maxSize int) (target Dimensions, resize bool) {
	maxSide := max(width, height)
	if maxSize <= 0 || maxSide <= maxSize {
		return Dimensions{Width: width, Height: height}, false
	}

	scale := float64(maxSize) / float64(maxSide)
	return Dimensions{
		Width:  max(1, int(math.Round(float64(width)*scale))),
		Height: max(1, int(math.Round(float64(height)*scale))),
	}, true
}

// ReducedPercent returns round((1 - size/original) * 100), the share saved by
// compression. A zero original yields 0.
func ReducedPercent(size, original int) int {
	if original <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(size)/float64(original)) * 100))
}

var byteUnits = []string{"B", "KB", "MB"}

// FormatBytes renders a byte count with base-1024 units and one decimal,
// e.g. 1536 → "1.5 KB". Values past the MB range stay in MB.
func FormatBytes(n int) string {
	if n <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}
	return fmt.Sprintf("%.1f %s", float64(n)/math.Pow(1024, float64(i)), byteUnits[i])
}
