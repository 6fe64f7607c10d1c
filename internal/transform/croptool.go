package transform

import (
	"fmt"
	"image"
)

// CropTool supports the user-in-the-loop crop step: the crop rectangle
// starts as the maximal centered region for the target aspect ratio,
// keeps its size fixed, and can be translated within image bounds
// before the final raster extraction.
type CropTool struct {
	src  image.Image
	rect image.Rectangle
}

// NewCropTool computes the default (maximal, centered) crop rectangle
// for the target aspect ratio.
func NewCropTool(src image.Image, targetAspect float64) (*CropTool, error) {
	if targetAspect <= 0 {
		return nil, fmt.Errorf("invalid target aspect ratio %v", targetAspect)
	}
	b := src.Bounds()
	outH := int(float64(CropOutputWidth) / targetAspect)
	region := CoverRegion(b.Dx(), b.Dy(), CropOutputWidth, outH)
	if region.Empty() {
		return nil, fmt.Errorf("image has zero area")
	}
	return &CropTool{src: src, rect: region}, nil
}

// Rect returns the current crop rectangle in source pixel space.
func (t *CropTool) Rect() image.Rectangle {
	return t.rect
}

// Move translates the crop rectangle by (dx, dy), clamped so the
// rectangle never exits the image bounds. The rectangle's size is
// fixed once computed; only its position changes.
func (t *CropTool) Move(dx, dy int) {
	b := t.src.Bounds()
	w, h := t.rect.Dx(), t.rect.Dy()

	x := clamp(t.rect.Min.X+dx, 0, b.Dx()-w)
	y := clamp(t.rect.Min.Y+dy, 0, b.Dy()-h)
	t.rect = image.Rect(x, y, x+w, y+h)
}

// Apply rasterizes the current crop rectangle at CropOutputWidth and
// returns JPEG bytes.
func (t *CropTool) Apply() ([]byte, error) {
	sub := t.src.Bounds().Min
	region := t.rect.Add(sub)

	cropped := cropResize(t.src, region, CropOutputWidth)
	return EncodeJPEG(cropped, jpegQuality)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
