// Package transform holds the geometric image primitives shared by the
// composite renderer and the album builder: cover-fit cropping, centered
// aspect-ratio crops, and analysis downscaling.
package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"
)

// CropOutputWidth is the normalized width of rasterized crop results.
// Different input resolutions all produce output at this width so
// downstream consumers see uniform material.
const CropOutputWidth = 1024

// AnalysisMaxDimension is the default bound for DownscaleForAnalysis.
const AnalysisMaxDimension = 512

const (
	jpegQuality     = 90
	analysisQuality = 85
)

// CoverRegion computes the maximal centered sub-rectangle of a
// srcW×srcH image whose aspect ratio equals destW/destH. If the source
// is relatively wider than the destination the sides are cropped,
// otherwise the top and bottom. A zero-area destination or source
// yields the empty rectangle.
func CoverRegion(srcW, srcH, destW, destH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || destW <= 0 || destH <= 0 {
		return image.Rectangle{}
	}

	imgRatio := float64(srcW) / float64(srcH)
	cellRatio := float64(destW) / float64(destH)

	if imgRatio > cellRatio {
		sh := srcH
		sw := int(math.Round(float64(sh) * cellRatio))
		sx := (srcW - sw) / 2
		return image.Rect(sx, 0, sx+sw, sh)
	}
	sw := srcW
	sh := int(math.Round(float64(sw) / cellRatio))
	sy := (srcH - sh) / 2
	return image.Rect(0, sy, sw, sy+sh)
}

// CoverFit returns src cropped from its center and scaled so that it
// exactly fills a w×h rectangle without distortion (the "object-fit:
// cover" strategy; excess source content is discarded, never
// letterboxed). Returns nil for a zero-area destination.
func CoverFit(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	region := CoverRegion(b.Dx(), b.Dy(), w, h)
	if region.Empty() {
		return nil
	}
	cropped := imaging.Crop(src, region.Add(b.Min))
	return imaging.Resize(cropped, w, h, imaging.Lanczos)
}

// DrawCover paints src into the dest rectangle of dst using the
// cover-fit strategy. A zero-area dest is a no-op.
func DrawCover(dst draw.Image, src image.Image, dest image.Rectangle) {
	fitted := CoverFit(src, dest.Dx(), dest.Dy())
	if fitted == nil {
		return
	}
	draw.Draw(dst, dest, fitted, image.Point{}, draw.Over)
}

// CenterCrop extracts the maximal centered sub-rectangle of the encoded
// image matching targetAspect (width/height), rasterizes it at
// CropOutputWidth, and returns JPEG bytes. Deterministic for a given
// input.
func CenterCrop(data []byte, targetAspect float64) ([]byte, error) {
	if targetAspect <= 0 {
		return nil, fmt.Errorf("invalid target aspect ratio %v", targetAspect)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	outH := int(math.Round(CropOutputWidth / targetAspect))
	fitted := CoverFit(img, CropOutputWidth, outH)
	if fitted == nil {
		return nil, fmt.Errorf("image has zero area")
	}
	return EncodeJPEG(fitted, jpegQuality)
}

// DownscaleForAnalysis shrinks the encoded image so its longer side is
// at most maxDim, preserving the aspect ratio exactly (no cropping).
// If both dimensions already fit, the input bytes are returned
// unchanged to avoid a lossy re-encode. maxDim <= 0 uses
// AnalysisMaxDimension.
func DownscaleForAnalysis(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = AnalysisMaxDimension
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image dimensions: %w", err)
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	return EncodeJPEG(resized, analysisQuality)
}

func cropResize(src image.Image, region image.Rectangle, outW int) image.Image {
	cropped := imaging.Crop(src, region)
	outH := int(math.Round(float64(outW) * float64(region.Dy()) / float64(region.Dx())))
	return imaging.Resize(cropped, outW, outH, imaging.Lanczos)
}

// EncodeJPEG encodes img as JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
