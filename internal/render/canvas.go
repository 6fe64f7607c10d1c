package render

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/bananafashion/studio/internal/transform"
)

const jpegQuality = 90

// Studio palette shared by the composite layouts.
const (
	colorBackground = "#F8F5F2"
	colorTitle      = "#3D405B"
	colorFooter     = "#8f8f8f"
)

// Canvas wraps a gg context with the handful of drawing operations the
// layouts share. It is single-goroutine like the context it wraps.
type Canvas struct {
	dc *gg.Context
}

func newCanvas(w, h int, background string) *Canvas {
	dc := gg.NewContext(w, h)
	dc.SetHexColor(background)
	dc.Clear()
	return &Canvas{dc: dc}
}

func (c *Canvas) setFont(bold bool, size float64) error {
	face, err := fontFace(bold, size)
	if err != nil {
		return err
	}
	c.dc.SetFontFace(face)
	return nil
}

// drawCover paints img into dest cropped and scaled so it fills the
// rectangle completely.
func (c *Canvas) drawCover(img image.Image, dest image.Rectangle) {
	transform.DrawCover(c.dc.Image().(*image.RGBA), img, dest)
}

// drawFit paints img scaled to exactly dest without cropping; callers
// are expected to derive dest from the image's own aspect ratio.
func (c *Canvas) drawFit(img image.Image, dest image.Rectangle) {
	c.dc.DrawImage(scaleTo(img, dest.Dx(), dest.Dy()), dest.Min.X, dest.Min.Y)
}

// textCentered draws a single line centered horizontally at the given
// baseline anchor.
func (c *Canvas) textCentered(text, hexColor string, centerX, centerY float64) {
	c.dc.SetHexColor(hexColor)
	c.dc.DrawStringAnchored(text, centerX, centerY, 0.5, 0.5)
}

// badge draws a semi-transparent dark label box anchored at the given
// bottom-left corner, with white text inside.
func (c *Canvas) badge(text string, x, y float64) {
	w, h := c.dc.MeasureString(text)
	padX, padY := 24.0, 16.0
	c.dc.SetRGBA(0, 0, 0, 0.5)
	c.dc.DrawRectangle(x, y-h-2*padY, w+2*padX, h+2*padY)
	c.dc.Fill()
	c.dc.SetRGB(1, 1, 1)
	c.dc.DrawString(text, x+padX, y-padY)
}

// textBlockShadowed draws pre-wrapped lines with a dark offset shadow
// so white text stays readable over photographic content. Returns the
// block height consumed.
func (c *Canvas) textBlockShadowed(lines []string, x, y, size float64) float64 {
	step := size * lineHeight
	for i, line := range lines {
		baseline := y + float64(i)*step
		c.dc.SetRGBA(0, 0, 0, 0.7)
		c.dc.DrawString(line, x+3, baseline+3)
		c.dc.SetRGB(1, 1, 1)
		c.dc.DrawString(line, x, baseline)
	}
	return float64(len(lines)) * step
}

func scaleTo(img image.Image, w, h int) image.Image {
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func (c *Canvas) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.dc.Image(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
