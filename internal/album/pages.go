package album

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/fogleman/gg"
	"github.com/jung-kurt/gofpdf"

	"github.com/bananafashion/studio/internal/creative"
	"github.com/bananafashion/studio/internal/render"
	"github.com/bananafashion/studio/internal/transform"
)

const (
	pageMargin     = 120
	captionMaxFrac = 0.35 // text block wraps to 35% of page width
	attribution    = "Banana Fashion Design Studio"
)

// colorSchemes maps a page category to its title color. Unknown
// categories fall back to white.
var colorSchemes = map[string]string{
	"red":    "#E63946",
	"blue":   "#A8DADC",
	"green":  "#9EF01A",
	"yellow": "#FFD60A",
	"purple": "#C77DFF",
	"pink":   "#FF8FAB",
}

func titleColor(category string) string {
	if c, ok := colorSchemes[category]; ok {
		return c
	}
	return "#FFFFFF"
}

func encodePage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encoding page: %w", err)
	}
	return buf.Bytes(), nil
}

// coverPage pre-renders the chosen image onto a full A4 raster, then
// hands it to the image editor to integrate the magazine copy.
func (b *Builder) coverPage(ctx context.Context, imageURL string, heads creative.Headlines) ([]byte, error) {
	img, err := b.loader.Load(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(PageWidth, PageHeight)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	transform.DrawCover(dc.Image().(*image.RGBA), img, image.Rect(0, 0, PageWidth, PageHeight))

	raster, err := encodePage(dc)
	if err != nil {
		return nil, err
	}

	edited, err := b.editor.EditImage(ctx, transform.EncodeDataURI("image/jpeg", raster), coverPrompt(heads), nil)
	if err != nil {
		return nil, err
	}
	editedImg, err := b.loader.Load(ctx, edited)
	if err != nil {
		return nil, err
	}

	// Renormalize to A4: the model does not guarantee dimensions.
	final := gg.NewContext(PageWidth, PageHeight)
	transform.DrawCover(final.Image().(*image.RGBA), editedImg, image.Rect(0, 0, PageWidth, PageHeight))
	return encodePage(final)
}

// contentPage renders a full-bleed image with an optional shadowed
// caption block in the lower-left corner.
func (b *Builder) contentPage(ctx context.Context, page Page) ([]byte, error) {
	img, err := b.loader.Load(ctx, page.ImageURL)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(PageWidth, PageHeight)
	transform.DrawCover(dc.Image().(*image.RGBA), img, image.Rect(0, 0, PageWidth, PageHeight))

	if page.Title != "" || page.Description != "" {
		if err := drawCaptionBlock(dc, page); err != nil {
			return nil, err
		}
	}
	return encodePage(dc)
}

// drawCaptionBlock draws the title and description bottom-up from the
// page's lower-left corner so the block never runs off the page.
func drawCaptionBlock(dc *gg.Context, page Page) error {
	titleSize := 0.02 * PageWidth
	descSize := 0.016 * PageWidth
	maxWidth := captionMaxFrac * PageWidth

	descFace, err := render.Face(false, descSize)
	if err != nil {
		return err
	}
	titleFace, err := render.Face(true, titleSize)
	if err != nil {
		return err
	}

	dc.SetFontFace(descFace)
	descLines := render.WrapText(dc, page.Description, maxWidth)
	dc.SetFontFace(titleFace)
	titleLines := render.WrapText(dc, page.Title, maxWidth)

	y := float64(PageHeight - pageMargin)
	x := float64(pageMargin)

	// Description first, bottom-up.
	dc.SetFontFace(descFace)
	for i := len(descLines) - 1; i >= 0; i-- {
		drawShadowed(dc, descLines[i], x, y, "#FFFFFF")
		y -= descSize * 1.4
	}
	if len(descLines) > 0 {
		y -= titleSize * 0.6
	}
	dc.SetFontFace(titleFace)
	for i := len(titleLines) - 1; i >= 0; i-- {
		drawShadowed(dc, titleLines[i], x, y, titleColor(page.Category))
		y -= titleSize * 1.4
	}
	return nil
}

func drawShadowed(dc *gg.Context, text string, x, y float64, hexColor string) {
	dc.SetRGBA(0, 0, 0, 0.7)
	dc.DrawString(text, x+4, y+4)
	dc.SetHexColor(hexColor)
	dc.DrawString(text, x, y)
}

// backCoverPage renders up to four images as a full-bleed 2x2 grid
// with the studio attribution. Extra images beyond four are ignored;
// with no images at all it produces a placeholder page instead of
// failing.
func (b *Builder) backCoverPage(ctx context.Context, urls []string) ([]byte, error) {
	if len(urls) > 4 {
		urls = urls[:4]
	}
	dc := gg.NewContext(PageWidth, PageHeight)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	if len(urls) == 0 {
		face, err := render.Face(false, 60)
		if err != nil {
			return nil, err
		}
		dc.SetFontFace(face)
		dc.SetHexColor("#8f8f8f")
		dc.DrawStringAnchored("This collection is still being curated.", PageWidth/2, PageHeight/2, 0.5, 0.5)
	} else {
		images, err := b.loader.LoadAll(ctx, urls)
		if err != nil {
			return nil, err
		}
		cellW, cellH := PageWidth/2, PageHeight/2
		for i, img := range images {
			col, row := i%2, i/2
			cell := image.Rect(col*cellW, row*cellH, (col+1)*cellW, (row+1)*cellH)
			transform.DrawCover(dc.Image().(*image.RGBA), img, cell)
		}
	}

	face, err := render.Face(true, 70)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)
	w, _ := dc.MeasureString(attribution)
	drawShadowed(dc, attribution, (PageWidth-w)/2, PageHeight-pageMargin, "#FFFFFF")

	return encodePage(dc)
}

// assemblePDF lays one raster per portrait A4 page, in order.
func assemblePDF(pages [][]byte) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	for i, page := range pages {
		name := fmt.Sprintf("page-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(page))
		pdf.AddPage()
		pdf.ImageOptions(name, 0, 0, 210, 297, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
