package render

import (
	"context"
	"fmt"
	"image"
	"regexp"
	"strings"
	"time"
)

// GridImage is one cell of the 2x2 grid page.
type GridImage struct {
	URL   string
	Style string // optional badge label
}

// StepImage is one labeled thumbnail of a process album.
type StepImage struct {
	URL   string
	Label string
}

const (
	gridSide      = 2400
	gridTitleBand = 200
	gridFooter    = 120
	gridPadding   = 80
	gridCell      = 1120

	stripCellWidth = 1024

	albumWidth        = 1200
	albumPadding      = 50
	albumContentWidth = albumWidth - 2*albumPadding

	boutiqueWidth   = 2400
	boutiquePadding = 100
	boutiqueContent = boutiqueWidth - 2*boutiquePadding
	boutiqueCell    = 1050

	footerText = "Created with Banana Fashion Studio"
)

// Renderer produces the studio's composite JPEGs.
type Renderer struct {
	loader *Loader
}

func NewRenderer() *Renderer {
	return &Renderer{loader: NewLoader()}
}

// GridPage renders four styled looks into a fixed 2400x2720 page: a
// centered title, a 2x2 grid of cover-fit cells with optional style
// badges, and a footer attribution.
func (r *Renderer) GridPage(ctx context.Context, images []GridImage, title string) ([]byte, error) {
	if len(images) != 4 {
		return nil, fmt.Errorf("grid page needs exactly 4 images, got %d", len(images))
	}
	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
	}
	loaded, err := r.loader.LoadAll(ctx, urls)
	if err != nil {
		return nil, err
	}

	c := newCanvas(gridSide, gridTitleBand+gridSide+gridFooter, colorBackground)

	if err := c.setFont(true, 80); err != nil {
		return nil, err
	}
	c.textCentered(title, colorTitle, gridSide/2, gridTitleBand/2)

	if err := c.setFont(false, 40); err != nil {
		return nil, err
	}
	for i, img := range loaded {
		col, row := i%2, i/2
		x := gridPadding + col*gridCell
		y := gridTitleBand + gridPadding + row*gridCell
		cell := image.Rect(x, y, x+gridCell, y+gridCell)
		c.drawCover(img, cell)
		if label := images[i].Style; label != "" {
			c.badge(label, float64(x+20), float64(y+gridCell-20))
		}
	}

	if err := c.setFont(false, 36); err != nil {
		return nil, err
	}
	c.textCentered(footerText, colorFooter, gridSide/2, float64(gridTitleBand+gridSide)+gridFooter/2)

	return c.encode()
}

// DynamicStrip lays out a variable-length set of same-style images:
// two columns for an even count, a single row for an odd count. Cell
// height follows the first image's aspect ratio at a fixed cell width.
func (r *Renderer) DynamicStrip(ctx context.Context, urls []string) ([]byte, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("dynamic strip needs at least one image")
	}
	loaded, err := r.loader.LoadAll(ctx, urls)
	if err != nil {
		return nil, err
	}

	first := loaded[0].Bounds()
	cellHeight := stripCellWidth * first.Dy() / first.Dx()

	cols, rows := len(urls), 1
	if len(urls)%2 == 0 {
		cols, rows = 2, len(urls)/2
	}

	c := newCanvas(cols*stripCellWidth, rows*cellHeight, colorBackground)
	for i, img := range loaded {
		col, row := i%cols, i/cols
		x, y := col*stripCellWidth, row*cellHeight
		c.drawCover(img, image.Rect(x, y, x+stripCellWidth, y+cellHeight))
	}
	return c.encode()
}

// ProcessAlbum renders the final look as a hero image with a row of
// labeled step thumbnails beneath it. Canvas height is derived from
// the hero's aspect ratio and the section allowances.
func (r *Renderer) ProcessAlbum(ctx context.Context, final string, steps []StepImage) ([]byte, error) {
	urls := make([]string, 0, len(steps)+1)
	urls = append(urls, final)
	for _, s := range steps {
		urls = append(urls, s.URL)
	}
	loaded, err := r.loader.LoadAll(ctx, urls)
	if err != nil {
		return nil, err
	}
	hero, thumbs := loaded[0], loaded[1:]

	const (
		titleAllowance = 120
		sectionGap     = 50
		labelAllowance = 50
		thumbGap       = 20
	)
	heroHeight := albumContentWidth * hero.Bounds().Dy() / hero.Bounds().Dx()

	thumbWidth := 0
	if len(thumbs) > 0 {
		thumbWidth = (albumContentWidth - thumbGap*(len(thumbs)-1)) / len(thumbs)
	}

	height := albumPadding + titleAllowance + heroHeight + albumPadding
	if len(thumbs) > 0 {
		height += sectionGap + thumbWidth + labelAllowance
	}

	c := newCanvas(albumWidth, height, colorBackground)

	if err := c.setFont(true, 60); err != nil {
		return nil, err
	}
	c.textCentered("The Process", colorTitle, albumWidth/2, albumPadding+titleAllowance/2)

	y := albumPadding + titleAllowance
	c.drawFit(hero, image.Rect(albumPadding, y, albumPadding+albumContentWidth, y+heroHeight))
	y += heroHeight + sectionGap

	if err := c.setFont(false, 28); err != nil {
		return nil, err
	}
	for i, thumb := range thumbs {
		x := albumPadding + i*(thumbWidth+thumbGap)
		c.drawCover(thumb, image.Rect(x, y, x+thumbWidth, y+thumbWidth))
		c.textCentered(steps[i].Label, colorTitle, float64(x)+float64(thumbWidth)/2, float64(y+thumbWidth)+labelAllowance/2)
	}

	return c.encode()
}

// CompositionAlbum renders a composed look together with its source
// materials: the person photo, an optional moodboard, and the fashion
// items that went into the composition.
func (r *Renderer) CompositionAlbum(ctx context.Context, final, person string, items []string, moodboard string) ([]byte, error) {
	urls := []string{final, person}
	if moodboard != "" {
		urls = append(urls, moodboard)
	}
	urls = append(urls, items...)
	loaded, err := r.loader.LoadAll(ctx, urls)
	if err != nil {
		return nil, err
	}

	hero, personImg := loaded[0], loaded[1]
	rest := loaded[2:]
	var moodImg image.Image
	if moodboard != "" {
		moodImg, rest = rest[0], rest[1:]
	}
	itemImgs := rest

	const (
		titleAllowance  = 120
		headerAllowance = 80
		sectionGap      = 40
		sourceCell      = 200
		itemCell        = 150
		itemGap         = 15
	)
	heroHeight := albumContentWidth * hero.Bounds().Dy() / hero.Bounds().Dx()

	moodWidth := 0
	if moodImg != nil {
		moodWidth = sourceCell * moodImg.Bounds().Dx() / moodImg.Bounds().Dy()
		if limit := albumContentWidth - sourceCell - sectionGap; moodWidth > limit {
			moodWidth = limit
		}
	}

	itemsPerRow := (albumContentWidth + itemGap) / (itemCell + itemGap)
	itemRows := 0
	if len(itemImgs) > 0 {
		itemRows = (len(itemImgs) + itemsPerRow - 1) / itemsPerRow
	}

	height := albumPadding + titleAllowance + heroHeight + sectionGap +
		headerAllowance + sourceCell + albumPadding
	if itemRows > 0 {
		height += sectionGap + headerAllowance + itemRows*(itemCell+itemGap) - itemGap
	}

	c := newCanvas(albumWidth, height, colorBackground)

	if err := c.setFont(true, 60); err != nil {
		return nil, err
	}
	c.textCentered("Composition", colorTitle, albumWidth/2, albumPadding+titleAllowance/2)

	y := albumPadding + titleAllowance
	c.drawFit(hero, image.Rect(albumPadding, y, albumPadding+albumContentWidth, y+heroHeight))
	y += heroHeight + sectionGap

	if err := c.setFont(true, 40); err != nil {
		return nil, err
	}
	c.textCentered("Source Materials", colorTitle, albumWidth/2, float64(y)+headerAllowance/2)
	y += headerAllowance

	c.drawCover(personImg, image.Rect(albumPadding, y, albumPadding+sourceCell, y+sourceCell))
	if moodImg != nil {
		x := albumPadding + sourceCell + sectionGap
		c.drawFit(moodImg, image.Rect(x, y, x+moodWidth, y+sourceCell))
	}
	y += sourceCell

	if len(itemImgs) > 0 {
		y += sectionGap
		c.textCentered("Fashion Items", colorTitle, albumWidth/2, float64(y)+headerAllowance/2)
		y += headerAllowance
		for i, item := range itemImgs {
			col, row := i%itemsPerRow, i/itemsPerRow
			x := albumPadding + col*(itemCell+itemGap)
			iy := y + row*(itemCell+itemGap)
			c.drawCover(item, image.Rect(x, iy, x+itemCell, iy+itemCell))
		}
	}

	return c.encode()
}

// BoutiqueAlbum renders four boutique-inspired looks as a 2x2 grid
// with the inspiration source image shown full width below.
func (r *Renderer) BoutiqueAlbum(ctx context.Context, urls []string, sourceURL, title string) ([]byte, error) {
	if len(urls) != 4 {
		return nil, fmt.Errorf("boutique album needs exactly 4 images, got %d", len(urls))
	}
	loaded, err := r.loader.LoadAll(ctx, append(append([]string{}, urls...), sourceURL))
	if err != nil {
		return nil, err
	}
	looks, source := loaded[:4], loaded[4]

	const (
		titleAllowance   = 200
		captionAllowance = 150
		cellGap          = boutiqueContent - 2*boutiqueCell
	)
	sourceHeight := boutiqueContent * source.Bounds().Dy() / source.Bounds().Dx()
	gridHeight := 2*boutiqueCell + cellGap
	height := boutiquePadding + titleAllowance + gridHeight +
		captionAllowance + sourceHeight + boutiquePadding

	c := newCanvas(boutiqueWidth, height, colorBackground)

	if err := c.setFont(true, 80); err != nil {
		return nil, err
	}
	c.textCentered(title, colorTitle, boutiqueWidth/2, boutiquePadding+titleAllowance/2)

	gridTop := boutiquePadding + titleAllowance
	for i, look := range looks {
		col, row := i%2, i/2
		x := boutiquePadding + col*(boutiqueCell+cellGap)
		y := gridTop + row*(boutiqueCell+cellGap)
		c.drawCover(look, image.Rect(x, y, x+boutiqueCell, y+boutiqueCell))
	}

	y := gridTop + gridHeight
	if err := c.setFont(true, 50); err != nil {
		return nil, err
	}
	c.textCentered("Source of Inspiration", colorTitle, boutiqueWidth/2, float64(y)+captionAllowance/2)
	y += captionAllowance
	c.drawFit(source, image.Rect(boutiquePadding, y, boutiquePadding+boutiqueContent, y+sourceHeight))

	return c.encode()
}

var filenameUnsafe = regexp.MustCompile(`\s+`)

// Filename builds a download name from a title: whitespace collapsed
// to underscores, plus a second-resolution timestamp.
func Filename(title string, now time.Time) string {
	base := filenameUnsafe.ReplaceAllString(strings.TrimSpace(title), "_")
	if base == "" {
		base = "composite"
	}
	return base + "_" + now.Format("20060102150405") + ".jpg"
}
