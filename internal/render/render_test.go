package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"github.com/fogleman/gg"

	"github.com/bananafashion/studio/internal/transform"
)

// testDataURI encodes a solid-color JPEG of the given size as a data
// URI, the form most studio references arrive in.
func testDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 120, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return transform.EncodeDataURI("image/jpeg", buf.Bytes())
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	return cfg.Width, cfg.Height
}

// TestGridPageFixedDimensions verifies the 2x2 grid always produces
// the fixed page size regardless of input image sizes.
func TestGridPageFixedDimensions(t *testing.T) {
	r := NewRenderer()
	images := []GridImage{
		{URL: testDataURI(t, 300, 500), Style: "Casual"},
		{URL: testDataURI(t, 900, 300)},
		{URL: testDataURI(t, 400, 400), Style: "Evening"},
		{URL: testDataURI(t, 50, 120)},
	}
	out, err := r.GridPage(context.Background(), images, "Spring Looks")
	if err != nil {
		t.Fatalf("GridPage failed: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 2400 || h != 2720 {
		t.Errorf("expected 2400x2720, got %dx%d", w, h)
	}
}

// TestGridPageRequiresFourImages verifies the cell count is enforced.
func TestGridPageRequiresFourImages(t *testing.T) {
	r := NewRenderer()
	_, err := r.GridPage(context.Background(), []GridImage{{URL: testDataURI(t, 10, 10)}}, "t")
	if err == nil {
		t.Fatal("expected error for wrong image count")
	}
}

// TestGridPageFailFast verifies one unloadable reference aborts the
// whole composite with the reference in the error.
func TestGridPageFailFast(t *testing.T) {
	r := NewRenderer()
	images := []GridImage{
		{URL: testDataURI(t, 10, 10)},
		{URL: "/nonexistent/look.jpg"},
		{URL: testDataURI(t, 10, 10)},
		{URL: testDataURI(t, 10, 10)},
	}
	_, err := r.GridPage(context.Background(), images, "t")
	if err == nil {
		t.Fatal("expected error for unloadable image")
	}
	if !strings.Contains(err.Error(), "/nonexistent/look.jpg") {
		t.Errorf("expected failing reference in error, got: %v", err)
	}
}

// TestDynamicStripOddCount verifies an odd count lays out as a single
// row: width N*cellWidth, height one cell.
func TestDynamicStripOddCount(t *testing.T) {
	r := NewRenderer()
	urls := make([]string, 5)
	for i := range urls {
		urls[i] = testDataURI(t, 800, 600)
	}
	out, err := r.DynamicStrip(context.Background(), urls)
	if err != nil {
		t.Fatalf("DynamicStrip failed: %v", err)
	}
	w, h := decodeDims(t, out)
	wantH := 1024 * 600 / 800
	if w != 5*1024 || h != wantH {
		t.Errorf("expected %dx%d, got %dx%d", 5*1024, wantH, w, h)
	}
}

// TestDynamicStripEvenCount verifies an even count lays out as two
// columns.
func TestDynamicStripEvenCount(t *testing.T) {
	r := NewRenderer()
	urls := make([]string, 6)
	for i := range urls {
		urls[i] = testDataURI(t, 512, 512)
	}
	out, err := r.DynamicStrip(context.Background(), urls)
	if err != nil {
		t.Fatalf("DynamicStrip failed: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 2*1024 || h != 3*1024 {
		t.Errorf("expected %dx%d, got %dx%d", 2*1024, 3*1024, w, h)
	}
}

// TestProcessAlbumHeightFollowsHero verifies the canvas height is
// derived from the hero's aspect ratio, not hardcoded.
func TestProcessAlbumHeightFollowsHero(t *testing.T) {
	r := NewRenderer()
	steps := []StepImage{
		{URL: testDataURI(t, 200, 200), Label: "Moodboard"},
		{URL: testDataURI(t, 200, 200), Label: "Fitting"},
	}

	tall, err := r.ProcessAlbum(context.Background(), testDataURI(t, 500, 1000), steps)
	if err != nil {
		t.Fatalf("ProcessAlbum failed: %v", err)
	}
	short, err := r.ProcessAlbum(context.Background(), testDataURI(t, 1000, 500), steps)
	if err != nil {
		t.Fatalf("ProcessAlbum failed: %v", err)
	}

	tw, th := decodeDims(t, tall)
	sw, sh := decodeDims(t, short)
	if tw != albumWidth || sw != albumWidth {
		t.Errorf("expected width %d, got %d and %d", albumWidth, tw, sw)
	}
	if th <= sh {
		t.Errorf("taller hero should yield taller canvas: %d vs %d", th, sh)
	}
	// hero heights differ by 1100*2 - 1100/2 = 1650
	if diff := th - sh; diff != 1650 {
		t.Errorf("expected height difference 1650, got %d", diff)
	}
}

// TestCompositionAlbumOptionalSections verifies the moodboard and
// items sections only contribute height when present.
func TestCompositionAlbumOptionalSections(t *testing.T) {
	r := NewRenderer()
	final := testDataURI(t, 1000, 1000)
	person := testDataURI(t, 300, 400)

	bare, err := r.CompositionAlbum(context.Background(), final, person, nil, "")
	if err != nil {
		t.Fatalf("CompositionAlbum failed: %v", err)
	}
	items := []string{testDataURI(t, 100, 100), testDataURI(t, 100, 100)}
	full, err := r.CompositionAlbum(context.Background(), final, person, items, testDataURI(t, 400, 200))
	if err != nil {
		t.Fatalf("CompositionAlbum failed: %v", err)
	}

	_, bareH := decodeDims(t, bare)
	_, fullH := decodeDims(t, full)
	if fullH <= bareH {
		t.Errorf("items section should add height: %d vs %d", fullH, bareH)
	}
}

// TestBoutiqueAlbumDimensions verifies the fixed width and the dynamic
// height contribution of the source image.
func TestBoutiqueAlbumDimensions(t *testing.T) {
	r := NewRenderer()
	urls := make([]string, 4)
	for i := range urls {
		urls[i] = testDataURI(t, 600, 600)
	}
	out, err := r.BoutiqueAlbum(context.Background(), urls, testDataURI(t, 1100, 550), "Boutique Dreams")
	if err != nil {
		t.Fatalf("BoutiqueAlbum failed: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != boutiqueWidth {
		t.Errorf("expected width %d, got %d", boutiqueWidth, w)
	}
	// padding 100 + title 200 + grid 2200 + caption 150 + source 1100 + padding 100
	if h != 3850 {
		t.Errorf("expected height 3850, got %d", h)
	}
}

// TestWrapTextRespectsMaxWidth verifies no wrapped line measures wider
// than the limit and word order survives.
func TestWrapTextRespectsMaxWidth(t *testing.T) {
	dc := gg.NewContext(10, 10)
	face, err := fontFace(false, 32)
	if err != nil {
		t.Fatalf("loading face: %v", err)
	}
	dc.SetFontFace(face)

	text := "an avant garde silhouette draped in layered organza with structured shoulders"
	lines := WrapText(dc, text, 400)
	if len(lines) < 2 {
		t.Fatalf("expected text to wrap, got %d line(s)", len(lines))
	}
	for _, line := range lines {
		if w, _ := dc.MeasureString(line); w > 400 {
			t.Errorf("line %q measures %.0f, over limit", line, w)
		}
	}
	if joined := strings.Join(lines, " "); joined != text {
		t.Errorf("word sequence changed: %q", joined)
	}
}

// TestWrapTextLongWord verifies a single oversized word still gets a
// line instead of being dropped.
func TestWrapTextLongWord(t *testing.T) {
	dc := gg.NewContext(10, 10)
	face, err := fontFace(false, 32)
	if err != nil {
		t.Fatalf("loading face: %v", err)
	}
	dc.SetFontFace(face)

	lines := WrapText(dc, "extraordinarily-long-hyphenated-descriptor", 50)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
}

// TestFilename verifies whitespace collapses to underscores and the
// timestamp rides along.
func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	got := Filename("  Spring  Collection ", now)
	if got != "Spring_Collection_20250314092653.jpg" {
		t.Errorf("unexpected filename: %s", got)
	}
	if got := Filename("", now); got != "composite_20250314092653.jpg" {
		t.Errorf("unexpected fallback filename: %s", got)
	}
}

// TestLoaderCachesResolvedImages verifies repeated loads of the same
// reference hit the memo cache.
func TestLoaderCachesResolvedImages(t *testing.T) {
	l := NewLoader()
	uri := testDataURI(t, 64, 64)
	first, err := l.Load(context.Background(), uri)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := l.Load(context.Background(), uri)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first != second {
		t.Error("expected cached image on second load")
	}
}
