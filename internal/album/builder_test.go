package album

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/bananafashion/studio/internal/creative"
	"github.com/bananafashion/studio/internal/transform"
)

// echoEditor returns the base image unchanged, standing in for the
// generative cover step.
type echoEditor struct {
	err   error
	calls int
}

func (e *echoEditor) EditImage(_ context.Context, base, _ string, _ []string) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return base, nil
}

type stubHeadlines struct {
	err error
}

func (s *stubHeadlines) MagazineHeadlines(context.Context, string) (creative.Headlines, error) {
	if s.err != nil {
		return creative.Headlines{}, s.err
	}
	return creative.Headlines{
		Title:     "Atelier",
		Headlines: []string{"The New Drape", "Silhouettes of Fall"},
	}, nil
}

func testImageURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 60, B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return transform.EncodeDataURI("image/jpeg", buf.Bytes())
}

func pageCount(t *testing.T, doc []byte) int {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("opening produced PDF: %v", err)
	}
	return r.NumPage()
}

// TestBuildPageCountAndOrder verifies the document has cover + content
// + back cover pages and progress runs to completion.
func TestBuildPageCountAndOrder(t *testing.T) {
	b := NewBuilder(&echoEditor{}, &stubHeadlines{})

	var stages []string
	var lastPercent int
	doc, err := b.Build(context.Background(), Request{
		Theme:         "noir",
		Mode:          ModeVariation,
		CoverImageURL: testImageURI(t, 240, 340),
		Pages: []Page{
			{ImageURL: testImageURI(t, 200, 300), Title: "Night Walk", Description: "Wool and shadow.", Category: "blue"},
			{ImageURL: testImageURI(t, 200, 300), Title: "First Light", Description: "Soft tailoring.", Category: "red"},
		},
		BackCoverURLs: []string{testImageURI(t, 100, 100), testImageURI(t, 100, 100)},
	}, func(p Progress) {
		stages = append(stages, p.Stage)
		if p.Percent < lastPercent {
			t.Errorf("progress went backwards: %d after %d", p.Percent, lastPercent)
		}
		lastPercent = p.Percent
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := pageCount(t, doc); got != 4 {
		t.Errorf("expected 4 pages, got %d", got)
	}
	if lastPercent != 100 {
		t.Errorf("expected final percent 100, got %d", lastPercent)
	}
	want := []string{
		"generating headlines",
		"designing cover",
		"rendering back cover",
		"rendering page 1/2",
		"rendering page 2/2",
		"assembling document",
		"done",
	}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i], want[i])
		}
	}
}

// TestBuildHeadlineFailureIsFatal verifies there is no fallback when
// the collaborator cannot produce cover copy.
func TestBuildHeadlineFailureIsFatal(t *testing.T) {
	cause := errors.New("model unavailable")
	editor := &echoEditor{}
	b := NewBuilder(editor, &stubHeadlines{err: cause})

	_, err := b.Build(context.Background(), Request{
		Theme:         "noir",
		CoverImageURL: testImageURI(t, 100, 100),
	}, nil)
	if !errors.Is(err, cause) {
		t.Fatalf("expected headline failure to propagate, got %v", err)
	}
	if editor.calls != 0 {
		t.Errorf("cover generation should not run after headline failure")
	}
}

// TestBuildEditorFailureIsFatal verifies a failed cover generation
// rejects the whole build.
func TestBuildEditorFailureIsFatal(t *testing.T) {
	cause := errors.New("blocked")
	b := NewBuilder(&echoEditor{err: cause}, &stubHeadlines{})

	_, err := b.Build(context.Background(), Request{
		Theme:         "noir",
		CoverImageURL: testImageURI(t, 100, 100),
	}, nil)
	if !errors.Is(err, cause) {
		t.Fatalf("expected editor failure to propagate, got %v", err)
	}
}

// TestBuildEmptyBackCover verifies zero back-cover images produce a
// placeholder page, not an error.
func TestBuildEmptyBackCover(t *testing.T) {
	b := NewBuilder(&echoEditor{}, &stubHeadlines{})

	doc, err := b.Build(context.Background(), Request{
		Theme:         "minimal",
		CoverImageURL: testImageURI(t, 120, 170),
	}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := pageCount(t, doc); got != 2 {
		t.Errorf("expected cover + placeholder back cover, got %d pages", got)
	}
}

// TestBuildExtraBackCoverImagesIgnored verifies only the first four
// back-cover images are used; extras do not fail the build.
func TestBuildExtraBackCoverImagesIgnored(t *testing.T) {
	b := NewBuilder(&echoEditor{}, &stubHeadlines{})

	urls := make([]string, 5)
	for i := range urls[:4] {
		urls[i] = testImageURI(t, 50, 50)
	}
	urls[4] = "/missing/extra.jpg" // never loaded
	doc, err := b.Build(context.Background(), Request{
		Theme:         "t",
		CoverImageURL: testImageURI(t, 50, 50),
		BackCoverURLs: urls,
	}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := pageCount(t, doc); got != 2 {
		t.Errorf("expected 2 pages, got %d", got)
	}
}

// TestBuildStandardModeSharedCaption verifies standard mode fills
// empty page captions from the shared scene and style strings.
func TestBuildStandardModeSharedCaption(t *testing.T) {
	b := NewBuilder(&echoEditor{}, &stubHeadlines{})

	doc, err := b.Build(context.Background(), Request{
		Theme:         "resort",
		Mode:          ModeStandard,
		Scene:         "Amalfi coastline",
		Style:         "Linen separates in citrus tones",
		CoverImageURL: testImageURI(t, 120, 170),
		Pages: []Page{
			{ImageURL: testImageURI(t, 120, 170)},
		},
	}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := pageCount(t, doc); got != 3 {
		t.Errorf("expected 3 pages, got %d", got)
	}
}

// TestBuildFailedPageLoadAborts verifies a broken content page
// reference rejects the build with the page number in the error.
func TestBuildFailedPageLoadAborts(t *testing.T) {
	b := NewBuilder(&echoEditor{}, &stubHeadlines{})

	_, err := b.Build(context.Background(), Request{
		Theme:         "t",
		CoverImageURL: testImageURI(t, 50, 50),
		Pages: []Page{
			{ImageURL: testImageURI(t, 50, 50)},
			{ImageURL: "/missing/image.jpg"},
		},
	}, nil)
	if err == nil {
		t.Fatal("expected error for unloadable page image")
	}
	if want := "page 2"; !bytes.Contains([]byte(err.Error()), []byte(want)) {
		t.Errorf("expected %q in error, got: %v", want, err)
	}
}
