// Package album builds multi-page magazine-style PDF albums. Pages
// are rendered as A4 rasters and assembled into a single document;
// the cover goes through the generative collaborator, everything else
// is drawn locally.
package album

import (
	"context"
	"fmt"
	"strings"

	"github.com/bananafashion/studio/internal/creative"
	"github.com/bananafashion/studio/internal/render"
)

// A4 raster dimensions at 300 DPI.
const (
	PageWidth  = 2480
	PageHeight = 3508
)

// Build modes. Standard albums share one scene/style caption across
// pages; variation and custom albums caption each page individually.
const (
	ModeStandard  = "standard"
	ModeVariation = "variation"
	ModeCustom    = "custom"
)

// ImageEditor is the generative surface the cover page needs.
type ImageEditor interface {
	EditImage(ctx context.Context, base, prompt string, referenceImages []string) (string, error)
}

// HeadlineSource produces the album's editorial copy.
type HeadlineSource interface {
	MagazineHeadlines(ctx context.Context, theme string) (creative.Headlines, error)
}

// Page is one content page of the album.
type Page struct {
	ImageURL    string `json:"imageUrl"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"` // selects the title color scheme
}

// Request describes one album build.
type Request struct {
	Theme         string   `json:"theme"`
	Mode          string   `json:"mode"`
	CoverImageURL string   `json:"coverImageUrl"`
	Pages         []Page   `json:"pages,omitempty"`
	BackCoverURLs []string `json:"backCoverUrls,omitempty"` // first 4 are used; empty list renders a placeholder

	// Shared captions for standard mode.
	Scene string `json:"scene,omitempty"`
	Style string `json:"style,omitempty"`
}

// Progress reports a phase boundary during a build.
type Progress struct {
	Stage   string
	Percent int
}

// ProgressFunc receives progress updates. It is called from the build
// goroutine; implementations must not block for long.
type ProgressFunc func(Progress)

// Builder renders albums. Safe for concurrent use; each build carries
// its own state.
type Builder struct {
	editor    ImageEditor
	headlines HeadlineSource
	loader    *render.Loader
}

func NewBuilder(editor ImageEditor, headlines HeadlineSource) *Builder {
	return &Builder{
		editor:    editor,
		headlines: headlines,
		loader:    render.NewLoader(),
	}
}

// Build produces the finished PDF. Phases run strictly in order and
// any failure rejects the whole build; no partial document is
// produced.
func (b *Builder) Build(ctx context.Context, req Request, progress ProgressFunc) ([]byte, error) {
	if req.CoverImageURL == "" {
		return nil, fmt.Errorf("album needs a cover image")
	}
	report := func(stage string, percent int) {
		if progress != nil {
			progress(Progress{Stage: stage, Percent: percent})
		}
	}

	report("generating headlines", 0)
	heads, err := b.headlines.MagazineHeadlines(ctx, req.Theme)
	if err != nil {
		return nil, fmt.Errorf("album headlines: %w", err)
	}

	report("designing cover", 10)
	cover, err := b.coverPage(ctx, req.CoverImageURL, heads)
	if err != nil {
		return nil, fmt.Errorf("album cover: %w", err)
	}

	report("rendering back cover", 30)
	back, err := b.backCoverPage(ctx, req.BackCoverURLs)
	if err != nil {
		return nil, fmt.Errorf("album back cover: %w", err)
	}

	contentPages := make([][]byte, len(req.Pages))
	for i, page := range req.Pages {
		report(fmt.Sprintf("rendering page %d/%d", i+1, len(req.Pages)), 40+45*i/len(req.Pages))
		if req.Mode == ModeStandard && page.Title == "" && page.Description == "" {
			page.Title = req.Scene
			page.Description = req.Style
		}
		rendered, err := b.contentPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("album page %d: %w", i+1, err)
		}
		contentPages[i] = rendered
	}

	report("assembling document", 90)
	pages := make([][]byte, 0, len(contentPages)+2)
	pages = append(pages, cover)
	pages = append(pages, contentPages...)
	pages = append(pages, back)
	doc, err := assemblePDF(pages)
	if err != nil {
		return nil, fmt.Errorf("assembling album: %w", err)
	}

	report("done", 100)
	return doc, nil
}

// coverPrompt asks the model to integrate magazine copy into a
// pre-rendered A4 cover raster.
func coverPrompt(heads creative.Headlines) string {
	var sb strings.Builder
	sb.WriteString("This image is a full-page fashion magazine cover. ")
	sb.WriteString("Integrate the following cover copy into the image with elegant, ")
	sb.WriteString("legible magazine typography that complements the photograph. ")
	sb.WriteString("Keep the subject unobscured.\n")
	fmt.Fprintf(&sb, "Masthead title: %s\n", heads.Title)
	for _, h := range heads.Headlines {
		fmt.Fprintf(&sb, "Headline: %s\n", h)
	}
	return sb.String()
}
