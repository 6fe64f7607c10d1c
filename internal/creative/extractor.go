// Package creative turns free-form studio requests into structured
// editorial content by prompting the generative collaborator with
// strict JSON schemas. Malformed model output is an error here, never
// silently patched.
package creative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bananafashion/studio/internal/gemini"
)

// Generator is the structured-output surface of the model client.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, images []string, schema *gemini.Schema) (string, error)
}

// Headlines is the editorial copy for a magazine-style album: one
// cover title plus two to four supporting headlines.
type Headlines struct {
	Title     string   `json:"title"`
	Headlines []string `json:"headlines"`
}

// Extractor wraps a Generator with the studio's prompts and schemas.
type Extractor struct {
	gen Generator
}

func NewExtractor(gen Generator) *Extractor {
	return &Extractor{gen: gen}
}

var headlinesSchema = &gemini.Schema{
	Type: "object",
	Properties: map[string]*gemini.Schema{
		"title": {
			Type:        "string",
			Description: "Short, evocative magazine cover title",
		},
		"headlines": {
			Type:        "array",
			Description: "Two to four supporting cover headlines",
			Items:       &gemini.Schema{Type: "string"},
		},
	},
	Required: []string{"title", "headlines"},
}

// MagazineHeadlines generates cover copy for an album around theme.
func (e *Extractor) MagazineHeadlines(ctx context.Context, theme string) (Headlines, error) {
	prompt := fmt.Sprintf(`You are the editor of a high-fashion magazine.
Create cover copy for a photo album themed %q.
Return a short evocative title and 2-4 punchy supporting headlines.`, theme)

	raw, err := e.gen.GenerateJSON(ctx, prompt, nil, headlinesSchema)
	if err != nil {
		return Headlines{}, fmt.Errorf("generating headlines: %w", err)
	}

	var h Headlines
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return Headlines{}, fmt.Errorf("model returned malformed headline JSON: %w", err)
	}
	if h.Title == "" {
		return Headlines{}, fmt.Errorf("model returned empty title")
	}
	if len(h.Headlines) < 2 || len(h.Headlines) > 4 {
		return Headlines{}, fmt.Errorf("model returned %d headlines, want 2-4", len(h.Headlines))
	}
	return h, nil
}

// Caption is the editorial text overlay for one album page.
type Caption struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var captionSchema = &gemini.Schema{
	Type: "object",
	Properties: map[string]*gemini.Schema{
		"title": {
			Type:        "string",
			Description: "Two or three word title for the look",
		},
		"description": {
			Type:        "string",
			Description: "One-sentence editorial description of the look",
		},
	},
	Required: []string{"title", "description"},
}

// DescribeImage returns a short title and a one-sentence editorial
// description of the look in the image, suitable for a page caption.
func (e *Extractor) DescribeImage(ctx context.Context, imageURI string) (Caption, error) {
	prompt := `Caption this fashion image as an album page: a two or three
word title plus one elegant sentence describing the outfit and styling.`

	raw, err := e.gen.GenerateJSON(ctx, prompt, []string{imageURI}, captionSchema)
	if err != nil {
		return Caption{}, fmt.Errorf("describing image: %w", err)
	}

	var c Caption
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Caption{}, fmt.Errorf("model returned malformed caption JSON: %w", err)
	}
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	if c.Title == "" && c.Description == "" {
		return Caption{}, fmt.Errorf("model returned empty caption")
	}
	return c, nil
}

// Variation is one proposed restyling of a garment category: editorial
// copy plus the prompt to hand to the image editor.
type Variation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

var variationsSchema = &gemini.Schema{
	Type: "object",
	Properties: map[string]*gemini.Schema{
		"variations": {
			Type:        "array",
			Description: "Distinct styling variations",
			Items: &gemini.Schema{
				Type: "object",
				Properties: map[string]*gemini.Schema{
					"title":       {Type: "string", Description: "Short variation name"},
					"description": {Type: "string", Description: "One-sentence description"},
					"prompt": {
						Type:        "string",
						Description: "Imperative image-editing instruction",
					},
				},
				Required: []string{"title", "description", "prompt"},
			},
		},
	},
	Required: []string{"variations"},
}

// SuggestVariations proposes count styling variations for a garment
// category, each with a prompt the image editor can apply directly.
func (e *Extractor) SuggestVariations(ctx context.Context, category string, count int) ([]Variation, error) {
	if count < 1 {
		return nil, fmt.Errorf("variation count must be positive, got %d", count)
	}
	prompt := fmt.Sprintf(`Suggest exactly %d distinct styling variations for the
garment category %q. For each, give a short title, a one-sentence
description, and an imperative editing instruction like
"swap the blazer for a cropped leather jacket".`, count, category)

	raw, err := e.gen.GenerateJSON(ctx, prompt, nil, variationsSchema)
	if err != nil {
		return nil, fmt.Errorf("suggesting variations: %w", err)
	}

	var out struct {
		Variations []Variation `json:"variations"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("model returned malformed variation JSON: %w", err)
	}
	if len(out.Variations) == 0 {
		return nil, fmt.Errorf("model returned no variations")
	}
	if len(out.Variations) > count {
		out.Variations = out.Variations[:count]
	}
	return out.Variations, nil
}
