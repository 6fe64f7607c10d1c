// Package gemini is the HTTP client for the generative collaborator.
// The rest of the studio consumes it through small local interfaces:
// an image editor (base image + references + instruction -> image) and
// a structured text generator (prompt + JSON schema -> JSON).
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bananafashion/studio/internal/transform"
)

// Schema describes the expected JSON output structure for structured
// generation. It is the subset of the API's OpenAPI schema the studio
// needs.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Client communicates with the Gemini REST API.
type Client struct {
	baseURL    string
	apiKey     string
	imageModel string
	textModel  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Options configures optional Client behavior.
type Options struct {
	BaseURL           string  // default https://generativelanguage.googleapis.com
	RequestsPerMinute float64 // default 30
}

// New creates a Client for the given API key and model names.
func New(apiKey, imageModel, textModel string, opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		imageModel: imageModel,
		textModel:  textModel,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		limiter:    rate.NewLimiter(rate.Limit(rpm/60), 2),
	}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseSchema     *Schema  `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type safetyRating struct {
	Category string `json:"category"`
	Blocked  bool   `json:"blocked"`
}

type candidate struct {
	Content       content        `json:"content"`
	FinishReason  string         `json:"finishReason"`
	SafetyRatings []safetyRating `json:"safetyRatings"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func imagePart(dataURI string) (part, error) {
	mime, data, err := transform.DecodeDataURI(dataURI)
	if err != nil {
		return part{}, fmt.Errorf("preparing image part: %w", err)
	}
	return part{InlineData: &inlineData{
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}, nil
}

// EditImage sends the base image plus optional reference images and a
// text instruction to the image model, returning the generated image
// as a data URI.
func (c *Client) EditImage(ctx context.Context, baseImage, prompt string, referenceImages []string) (string, error) {
	parts := make([]part, 0, len(referenceImages)+2)

	p, err := imagePart(baseImage)
	if err != nil {
		return "", err
	}
	parts = append(parts, p)
	for _, ref := range referenceImages {
		if ref == "" {
			continue
		}
		rp, err := imagePart(ref)
		if err != nil {
			return "", err
		}
		parts = append(parts, rp)
	}
	parts = append(parts, part{Text: prompt})

	resp, err := c.generate(ctx, c.imageModel, generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	})
	if err != nil {
		return "", err
	}
	return extractImage(resp)
}

// GenerateJSON asks the text model for output constrained by schema,
// optionally grounded on input images (data URIs). The raw JSON text is
// returned; malformed output is the caller's error to surface.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, images []string, schema *Schema) (string, error) {
	parts := make([]part, 0, len(images)+1)
	parts = append(parts, part{Text: prompt})
	for _, img := range images {
		p, err := imagePart(img)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}

	resp, err := c.generate(ctx, c.textModel, generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	})
	if err != nil {
		return "", err
	}
	return extractText(resp)
}

func (c *Client) generate(ctx context.Context, model string, reqBody generateRequest) (*generateResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return nil, fmt.Errorf("%s returned %d: %s", model, resp.StatusCode, out.Error.Message)
		}
		return nil, fmt.Errorf("%s returned unexpected status %d", model, resp.StatusCode)
	}
	return &out, nil
}

// extractImage pulls the first inline image out of a response as a
// data URI, translating block reasons into descriptive errors.
func extractImage(resp *generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	cand := resp.Candidates[0]

	for _, p := range cand.Content.Parts {
		if p.InlineData != nil {
			return "data:" + p.InlineData.MimeType + ";base64," + p.InlineData.Data, nil
		}
	}

	if cand.FinishReason != "" && cand.FinishReason != "STOP" {
		switch cand.FinishReason {
		case "SAFETY":
			var blocked []string
			for _, r := range cand.SafetyRatings {
				if r.Blocked {
					blocked = append(blocked, strings.TrimPrefix(r.Category, "HARM_CATEGORY_"))
				}
			}
			if len(blocked) > 0 {
				return "", fmt.Errorf("image generation blocked by safety policy (%s)", strings.Join(blocked, ", "))
			}
			return "", fmt.Errorf("image generation blocked by safety policy")
		case "RECITATION":
			return "", fmt.Errorf("image generation blocked: output too similar to copyrighted material")
		default:
			return "", fmt.Errorf("image generation failed: %s", cand.FinishReason)
		}
	}
	return "", fmt.Errorf("no image data in model response")
}

func extractText(resp *generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			return strings.TrimSpace(p.Text), nil
		}
	}
	return "", fmt.Errorf("no text in model response")
}
