package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bananafashion/studio/internal/creative"
	"github.com/bananafashion/studio/internal/gemini"
	"github.com/bananafashion/studio/internal/portfolio"
	"github.com/bananafashion/studio/internal/render"
)

type stubGenerator struct {
	raw        string
	lastPrompt string
	lastImages []string
}

func (s *stubGenerator) GenerateJSON(_ context.Context, prompt string, images []string, _ *gemini.Schema) (string, error) {
	s.lastPrompt = prompt
	s.lastImages = images
	return s.raw, nil
}

func setupCreativeHandler(t *testing.T, gen creative.Generator) http.Handler {
	t.Helper()
	store, err := portfolio.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewAppHandler(AppDeps{
		Store:    store,
		Renderer: render.NewRenderer(),
		Token:    testToken,
		Creative: creative.NewExtractor(gen),
	})
}

func TestCreative_Describe(t *testing.T) {
	gen := &stubGenerator{raw: `{"title":"Night Walk","description":"Wool coat over silk."}`}
	h := setupCreativeHandler(t, gen)

	uri := smallPNGDataURI(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/creative/describe", `{"imageUrl":"`+uri+`"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var caption struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	json.NewDecoder(rr.Body).Decode(&caption)
	if caption.Title != "Night Walk" || caption.Description != "Wool coat over silk." {
		t.Errorf("caption = %+v", caption)
	}
	if len(gen.lastImages) != 1 || gen.lastImages[0] != uri {
		t.Errorf("expected image to reach the generator, got %v", gen.lastImages)
	}
}

func TestCreative_DescribeRequiresImage(t *testing.T) {
	h := setupCreativeHandler(t, &stubGenerator{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/creative/describe", `{}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreative_VariationsDefaultCount(t *testing.T) {
	gen := &stubGenerator{raw: `{"variations":[
		{"title":"Cropped","description":"Shorter hem.","prompt":"crop the jacket"},
		{"title":"Leather","description":"Harder edge.","prompt":"swap to leather"},
		{"title":"Oversize","description":"Relaxed cut.","prompt":"make it oversized"}]}`}
	h := setupCreativeHandler(t, gen)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/creative/variations", `{"category":"jacket"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var result struct {
		Variations []creative.Variation `json:"variations"`
	}
	json.NewDecoder(rr.Body).Decode(&result)
	if len(result.Variations) != 3 {
		t.Fatalf("got %d variations, want 3", len(result.Variations))
	}
	if result.Variations[0].Prompt != "crop the jacket" {
		t.Errorf("first prompt = %q", result.Variations[0].Prompt)
	}
}

func TestCreative_VariationsRequireCategory(t *testing.T) {
	h := setupCreativeHandler(t, &stubGenerator{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/creative/variations", `{"count":2}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreative_DisabledWithoutExtractor(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/creative/describe", `{"imageUrl":"x"}`, testToken))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotImplemented)
	}
}
