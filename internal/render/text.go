package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const lineHeight = 1.4

var (
	fontsOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font
	fontsErr    error

	faceMu    sync.Mutex
	faceCache = map[string]font.Face{}
)

func loadFonts() {
	regularFont, fontsErr = opentype.Parse(goregular.TTF)
	if fontsErr != nil {
		return
	}
	boldFont, fontsErr = opentype.Parse(gobold.TTF)
}

// fontFace returns a cached face at the given size. Faces are not safe
// for concurrent glyph rasterization in general, but every Canvas draws
// from a single goroutine and shared read access is fine here.
func fontFace(bold bool, size float64) (font.Face, error) {
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fmt.Errorf("parsing embedded fonts: %w", fontsErr)
	}

	key := fmt.Sprintf("%v-%.1f", bold, size)
	faceMu.Lock()
	defer faceMu.Unlock()
	if face, ok := faceCache[key]; ok {
		return face, nil
	}

	src := regularFont
	if bold {
		src = boldFont
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %.0fpt face: %w", size, err)
	}
	faceCache[key] = face
	return face, nil
}

// Face returns a shared font face at the given size for drawing code
// outside this package.
func Face(bold bool, size float64) (font.Face, error) {
	return fontFace(bold, size)
}

// WrapText splits text into lines that each fit within maxWidth when
// measured on dc's current font face. Words are never reordered; a
// single word wider than maxWidth gets its own line rather than being
// broken mid-word.
func WrapText(dc *gg.Context, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if w, _ := dc.MeasureString(candidate); w <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
