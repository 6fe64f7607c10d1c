// Package export bundles portfolio images into downloadable archives.
package export

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// Entry is one image destined for the archive.
type Entry struct {
	Name string // display name; sanitized before use
	Data []byte
}

var (
	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|()]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeName turns a display name into a safe archive member name
// with a forced .jpeg extension.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = whitespace.ReplaceAllString(name, "_")
	name = strings.TrimSuffix(name, ".jpg")
	name = strings.TrimSuffix(name, ".jpeg")
	if name == "" {
		name = "design"
	}
	return name + ".jpeg"
}

// WriteZip writes all entries to w as a zip archive. Colliding names
// after sanitization get a numeric suffix so no entry is lost.
func WriteZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)

	seen := map[string]int{}
	for i, entry := range entries {
		name := SanitizeName(entry.Name)
		if n := seen[name]; n > 0 {
			base := strings.TrimSuffix(name, ".jpeg")
			name = fmt.Sprintf("%s_%d.jpeg", base, n)
		}
		seen[SanitizeName(entry.Name)]++

		f, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return fmt.Errorf("creating archive entry %d: %w", i, err)
		}
		if _, err := f.Write(entry.Data); err != nil {
			zw.Close()
			return fmt.Errorf("writing archive entry %q: %w", name, err)
		}
	}
	return zw.Close()
}

// Timestamp is the suffix appended to download filenames.
func Timestamp(now time.Time) string {
	return now.Format("20060102150405")
}
