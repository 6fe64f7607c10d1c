package transform

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeDataURI wraps raw image bytes in a self-contained data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a base64 data URI into its MIME type and raw
// bytes. Only base64-encoded payloads are supported, which is the only
// form the studio produces.
func DecodeDataURI(uri string) (mimeType string, data []byte, err error) {
	const scheme = "data:"
	if !strings.HasPrefix(uri, scheme) {
		return "", nil, fmt.Errorf("not a data URI")
	}

	meta, payload, ok := strings.Cut(uri[len(scheme):], ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: missing payload separator")
	}

	mimeType, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return "", nil, fmt.Errorf("unsupported data URI encoding %q", enc)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URI payload: %w", err)
	}
	return mimeType, data, nil
}

// IsDataURI reports whether s looks like a data URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}
