package utils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrNotDataURL = errors.New("not a base64 data URL")

// IsDataURL reports whether ref carries the image inline.
func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// EncodeDataURL renders data as data:<mime>;base64,<payload>.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL returns the payload and mime type of a base64 data URL.
func DecodeDataURL(ref string) ([]byte, string, error) {
	if !IsDataURL(ref) {
		return nil, "", ErrNotDataURL
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", ErrNotDataURL
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", ErrNotDataURL
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URL payload: %w", err)
	}
	return data, mimeType, nil
}
