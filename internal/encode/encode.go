// Package encode turns stored image files into base64 payloads for
// embedding in data URIs.
package encode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
)

// ErrUnreadable is returned when the image file cannot be read, for example
// if it was deleted between validation and encoding.
var ErrUnreadable = errors.New("image file could not be read")

// File reads the file at path and returns its contents base64-encoded.
// Content is not re-validated; the upload validator already vouched for it.
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
