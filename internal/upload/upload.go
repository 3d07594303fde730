package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// allowedMimeTypes and allowedExtensions are OR'd: a file passes validation
// if either its (normalized) MIME type or its extension is allowed, so a
// mislabeled but correctly named file still gets through.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// extensionMimeTypes maps extensions to the MIME type substituted when a
// client declares a generic application/octet-stream.
var extensionMimeTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

var (
	// ErrNoFile is returned when the multipart form has no image file.
	ErrNoFile = errors.New("no image file in request")

	// ErrTooManyFiles is returned when the form carries more than one file
	// under the image field.
	ErrTooManyFiles = errors.New("expected exactly one image file")
)

// InvalidFileTypeError is returned when both the MIME type and the extension
// check fail. It carries the rejected values for diagnostics.
type InvalidFileTypeError struct {
	MimeType string
	Ext      string
}

func (e *InvalidFileTypeError) Error() string {
	return fmt.Sprintf("invalid file type (mimetype: %q, extension: %q); only jpeg, png and gif images are accepted", e.MimeType, e.Ext)
}

// TooLargeError is returned when the upload exceeds the validator's limit.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes (limit %d)", e.Size, e.Limit)
}

// SavedUpload is a validated upload persisted under the scratch directory.
// It is owned by the request that created it and must be removed before the
// request finishes, whichever way the request went.
type SavedUpload struct {
	Path         string
	OriginalName string
	MimeType     string
	Ext          string
	Size         int64
}

// Remove deletes the saved file from the scratch directory.
func (u *SavedUpload) Remove() error {
	return os.Remove(u.Path)
}

// Validator enforces the upload policy for one endpoint and persists
// accepted files under Dir.
type Validator struct {
	Dir     string
	MaxSize int64
}

func NewValidator(dir string, maxSize int64) *Validator {
	return &Validator{Dir: dir, MaxSize: maxSize}
}

// Save validates the uploaded files and persists the single accepted file
// under a collision-resistant name. Validation rejections happen before
// anything touches the filesystem.
func (v *Validator) Save(files []*multipart.FileHeader) (*SavedUpload, error) {
	if len(files) == 0 {
		return nil, ErrNoFile
	}
	if len(files) > 1 {
		return nil, ErrTooManyFiles
	}
	fh := files[0]

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	mimeType := normalizeMimeType(fh.Header.Get("Content-Type"), ext)

	if !allowedMimeTypes[mimeType] && !allowedExtensions[ext] {
		return nil, &InvalidFileTypeError{MimeType: mimeType, Ext: ext}
	}
	if fh.Size > v.MaxSize {
		return nil, &TooLargeError{Size: fh.Size, Limit: v.MaxSize}
	}

	if err := os.MkdirAll(v.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Timestamp plus a random suffix keeps concurrent uploads from ever
	// landing on the same name.
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
	path := filepath.Join(v.Dir, name)

	if err := copyUpload(fh, path); err != nil {
		return nil, err
	}

	return &SavedUpload{
		Path:         path,
		OriginalName: fh.Filename,
		MimeType:     mimeType,
		Ext:          ext,
		Size:         fh.Size,
	}, nil
}

func copyUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write upload file: %w", err)
	}
	return nil
}

// normalizeMimeType substitutes a type inferred from the extension when the
// client declared a generic binary type or nothing at all.
func normalizeMimeType(declared, ext string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "" || declared == "application/octet-stream" {
		if inferred, ok := extensionMimeTypes[ext]; ok {
			return inferred
		}
	}
	return declared
}
