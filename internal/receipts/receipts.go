// Package receipts stores uploaded receipt images.
package receipts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned by Open when no receipt exists under the name.
var ErrNotFound = errors.New("receipt not found")

// sniffLen is the number of leading bytes used for content detection.
const sniffLen = 3072

// Upload is a receipt file received from a user.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// Storage provides an interface for receipt storage operations.
type Storage interface {
	// Put stores the upload under the given object name.
	Put(ctx context.Context, name string, u Upload) error

	// Open returns the stored object and its content type.
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)

	// URL returns the address at which the object can be fetched.
	URL(name string) string
}

// ObjectName builds the object name of a receipt from its key and extension.
func ObjectName(key, ext string) string {
	return key + "." + strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ValidObjectName rejects names that could escape the storage root.
func ValidObjectName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	return path.Clean(name) == name
}

// sniff detects the content type from the first bytes of the upload and
// returns a reader that replays them. The declared type is kept when
// detection only finds generic binary data.
func sniff(u Upload) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("sniff: reading upload: %w", err)
	}
	head = head[:n]

	contentType := mimetype.Detect(head).String()
	if strings.HasPrefix(contentType, "application/octet-stream") && u.ContentType != "" {
		contentType = u.ContentType
	}
	return contentType, io.MultiReader(bytes.NewReader(head), u.Body), nil
}
