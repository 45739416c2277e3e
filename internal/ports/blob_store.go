package ports

import (
	"context"
	"io"
)

type BlobUpload struct {
	Name        string
	Container   string
	ContentType string
	Body        io.Reader
}

type BlobObject struct {
	ID   string
	Link string
}

// BlobStore accepts attachments and returns a stable retrieval link. The
// application never reads blobs back.
type BlobStore interface {
	Upload(ctx context.Context, upload BlobUpload) (BlobObject, error)
}
