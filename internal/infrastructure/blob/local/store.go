// Package local stores attachments on the local filesystem for
// deployments without Drive.
package local

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"kiccms/internal/errs"
	"kiccms/internal/ports"
)

const defaultContainer = "attachments"

// Store writes each upload to <dir>/<container>/<id>-<name> and links it
// with a file:// URL.
type Store struct {
	dir   string
	newID func() string
}

var _ ports.BlobStore = (*Store)(nil)

func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("blob dir is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errs.Wrap(err, "resolve blob dir")
	}
	return &Store{dir: abs, newID: uuid.NewString}, nil
}

func (s *Store) Upload(ctx context.Context, upload ports.BlobUpload) (ports.BlobObject, error) {
	if ctx == nil {
		return ports.BlobObject{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.BlobObject{}, errs.Wrap(err, "check context")
	}
	if upload.Body == nil {
		return ports.BlobObject{}, errs.E(errs.KindValidation, errors.New("upload body is required"))
	}

	container := safeName(upload.Container)
	if container == "" {
		container = defaultContainer
	}
	dir := filepath.Join(s.dir, container)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ports.BlobObject{}, errs.Wrapf(err, "create container %q", container)
	}

	id := s.newID()
	name := safeName(upload.Name)
	if name == "" {
		name = "attachment"
	}
	path := filepath.Join(dir, id+"-"+name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return ports.BlobObject{}, errs.Wrap(err, "create blob file")
	}
	if _, err := io.Copy(file, upload.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return ports.BlobObject{}, errs.Wrap(err, "write blob file")
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return ports.BlobObject{}, errs.Wrap(err, "close blob file")
	}

	link := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return ports.BlobObject{ID: id, Link: link.String()}, nil
}

// safeName keeps only the final path element so uploads cannot escape
// the blob directory.
func safeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = filepath.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}
