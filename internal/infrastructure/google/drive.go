package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"kiccms/internal/errs"
	"kiccms/internal/ports"
)

const driveViewURL = "https://drive.google.com/file/d/%s/view"

// DriveStore uploads attachments into a Drive folder. The upload
// container names the parent folder; an empty container falls back to
// the configured default folder.
type DriveStore struct {
	provider      ports.CredentialProvider
	defaultFolder string
	clientOptions []option.ClientOption
}

var _ ports.BlobStore = (*DriveStore)(nil)

func NewDriveStore(provider ports.CredentialProvider, defaultFolder string, clientOptions ...option.ClientOption) (*DriveStore, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	return &DriveStore{
		provider:      provider,
		defaultFolder: strings.TrimSpace(defaultFolder),
		clientOptions: clientOptions,
	}, nil
}

func (s *DriveStore) Upload(ctx context.Context, upload ports.BlobUpload) (ports.BlobObject, error) {
	if ctx == nil {
		return ports.BlobObject{}, errors.New("context is required")
	}
	if upload.Body == nil {
		return ports.BlobObject{}, errs.E(errs.KindValidation, errors.New("upload body is required"))
	}

	clientOptions, err := authorizedOptions(ctx, s.provider, s.clientOptions)
	if err != nil {
		return ports.BlobObject{}, err
	}
	service, err := drive.NewService(ctx, clientOptions...)
	if err != nil {
		return ports.BlobObject{}, classify(err, "create drive client")
	}

	file := &drive.File{
		Name:     upload.Name,
		MimeType: upload.ContentType,
	}
	folder := strings.TrimSpace(upload.Container)
	if folder == "" {
		folder = s.defaultFolder
	}
	if folder != "" {
		file.Parents = []string{folder}
	}

	created, err := service.Files.Create(file).
		Media(upload.Body, googleapi.ContentType(upload.ContentType)).
		Fields("id, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return ports.BlobObject{}, classify(err, "create drive file")
	}
	if created.Id == "" {
		return ports.BlobObject{}, errs.E(errs.KindTransport, ErrMissingBlobID)
	}

	link := created.WebViewLink
	if link == "" {
		link = fmt.Sprintf(driveViewURL, created.Id)
	}
	return ports.BlobObject{ID: created.Id, Link: link}, nil
}
