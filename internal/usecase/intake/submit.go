package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"kiccms/internal/bootstrap/logging"
	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/errs"
	"kiccms/internal/ports"
)

const defaultAttachmentType = "application/octet-stream"

// Submit validates the input, uploads the attachment when present and then
// appends exactly one row.
//
// The two writes are not atomic. An upload failure aborts the submission
// before any row is written. An append failure after a successful upload
// leaves the blob in place; the returned error names it and nothing is
// cleaned up or retried.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	if ctx == nil {
		return SubmitResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return SubmitResult{}, errs.Wrap(err, "check context")
	}
	if s.store == nil {
		return SubmitResult{}, errStoreRequired
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.intake"))

	record, err := s.buildRecord(input)
	if err != nil {
		s.metrics.SubmissionFinished("invalid")
		return SubmitResult{}, err
	}
	logCtx = logging.WithAttrs(logCtx, slog.String("receipt_number", record.ReceiptNumber))

	var blobID string
	if input.Attachment != nil {
		object, err := s.upload(logCtx, *input.Attachment)
		if err != nil {
			s.metrics.SubmissionFinished("upload_failed")
			logging.Error(logCtx, "attachment upload failed, row not written", slog.Any("err", errs.Loggable(err)))
			return SubmitResult{}, err
		}
		blobID = object.ID
		record.ReportLink = object.Link
	}

	row := s.layout.Row(record)
	if err := s.store.AppendRow(ctx, row); err != nil {
		err = classify(err, errs.KindTransport)
		s.metrics.SubmissionFinished("append_failed")
		if blobID != "" {
			logging.Warn(logCtx, "row append failed after upload, blob left in place",
				slog.String("blob_id", blobID),
				slog.Any("err", errs.Loggable(err)),
			)
			return SubmitResult{}, errs.Wrapf(err, "append row (uploaded attachment %s was kept)", blobID)
		}
		logging.Error(logCtx, "row append failed", slog.Any("err", errs.Loggable(err)))
		return SubmitResult{}, errs.Wrap(err, "append row")
	}

	s.cache.Invalidate(s.store.Location())
	s.metrics.SubmissionFinished("ok")
	logging.Info(logCtx, "intake row appended",
		slog.String("company", record.Company),
		slog.String("status", record.Status),
		slog.Bool("attachment", blobID != ""),
	)

	return SubmitResult{Record: record, Row: row, BlobID: blobID}, nil
}

func (s *Service) buildRecord(input SubmitInput) (domainintake.Record, error) {
	receipt := strings.TrimSpace(input.ReceiptNumber)
	if receipt == "" {
		return domainintake.Record{}, errs.E(errs.KindValidation, domainintake.ErrReceiptNumberRequired)
	}
	company := strings.TrimSpace(input.Company)
	if company == "" {
		return domainintake.Record{}, errs.E(errs.KindValidation, domainintake.ErrCompanyRequired)
	}
	status, err := s.layout.NormalizeStatus(input.Status)
	if err != nil {
		return domainintake.Record{}, err
	}
	if input.Attachment != nil && s.blobs == nil {
		return domainintake.Record{}, errs.E(errs.KindValidation, ErrAttachmentsDisabled)
	}

	record := domainintake.Record{
		ReceiptNumber: receipt,
		Company:       company,
		DeviceName:    strings.TrimSpace(input.DeviceName),
		DeviceSerial:  strings.TrimSpace(input.DeviceSerial),
		Status:        status,
		ReportLink:    domainintake.NoReportLink,
	}
	if s.layout.Has(domainintake.FieldTimestamp) {
		record.Timestamp = s.clock.Now().UTC().Format(time.RFC3339)
	}
	return record, nil
}

func (s *Service) upload(ctx context.Context, attachment Attachment) (ports.BlobObject, error) {
	if attachment.Body == nil {
		return ports.BlobObject{}, errs.E(errs.KindValidation, errors.New("attachment has no content"))
	}

	name := strings.TrimSpace(attachment.Name)
	if name == "" {
		name = "attachment"
	}
	contentType := strings.TrimSpace(attachment.ContentType)
	if contentType == "" {
		contentType = defaultAttachmentType
	}

	object, err := s.blobs.Upload(ctx, ports.BlobUpload{
		Name:        name,
		Container:   s.container,
		ContentType: contentType,
		Body:        attachment.Body,
	})
	if err != nil {
		return ports.BlobObject{}, errs.Wrap(classify(err, errs.KindTransport), "upload attachment")
	}
	if strings.TrimSpace(object.Link) == "" {
		return ports.BlobObject{}, errs.E(errs.KindTransport, errors.New("blob store returned no retrieval link"))
	}

	logging.Info(ctx, "attachment uploaded", slog.String("blob_id", object.ID), slog.String("name", name))
	return object, nil
}

// classify tags err with fallback unless an adapter already classified it.
func classify(err error, fallback errs.Kind) error {
	if err == nil || errs.KindOf(err) != errs.KindUnknown {
		return err
	}
	return errs.E(fallback, err)
}
