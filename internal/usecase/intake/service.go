package intake

import (
	"errors"
	"io"

	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/ports"
)

var (
	errStoreRequired       = errors.New("tabular store is required")
	ErrAttachmentsDisabled = errors.New("attachments are not configured")
)

type Service struct {
	store     ports.TabularStore
	blobs     ports.BlobStore
	layout    domainintake.Layout
	cache     *SnapshotCache
	clock     ports.Clock
	metrics   ports.IntakeMetrics
	container string
}

type Options struct {
	// BlobContainer is the parent folder for uploaded attachments.
	BlobContainer string
	Metrics       ports.IntakeMetrics
}

// NewService wires intake use cases. blobs may be nil when attachments are
// disabled; cache and clock fall back to a 60s cache and the system clock.
func NewService(
	store ports.TabularStore,
	blobs ports.BlobStore,
	layout domainintake.Layout,
	cache *SnapshotCache,
	clock ports.Clock,
	options Options,
) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if cache == nil {
		cache = NewSnapshotCache(DefaultSnapshotTTL, clock)
	}
	metrics := options.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		store:     store,
		blobs:     blobs,
		layout:    layout,
		cache:     cache,
		clock:     clock,
		metrics:   metrics,
		container: options.BlobContainer,
	}
}

func (s *Service) Layout() domainintake.Layout {
	return s.layout
}

func (s *Service) AttachmentsEnabled() bool {
	return s.blobs != nil
}

type Attachment struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type SubmitInput struct {
	ReceiptNumber string
	Company       string
	DeviceName    string
	DeviceSerial  string
	Status        string
	Attachment    *Attachment
}

type SubmitResult struct {
	Record domainintake.Record
	Row    []string
	BlobID string
}

// ReportLink is the stored link, or empty when nothing was attached.
func (r SubmitResult) ReportLink() string {
	if r.Record.ReportLink == domainintake.NoReportLink {
		return ""
	}
	return r.Record.ReportLink
}

type DashboardView struct {
	Summary  domainintake.Summary
	Snapshot domainintake.Snapshot
}

type SearchView struct {
	Query    string
	Results  domainintake.Snapshot
	Total    int
	Snapshot domainintake.Snapshot
}
