package intake

import (
	"context"
	"io"
	"sync"
	"time"

	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeStore struct {
	mu         sync.Mutex
	rows       [][]string
	fetchCalls int
	appends    [][]string
	fetchErr   error
	appendErr  error
}

func newFakeStore(layout domainintake.Layout, rows ...[]string) *fakeStore {
	return &fakeStore{rows: append([][]string{layout.Header()}, rows...)}
}

func (s *fakeStore) FetchRows(context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([][]string, len(s.rows))
	for i, row := range s.rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (s *fakeStore) AppendRow(_ context.Context, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends = append(s.appends, append([]string(nil), row...))
	if s.appendErr != nil {
		return s.appendErr
	}
	s.rows = append(s.rows, append([]string(nil), row...))
	return nil
}

func (s *fakeStore) Location() string { return "fake://sheet" }

type fakeBlobs struct {
	uploads []ports.BlobUpload
	bodies  []string
	err     error
}

func (b *fakeBlobs) Upload(_ context.Context, upload ports.BlobUpload) (ports.BlobObject, error) {
	body, _ := io.ReadAll(upload.Body)
	b.uploads = append(b.uploads, upload)
	b.bodies = append(b.bodies, string(body))
	if b.err != nil {
		return ports.BlobObject{}, b.err
	}
	return ports.BlobObject{ID: "blob-1", Link: "https://files.example.test/blob-1"}, nil
}

type recordingMetrics struct {
	submissions []string
	fetches     []string
}

func (m *recordingMetrics) SubmissionFinished(outcome string) {
	m.submissions = append(m.submissions, outcome)
}

func (m *recordingMetrics) SnapshotFetched(outcome string, _ int) {
	m.fetches = append(m.fetches, outcome)
}

func setupService(blobs ports.BlobStore, rows ...[]string) (*Service, *fakeStore, *fakeClock, *recordingMetrics) {
	layout := domainintake.DefaultLayout()
	clock := newFakeClock()
	store := newFakeStore(layout, rows...)
	metrics := &recordingMetrics{}
	svc := NewService(store, blobs, layout, NewSnapshotCache(DefaultSnapshotTTL, clock), clock, Options{
		BlobContainer: "folder-reports",
		Metrics:       metrics,
	})
	return svc, store, clock, metrics
}
