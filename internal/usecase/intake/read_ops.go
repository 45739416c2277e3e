package intake

import (
	"context"
	"errors"
	"log/slog"

	"kiccms/internal/bootstrap/logging"
	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/errs"
)

// LoadSnapshot returns the cached snapshot or fetches a new one. The caller
// blocks until the fetch completes.
func (s *Service) LoadSnapshot(ctx context.Context) (domainintake.Snapshot, error) {
	if ctx == nil {
		return domainintake.Snapshot{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return domainintake.Snapshot{}, errs.Wrap(err, "check context")
	}
	if s.store == nil {
		return domainintake.Snapshot{}, errStoreRequired
	}

	snapshot, _, err := s.cache.Get(ctx, s.store.Location(), s.fetchSnapshot)
	if err != nil {
		return domainintake.Snapshot{}, err
	}
	return snapshot, nil
}

// Refresh drops the cached snapshot and fetches again.
func (s *Service) Refresh(ctx context.Context) (domainintake.Snapshot, error) {
	if s.store == nil {
		return domainintake.Snapshot{}, errStoreRequired
	}
	s.cache.Invalidate(s.store.Location())
	return s.LoadSnapshot(ctx)
}

func (s *Service) Dashboard(ctx context.Context) (DashboardView, error) {
	snapshot, err := s.LoadSnapshot(ctx)
	if err != nil {
		return DashboardView{}, err
	}
	return DashboardView{
		Summary:  domainintake.Aggregate(snapshot, s.layout),
		Snapshot: snapshot,
	}, nil
}

func (s *Service) Search(ctx context.Context, query string) (SearchView, error) {
	snapshot, err := s.LoadSnapshot(ctx)
	if err != nil {
		return SearchView{}, err
	}
	return SearchView{
		Query:    query,
		Results:  domainintake.Search(snapshot, query),
		Total:    snapshot.Len(),
		Snapshot: snapshot,
	}, nil
}

func (s *Service) fetchSnapshot(ctx context.Context) (domainintake.Snapshot, error) {
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.intake"),
		slog.String("location", s.store.Location()),
	)

	values, err := s.store.FetchRows(ctx)
	if err != nil {
		err = classify(err, errs.KindTransport)
		s.metrics.SnapshotFetched("fetch_failed", 0)
		logging.Error(logCtx, "snapshot fetch failed", slog.Any("err", errs.Loggable(err)))
		return domainintake.Snapshot{}, errs.Wrap(err, "fetch rows")
	}

	snapshot, err := domainintake.NewSnapshot(s.layout, values, s.clock.Now())
	if err != nil {
		s.metrics.SnapshotFetched("schema_invalid", 0)
		logging.Error(logCtx, "snapshot rejected", slog.Any("err", errs.Loggable(err)))
		return domainintake.Snapshot{}, errs.Wrap(err, "build snapshot")
	}

	s.metrics.SnapshotFetched("ok", snapshot.Len())
	logging.Info(logCtx, "snapshot loaded", slog.Int("rows", snapshot.Len()))
	return snapshot, nil
}
