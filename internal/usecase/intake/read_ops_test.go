package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/errs"
)

func row(receipt, company, status string) []string {
	return domainintake.DefaultLayout().Row(domainintake.Record{
		ReceiptNumber: receipt,
		Company:       company,
		Status:        status,
		ReportLink:    domainintake.NoReportLink,
	})
}

func TestLoadSnapshotReusesCacheWithinTTL(t *testing.T) {
	svc, store, clock, _ := setupService(nil, row("1", "Acme", "shipped"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.LoadSnapshot(ctx); err != nil {
			t.Fatalf("LoadSnapshot() error = %v", err)
		}
		clock.Advance(10 * time.Second)
	}
	if store.fetchCalls != 1 {
		t.Fatalf("fetch calls = %d, want 1", store.fetchCalls)
	}

	clock.Advance(31 * time.Second)
	if _, err := svc.LoadSnapshot(ctx); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if store.fetchCalls != 2 {
		t.Fatalf("fetch calls after expiry = %d, want 2", store.fetchCalls)
	}
}

func TestRefreshForcesRefetch(t *testing.T) {
	svc, store, _, _ := setupService(nil, row("1", "Acme", "shipped"))
	ctx := context.Background()

	if _, err := svc.LoadSnapshot(ctx); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	store.rows = append(store.rows, row("2", "Beta", "shipped"))

	snapshot, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if snapshot.Len() != 2 || store.fetchCalls != 2 {
		t.Fatalf("len=%d fetchCalls=%d", snapshot.Len(), store.fetchCalls)
	}
}

func TestFetchFailureThenRecovery(t *testing.T) {
	svc, store, _, metrics := setupService(nil, row("1", "Acme", "shipped"))
	ctx := context.Background()
	store.fetchErr = errors.New("connection reset")

	_, err := svc.Dashboard(ctx)
	if err == nil || !errs.IsTransport(err) {
		t.Fatalf("Dashboard() error = %v, want transport", err)
	}

	store.fetchErr = nil
	view, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard() retry error = %v", err)
	}
	if view.Summary.Total != 1 {
		t.Fatalf("Total = %d, want 1", view.Summary.Total)
	}
	if diff := cmp.Diff([]string{"fetch_failed", "ok"}, metrics.fetches); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	svc, store, _, _ := setupService(nil, row("1", "Acme", "shipped"))
	ctx := context.Background()

	if _, err := svc.LoadSnapshot(ctx); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	store.fetchErr = errors.New("timeout")
	if _, err := svc.Refresh(ctx); err == nil {
		t.Fatalf("Refresh() error = nil")
	}

	kept, ok := svc.cache.Peek(store.Location())
	if !ok || kept.Len() != 1 || kept.Records[0].Company != "Acme" {
		t.Fatalf("Peek() = %+v, %v", kept.Records, ok)
	}
}

func TestHeaderOnlyStoreGivesEmptyDashboard(t *testing.T) {
	svc, _, _, _ := setupService(nil)

	view, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if view.Summary.Total != 0 || len(view.Summary.TopGroups) != 0 {
		t.Fatalf("summary = %+v", view.Summary)
	}
}

func TestSchemaErrorIsDistinctFromEmptyStore(t *testing.T) {
	svc, store, _, _ := setupService(nil)
	store.rows = nil

	_, err := svc.LoadSnapshot(context.Background())
	if !errors.Is(err, domainintake.ErrHeaderMissing) || !errs.IsSchema(err) {
		t.Fatalf("LoadSnapshot() error = %v, want schema ErrHeaderMissing", err)
	}
}

func TestSearchFiltersCachedSnapshot(t *testing.T) {
	svc, _, _, _ := setupService(nil,
		row("1", "Acme", "shipped"),
		row("2", "Beta", "in calibration"),
		row("3", "Acme Labs", "shipped"),
	)

	view, err := svc.Search(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if view.Total != 3 || view.Results.Len() != 2 {
		t.Fatalf("total=%d results=%d", view.Total, view.Results.Len())
	}
	if view.Results.Records[1].ReceiptNumber != "3" {
		t.Fatalf("results = %+v", view.Results.Records)
	}
}

func TestAppendIsMonotonic(t *testing.T) {
	svc, _, _, _ := setupService(nil, row("1", "Acme", "shipped"), row("2", "Beta", "shipped"))
	ctx := context.Background()

	before, err := svc.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if _, err := svc.Submit(ctx, SubmitInput{ReceiptNumber: "3", Company: "Gamma"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	after, err := svc.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	if after.Len() != before.Len()+1 {
		t.Fatalf("after len = %d, want %d", after.Len(), before.Len()+1)
	}
	if diff := cmp.Diff(before.Rows, after.Rows[:before.Len()]); diff != "" {
		t.Fatalf("prior rows changed (-want +got):\n%s", diff)
	}
	if after.Records[before.Len()].ReceiptNumber != "3" {
		t.Fatalf("new record = %+v", after.Records[before.Len()])
	}
}
