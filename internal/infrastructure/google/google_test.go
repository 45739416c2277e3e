package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/option"

	"kiccms/internal/errs"
	"kiccms/internal/infrastructure/credentials"
	"kiccms/internal/ports"
)

func portsUpload(name string, container string, content string) ports.BlobUpload {
	return ports.BlobUpload{
		Name:        name,
		Container:   container,
		ContentType: "application/pdf",
		Body:        strings.NewReader(content),
	}
}

type sheetsServer struct {
	mu       sync.Mutex
	values   [][]any
	appended [][]any
	query    map[string]string
	status   int
}

func (s *sheetsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": s.status, "message": "rejected"},
		})
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-1/values/'Intake'"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "Intake!A1:G3",
			"majorDimension": "ROWS",
			"values":         s.values,
		})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/values/'Intake'!A1:append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.appended = append(s.appended, body.Values...)
		s.query = map[string]string{
			"valueInputOption": r.URL.Query().Get("valueInputOption"),
			"insertDataOption": r.URL.Query().Get("insertDataOption"),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 404, "message": "no route " + r.URL.Path},
		})
	}
}

func newTestSheetsStore(t *testing.T, handler http.Handler) *SheetsStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewSheetsStore(credentials.NoneProvider{}, SheetsOptions{
		SpreadsheetID:    "sheet-1",
		SheetName:        "Intake",
		ValueInputOption: "RAW",
		ClientOptions:    []option.ClientOption{option.WithEndpoint(server.URL + "/")},
	})
	if err != nil {
		t.Fatalf("NewSheetsStore() error = %v", err)
	}
	return store
}

func TestSheetsStoreFetchRowsStringifiesCells(t *testing.T) {
	server := &sheetsServer{values: [][]any{
		{"Receipt Number", "Company", "Status"},
		{"7", "X", "awaiting intake"},
		{12, "Y"},
	}}
	store := newTestSheetsStore(t, server)

	rows, err := store.FetchRows(context.Background())
	if err != nil {
		t.Fatalf("FetchRows() error = %v", err)
	}
	want := [][]string{
		{"Receipt Number", "Company", "Status"},
		{"7", "X", "awaiting intake"},
		{"12", "Y"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if got := store.Location(); got != "google:sheet-1/Intake" {
		t.Fatalf("Location() = %q", got)
	}
}

func TestSheetsStoreAppendRowInsertsRows(t *testing.T) {
	server := &sheetsServer{}
	store := newTestSheetsStore(t, server)

	if err := store.AppendRow(context.Background(), []string{"7", "X", "", "awaiting intake"}); err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if diff := cmp.Diff([][]any{{"7", "X", "", "awaiting intake"}}, server.appended); diff != "" {
		t.Fatalf("appended mismatch (-want +got):\n%s", diff)
	}
	if server.query["insertDataOption"] != "INSERT_ROWS" || server.query["valueInputOption"] != "RAW" {
		t.Fatalf("query = %v", server.query)
	}
}

func TestSheetsStoreClassifiesFailures(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		want   errs.Kind
	}{
		{name: "forbidden", status: http.StatusForbidden, want: errs.KindAuth},
		{name: "unauthorized", status: http.StatusUnauthorized, want: errs.KindAuth},
		{name: "not found", status: http.StatusNotFound, want: errs.KindTransport},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			store := newTestSheetsStore(t, &sheetsServer{status: testCase.status})
			_, err := store.FetchRows(context.Background())
			if got := errs.KindOf(err); got != testCase.want {
				t.Fatalf("FetchRows() kind = %v (%v), want %v", got, err, testCase.want)
			}
		})
	}
}

func TestSheetsStoreRejectsAppendWithAPIKey(t *testing.T) {
	store, err := NewSheetsStore(credentials.NewAPIKeyProvider("k"), SheetsOptions{SpreadsheetID: "sheet-1"})
	if err != nil {
		t.Fatalf("NewSheetsStore() error = %v", err)
	}
	if err := store.AppendRow(context.Background(), []string{"1"}); !errs.IsAuth(err) {
		t.Fatalf("AppendRow() error = %v, want auth error", err)
	}
}

func TestNewSheetsStoreRequiresSpreadsheetID(t *testing.T) {
	if _, err := NewSheetsStore(credentials.NoneProvider{}, SheetsOptions{SpreadsheetID: " "}); err != ErrSpreadsheetID {
		t.Fatalf("error = %v, want ErrSpreadsheetID", err)
	}
	if _, err := NewSheetsStore(nil, SheetsOptions{SpreadsheetID: "x"}); err != ErrProviderRequired {
		t.Fatalf("error = %v, want ErrProviderRequired", err)
	}
}

func TestDriveStoreUploadUsesFolderAndFallbackLink(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/files") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "file-1"})
	}))
	defer server.Close()

	store, err := NewDriveStore(credentials.NoneProvider{}, "default-folder",
		option.WithEndpoint(server.URL+"/drive/v3/"))
	if err != nil {
		t.Fatalf("NewDriveStore() error = %v", err)
	}

	object, err := store.Upload(context.Background(), portsUpload("report.pdf", "folder-reports", "%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if object.ID != "file-1" || object.Link != "https://drive.google.com/file/d/file-1/view" {
		t.Fatalf("object = %+v", object)
	}
	for _, want := range []string{"report.pdf", "folder-reports", "%PDF-1.4"} {
		if !strings.Contains(body, want) {
			t.Fatalf("upload body missing %q:\n%s", want, body)
		}
	}
}

func TestDriveStoreUploadAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 403, "message": "insufficient permissions"},
		})
	}))
	defer server.Close()

	store, err := NewDriveStore(credentials.NoneProvider{}, "", option.WithEndpoint(server.URL+"/drive/v3/"))
	if err != nil {
		t.Fatalf("NewDriveStore() error = %v", err)
	}
	_, err = store.Upload(context.Background(), portsUpload("a.bin", "", "x"))
	if !errs.IsAuth(err) {
		t.Fatalf("Upload() error = %v, want auth error", err)
	}
}

func TestCSVExportStoreFetchRows(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = io.WriteString(w, "\"Receipt Number\",\"Company\"\n\"7\",\"X, Ltd\"\n\"8\"\n")
	}))
	defer server.Close()

	store, err := NewCSVExportStore(credentials.NoneProvider{}, "sheet-1", "Intake", server.URL)
	if err != nil {
		t.Fatalf("NewCSVExportStore() error = %v", err)
	}
	rows, err := store.FetchRows(context.Background())
	if err != nil {
		t.Fatalf("FetchRows() error = %v", err)
	}
	want := [][]string{{"Receipt Number", "Company"}, {"7", "X, Ltd"}, {"8"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if gotPath != "/sheet-1/gviz/tq" || !strings.Contains(gotQuery, "tqx=out%3Acsv") || !strings.Contains(gotQuery, "sheet=Intake") {
		t.Fatalf("request = %s?%s", gotPath, gotQuery)
	}
}

func TestCSVExportStoreFailures(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		contentType string
		want        errs.Kind
	}{
		{name: "sign-in page", status: http.StatusOK, contentType: "text/html; charset=utf-8", want: errs.KindAuth},
		{name: "forbidden", status: http.StatusForbidden, contentType: "text/plain", want: errs.KindAuth},
		{name: "server error", status: http.StatusBadGateway, contentType: "text/plain", want: errs.KindTransport},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", testCase.contentType)
				w.WriteHeader(testCase.status)
				_, _ = io.WriteString(w, "<html></html>")
			}))
			defer server.Close()

			store, err := NewCSVExportStore(credentials.NoneProvider{}, "sheet-1", "", server.URL+"/")
			if err != nil {
				t.Fatalf("NewCSVExportStore() error = %v", err)
			}
			_, err = store.FetchRows(context.Background())
			if got := errs.KindOf(err); got != testCase.want {
				t.Fatalf("kind = %v (%v), want %v", got, err, testCase.want)
			}
		})
	}
}

func TestCSVExportStoreIsReadOnly(t *testing.T) {
	store, err := NewCSVExportStore(credentials.NoneProvider{}, "sheet-1", "Intake", "")
	if err != nil {
		t.Fatalf("NewCSVExportStore() error = %v", err)
	}
	if err := store.AppendRow(context.Background(), []string{"1"}); !errs.IsAuth(err) {
		t.Fatalf("AppendRow() error = %v, want auth error", err)
	}
}
