package google

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/errs"
	"kiccms/internal/infrastructure/credentials"
	"kiccms/internal/ports"
)

const DefaultExportBaseURL = "https://docs.google.com/spreadsheets/d/"

// CSVExportStore reads a publicly shared sheet through the CSV export
// endpoint. It cannot append.
type CSVExportStore struct {
	provider      ports.CredentialProvider
	spreadsheetID string
	sheetName     string
	baseURL       string
}

var _ ports.TabularStore = (*CSVExportStore)(nil)

func NewCSVExportStore(provider ports.CredentialProvider, spreadsheetID string, sheetName string, baseURL string) (*CSVExportStore, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, ErrSpreadsheetID
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultExportBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &CSVExportStore{
		provider:      provider,
		spreadsheetID: spreadsheetID,
		sheetName:     strings.TrimSpace(sheetName),
		baseURL:       baseURL,
	}, nil
}

func (s *CSVExportStore) Location() string {
	return config.SheetBackendCSVExport + ":" + s.spreadsheetID + "/" + s.sheetName
}

func (s *CSVExportStore) exportURL() string {
	query := url.Values{}
	query.Set("tqx", "out:csv")
	if s.sheetName != "" {
		query.Set("sheet", s.sheetName)
	}
	return s.baseURL + url.PathEscape(s.spreadsheetID) + "/gviz/tq?" + query.Encode()
}

func (s *CSVExportStore) FetchRows(ctx context.Context) ([][]string, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	capability, err := s.provider.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	google, err := credentials.FromCapability(capability)
	if err != nil {
		return nil, err
	}
	client := google.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.exportURL(), nil)
	if err != nil {
		return nil, errs.Wrap(err, "build export request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.E(errs.KindTransport, errs.Wrap(err, "fetch csv export"))
	}
	defer resp.Body.Close()

	if isAuthStatus(resp.StatusCode) {
		return nil, errs.E(errs.KindAuth, fmt.Errorf("csv export: %s", resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.E(errs.KindTransport, fmt.Errorf("csv export: %s", resp.Status))
	}
	// Private sheets answer with the sign-in page instead of CSV.
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "text/html" {
		return nil, errs.E(errs.KindAuth, ErrSheetNotShared)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.E(errs.KindSchema, errs.Wrap(err, "parse csv export"))
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func (s *CSVExportStore) AppendRow(context.Context, []string) error {
	return errs.E(errs.KindAuth, errs.Wrap(ErrReadOnly, "append through csv export"))
}
