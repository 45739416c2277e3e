package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/errs"
	"kiccms/internal/infrastructure/credentials"
	"kiccms/internal/ports"
)

const insertRows = "INSERT_ROWS"

type SheetsOptions struct {
	SpreadsheetID    string
	SheetName        string
	ValueInputOption string
	// ClientOptions are appended after the credential options; tests use
	// them to point the client at a local endpoint.
	ClientOptions []option.ClientOption
}

// SheetsStore reads and appends rows through the Sheets values API.
type SheetsStore struct {
	provider ports.CredentialProvider
	options  SheetsOptions
}

var _ ports.TabularStore = (*SheetsStore)(nil)

func NewSheetsStore(provider ports.CredentialProvider, options SheetsOptions) (*SheetsStore, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	options.SpreadsheetID = strings.TrimSpace(options.SpreadsheetID)
	if options.SpreadsheetID == "" {
		return nil, ErrSpreadsheetID
	}
	if strings.TrimSpace(options.SheetName) == "" {
		options.SheetName = "Sheet1"
	}
	if options.ValueInputOption == "" {
		options.ValueInputOption = "USER_ENTERED"
	}
	return &SheetsStore{provider: provider, options: options}, nil
}

func (s *SheetsStore) Location() string {
	return config.SheetBackendGoogle + ":" + s.options.SpreadsheetID + "/" + s.options.SheetName
}

func (s *SheetsStore) FetchRows(ctx context.Context) ([][]string, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	service, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := service.Spreadsheets.Values.Get(s.options.SpreadsheetID, quoteSheet(s.options.SheetName)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, "get sheet values")
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, len(values))
		for i, value := range values {
			row[i] = cellString(value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *SheetsStore) AppendRow(ctx context.Context, row []string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if s.provider.Method() == config.AuthMethodAPIKey {
		return errs.E(errs.KindAuth, errs.Wrap(ErrReadOnly, "append with api key"))
	}
	service, err := s.service(ctx)
	if err != nil {
		return err
	}

	cells := make([]interface{}, len(row))
	for i, value := range row {
		cells[i] = value
	}
	_, err = service.Spreadsheets.Values.Append(
		s.options.SpreadsheetID,
		quoteSheet(s.options.SheetName)+"!A1",
		&sheets.ValueRange{MajorDimension: "ROWS", Values: [][]interface{}{cells}},
	).
		ValueInputOption(s.options.ValueInputOption).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, "append sheet row")
	}
	return nil
}

func (s *SheetsStore) service(ctx context.Context) (*sheets.Service, error) {
	clientOptions, err := authorizedOptions(ctx, s.provider, s.options.ClientOptions)
	if err != nil {
		return nil, err
	}
	service, err := sheets.NewService(ctx, clientOptions...)
	if err != nil {
		return nil, classify(err, "create sheets client")
	}
	return service, nil
}

func authorizedOptions(ctx context.Context, provider ports.CredentialProvider, extra []option.ClientOption) ([]option.ClientOption, error) {
	capability, err := provider.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	google, err := credentials.FromCapability(capability)
	if err != nil {
		return nil, err
	}
	clientOptions := make([]option.ClientOption, 0, len(google.ClientOptions)+len(extra))
	clientOptions = append(clientOptions, google.ClientOptions...)
	clientOptions = append(clientOptions, extra...)
	return clientOptions, nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func cellString(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
