// Package google adapts Google Sheets and Google Drive to the intake ports.
package google

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"kiccms/internal/errs"
)

var (
	ErrReadOnly         = errors.New("sheet access is read-only")
	ErrSheetNotShared   = errors.New("sheet is not shared publicly")
	ErrMissingBlobID    = errors.New("uploaded file has no id")
	ErrSpreadsheetID    = errors.New("spreadsheet id is required")
	ErrProviderRequired = errors.New("credential provider is required")
)

// classify tags an API failure: rejected credentials are auth errors,
// everything else is a transport failure.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if errs.KindOf(err) != errs.KindUnknown {
		return errs.Wrap(err, message)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && isAuthStatus(apiErr.Code) {
		return errs.E(errs.KindAuth, errs.Wrap(err, message))
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return errs.E(errs.KindAuth, errs.Wrap(err, message))
	}
	return errs.E(errs.KindTransport, errs.Wrap(err, message))
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
