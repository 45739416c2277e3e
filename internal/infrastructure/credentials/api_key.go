package credentials

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/option"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/errs"
	"kiccms/internal/ports"
)

// APIKeyProvider authorizes read access to sheets shared publicly.
// Appends through an API key are rejected by the store.
type APIKeyProvider struct {
	key string
}

func NewAPIKeyProvider(key string) *APIKeyProvider {
	return &APIKeyProvider{key: strings.TrimSpace(key)}
}

func (p *APIKeyProvider) Authorize(context.Context) (ports.Capability, error) {
	if p.key == "" {
		return nil, errs.E(errs.KindAuth, errors.New("auth.api_key is empty"))
	}
	return GoogleCapability{
		ClientOptions: []option.ClientOption{option.WithAPIKey(p.key)},
		HTTPClient:    &http.Client{Transport: apiKeyTransport{key: p.key, base: http.DefaultTransport}},
	}, nil
}

func (p *APIKeyProvider) Method() string { return config.AuthMethodAPIKey }

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	query := clone.URL.Query()
	query.Set("key", t.key)
	clone.URL.RawQuery = query.Encode()
	return t.base.RoundTrip(clone)
}
