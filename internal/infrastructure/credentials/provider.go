// Package credentials implements the pluggable ways of authorizing the
// Google stores: none, API key, service account key file, and a persisted
// OAuth user token.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/errs"
	"kiccms/internal/ports"
)

// Scopes requested by the service-account and user-token providers.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveFileScope,
}

// GoogleCapability is the concrete ports.Capability handed to the google
// adapters.
type GoogleCapability struct {
	ClientOptions []option.ClientOption
	// HTTPClient carries the same authorization for plain HTTP reads such
	// as the CSV export. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

// FromCapability unwraps a capability produced by this package.
func FromCapability(capability ports.Capability) (GoogleCapability, error) {
	switch c := capability.(type) {
	case GoogleCapability:
		return c, nil
	case *GoogleCapability:
		if c == nil {
			return GoogleCapability{}, errs.E(errs.KindAuth, errors.New("nil capability"))
		}
		return *c, nil
	default:
		return GoogleCapability{}, errs.E(errs.KindAuth, fmt.Errorf("unsupported capability %T", capability))
	}
}

// New selects the provider named by cfg.Method.
func New(cfg config.AuthConfig) (ports.CredentialProvider, error) {
	switch cfg.Method {
	case config.AuthMethodNone, "":
		return NoneProvider{}, nil
	case config.AuthMethodAPIKey:
		return NewAPIKeyProvider(cfg.APIKey), nil
	case config.AuthMethodServiceAccount:
		return NewServiceAccountProvider(cfg.CredentialsFile, Scopes...), nil
	case config.AuthMethodUserToken:
		return NewUserTokenProvider(cfg.ClientSecretFile, cfg.TokenFile, Scopes...), nil
	default:
		return nil, fmt.Errorf("unsupported auth method %q", cfg.Method)
	}
}

// NoneProvider authorizes nothing; it serves local backends and public reads.
type NoneProvider struct{}

func (NoneProvider) Authorize(context.Context) (ports.Capability, error) {
	return GoogleCapability{ClientOptions: []option.ClientOption{option.WithoutAuthentication()}}, nil
}

func (NoneProvider) Method() string { return config.AuthMethodNone }

// tokenCapability memoizes a capability built around an oauth2 token
// source. The first successful Authorize fetches a token so that bad
// credentials fail at the interaction boundary instead of deep in a store
// call.
type tokenCapability struct {
	mu         sync.Mutex
	capability *GoogleCapability
}

func (t *tokenCapability) get(ctx context.Context, build func(ctx context.Context) (oauth2.TokenSource, error)) (ports.Capability, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.capability != nil {
		return *t.capability, nil
	}

	// Token refreshes outlive the interaction that first authorized.
	baseCtx := context.WithoutCancel(ctx)
	source, err := build(baseCtx)
	if err != nil {
		return nil, errs.E(errs.KindAuth, err)
	}
	source = oauth2.ReuseTokenSource(nil, source)
	if _, err := source.Token(); err != nil {
		return nil, errs.E(errs.KindAuth, errs.Wrap(err, "obtain access token"))
	}

	t.capability = &GoogleCapability{
		ClientOptions: []option.ClientOption{option.WithTokenSource(source)},
		HTTPClient:    oauth2.NewClient(baseCtx, source),
	}
	return *t.capability, nil
}
