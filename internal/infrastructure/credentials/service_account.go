package credentials

import (
	"context"
	"errors"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/errs"
	"kiccms/internal/ports"
)

// ServiceAccountProvider authorizes with a service account JSON key file.
type ServiceAccountProvider struct {
	credentialsFile string
	scopes          []string
	cached          tokenCapability
}

func NewServiceAccountProvider(credentialsFile string, scopes ...string) *ServiceAccountProvider {
	return &ServiceAccountProvider{
		credentialsFile: strings.TrimSpace(credentialsFile),
		scopes:          scopes,
	}
}

func (p *ServiceAccountProvider) Authorize(ctx context.Context) (ports.Capability, error) {
	return p.cached.get(ctx, func(ctx context.Context) (oauth2.TokenSource, error) {
		if p.credentialsFile == "" {
			return nil, errors.New("auth.credentials_file is empty")
		}
		raw, err := os.ReadFile(p.credentialsFile)
		if err != nil {
			return nil, errs.Wrap(err, "read service account key")
		}
		jwtConfig, err := google.JWTConfigFromJSON(raw, p.scopes...)
		if err != nil {
			return nil, errs.Wrap(err, "parse service account key")
		}
		return jwtConfig.TokenSource(ctx), nil
	})
}

func (p *ServiceAccountProvider) Method() string { return config.AuthMethodServiceAccount }
