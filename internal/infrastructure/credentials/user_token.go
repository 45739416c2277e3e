package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/bootstrap/logging"
	"kiccms/internal/errs"
	"kiccms/internal/ports"
)

// UserTokenProvider authorizes as an end user with an OAuth client secret
// and a previously obtained token. Refreshed tokens are written back to
// the token file.
type UserTokenProvider struct {
	clientSecretFile string
	tokenFile        string
	scopes           []string
	cached           tokenCapability
}

func NewUserTokenProvider(clientSecretFile string, tokenFile string, scopes ...string) *UserTokenProvider {
	return &UserTokenProvider{
		clientSecretFile: strings.TrimSpace(clientSecretFile),
		tokenFile:        strings.TrimSpace(tokenFile),
		scopes:           scopes,
	}
}

func (p *UserTokenProvider) Authorize(ctx context.Context) (ports.Capability, error) {
	return p.cached.get(ctx, func(ctx context.Context) (oauth2.TokenSource, error) {
		if p.clientSecretFile == "" {
			return nil, errors.New("auth.client_secret_file is empty")
		}
		if p.tokenFile == "" {
			return nil, errors.New("auth.token_file is empty")
		}

		secret, err := os.ReadFile(p.clientSecretFile)
		if err != nil {
			return nil, errs.Wrap(err, "read oauth client secret")
		}
		oauthConfig, err := google.ConfigFromJSON(secret, p.scopes...)
		if err != nil {
			return nil, errs.Wrap(err, "parse oauth client secret")
		}

		token, err := ReadToken(p.tokenFile)
		if err != nil {
			return nil, err
		}

		return &persistingTokenSource{
			ctx:  logging.WithAttrs(ctx, slog.String("component", "credentials.user_token")),
			base: oauthConfig.TokenSource(ctx, token),
			path: p.tokenFile,
			last: token.AccessToken,
		}, nil
	})
}

func (p *UserTokenProvider) Method() string { return config.AuthMethodUserToken }

func ReadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "read oauth token file")
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, errs.Wrap(err, "decode oauth token file")
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, errors.New("oauth token file has neither access nor refresh token")
	}
	return &token, nil
}

func WriteToken(path string, token *oauth2.Token) error {
	raw, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return errs.Wrap(err, "encode oauth token")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errs.Wrap(err, "create token directory")
		}
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errs.Wrap(err, "write oauth token file")
	}
	return nil
}

// persistingTokenSource saves each newly refreshed token.
type persistingTokenSource struct {
	ctx  context.Context
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := WriteToken(s.path, token); err != nil {
			logging.Warn(s.ctx, "persist refreshed token failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return token, nil
}
