package google

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
)

// TokenProvider supplies OAuth tokens for Google API clients.
type TokenProvider interface {
	// TokenSource returns a source of valid tokens.
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)

	// HasToken reports whether a token is available without contacting Google.
	HasToken() bool
}

// FileTokenProvider reads the token cached by the auth command and writes
// refreshed tokens back to the same file.
type FileTokenProvider struct {
	config    *oauth2.Config
	tokenFile string
	logger    logging.Logger
	metrics   *instrumentation.Metrics
}

// NewFileTokenProvider creates a provider for the token stored at tokenFile.
// logger and metrics may be nil.
func NewFileTokenProvider(config *oauth2.Config, tokenFile string, logger logging.Logger, metrics *instrumentation.Metrics) *FileTokenProvider {
	return &FileTokenProvider{
		config:    config,
		tokenFile: tokenFile,
		logger:    logging.OrDefault(logger),
		metrics:   metrics,
	}
}

// HasToken reports whether the token file exists.
func (p *FileTokenProvider) HasToken() bool {
	return HasToken(p.tokenFile)
}

// TokenSource returns a token source that refreshes through Google and
// persists every new token.
func (p *FileTokenProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := ReadToken(p.tokenFile)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		ctx:      context.WithoutCancel(ctx),
		base:     p.config.TokenSource(ctx, tok),
		provider: p,
		last:     tok,
	}, nil
}

// persistingTokenSource serializes refreshes and saves tokens that differ
// from the last one seen.
type persistingTokenSource struct {
	ctx      context.Context
	mu       sync.Mutex
	base     oauth2.TokenSource
	provider *FileTokenProvider
	last     *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		s.provider.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh Google token: %w", err)
	}

	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		s.provider.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)
		if err := WriteToken(s.provider.tokenFile, tok); err != nil {
			// The token is still usable for this process.
			s.provider.logger.Warn("failed to persist refreshed token", logging.Err(err))
		} else {
			s.provider.logger.Debug("persisted refreshed token", "token", logging.SanitizeToken(tok.AccessToken))
		}
		s.last = tok
	}
	return tok, nil
}

// HTTPClient returns an HTTP client that authorizes requests with tokens
// from p and traces them with OpenTelemetry.
func HTTPClient(ctx context.Context, p TokenProvider) (*http.Client, error) {
	ts, err := p.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	base := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts)), nil
}
