// Package oauth2 attaches OAuth2 bearer tokens to Trino requests: a static
// token, the client credentials flow, or any oauth2.TokenSource.
package oauth2

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethanyzhang/trino-go"
	"github.com/ethanyzhang/trino-go/internal/dsnparam"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// --- Static Token ---

// NewStaticTokenOption returns a RequestOption that sets a static Bearer token
// on every request. Use this for pre-obtained JWTs or long-lived access tokens.
func NewStaticTokenOption(token string) trino.RequestOption {
	return TokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// --- Client Credentials Flow ---

// Config holds OAuth2 client credentials configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string   // Token endpoint URL
	Scopes       []string // Optional scopes
}

func (c *Config) validate() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("oauth2: ClientID is required")
	case c.ClientSecret == "":
		return fmt.Errorf("oauth2: ClientSecret is required")
	case c.TokenURL == "":
		return fmt.Errorf("oauth2: TokenURL is required")
	}
	return nil
}

// NewRequestOption returns a RequestOption that obtains tokens with the
// client credentials flow. Tokens are cached and refreshed on expiry; the
// option is safe for concurrent use.
func NewRequestOption(cfg Config) (trino.RequestOption, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return TokenSource(cc.TokenSource(context.Background())), nil
}

// TokenSource wraps ts as a RequestOption. When no token can be obtained the
// request goes out without credentials and the server rejects it, which
// fails the statement with a transport error.
func TokenSource(ts oauth2.TokenSource) trino.RequestOption {
	ts = oauth2.ReuseTokenSource(nil, ts)
	return func(req *http.Request) {
		token, err := ts.Token()
		if err != nil {
			log.Warn().Err(err).Str("url", req.URL.Redacted()).Msg("oauth2: failed to obtain token")
			return
		}
		token.SetAuthHeader(req)
	}
}

// --- DSN Integration ---

// DSN parameter names for OAuth2 configuration.
const (
	dsnAccessToken  = "access_token"
	dsnClientID     = "oauth2_client_id"
	dsnClientSecret = "oauth2_client_secret"
	dsnTokenURL     = "oauth2_token_url"
	dsnScopes       = "oauth2_scopes"
)

// parseDSN takes the OAuth2 parameters out of dsn. The option is nil when the
// DSN carries none. A static access_token wins over client credentials.
func parseDSN(dsn string) (trino.RequestOption, string, error) {
	params, cleanDSN, err := dsnparam.Extract(dsn,
		dsnAccessToken, dsnClientID, dsnClientSecret, dsnTokenURL, dsnScopes)
	if err != nil {
		return nil, "", fmt.Errorf("oauth2: %w", err)
	}

	if token := params.Get(dsnAccessToken); token != "" {
		return NewStaticTokenOption(token), cleanDSN, nil
	}
	if params.Get(dsnClientID) == "" {
		return nil, cleanDSN, nil
	}

	cfg := Config{
		ClientID:     params.Get(dsnClientID),
		ClientSecret: params.Get(dsnClientSecret),
		TokenURL:     params.Get(dsnTokenURL),
	}
	for _, s := range strings.Split(params.Get(dsnScopes), ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Scopes = append(cfg.Scopes, s)
		}
	}
	opt, err := NewRequestOption(cfg)
	if err != nil {
		return nil, "", err
	}
	return opt, cleanDSN, nil
}

// NewConnector creates a driver.Connector with OAuth2 authentication,
// configured by DSN parameters:
//
//	access_token=<token>
//	oauth2_client_id=..&oauth2_client_secret=..&oauth2_token_url=..[&oauth2_scopes=a,b]
//
// The parameters are removed before the DSN reaches trino.NewConnector.
func NewConnector(dsn string, opts ...trino.ConnectorOption) (driver.Connector, error) {
	authOpt, cleanDSN, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if authOpt != nil {
		opts = append([]trino.ConnectorOption{
			trino.WithClientOptions(trino.WithRequestOptions(authOpt)),
		}, opts...)
	}
	return trino.NewConnector(cleanDSN, opts...)
}
