// Package kerberos attaches Kerberos/SPNEGO Negotiate headers to Trino
// requests using a keytab login.
package kerberos

import (
	"database/sql/driver"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethanyzhang/trino-go"
	"github.com/ethanyzhang/trino-go/internal/dsnparam"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/rs/zerolog/log"
)

// Config holds Kerberos authentication parameters.
type Config struct {
	KeytabPath string // Path to .keytab file
	Principal  string // e.g. "user" or "user@EXAMPLE.COM"
	Realm      string // Required when Principal carries no realm
	ConfigPath string // Path to krb5.conf
	ServiceSPN string // Service principal name, defaults to "HTTP/<hostname>"
}

func (c *Config) validate() error {
	switch {
	case c.KeytabPath == "":
		return fmt.Errorf("kerberos: KeytabPath is required")
	case c.Principal == "":
		return fmt.Errorf("kerberos: Principal is required")
	case c.Realm == "" && !strings.Contains(c.Principal, "@"):
		return fmt.Errorf("kerberos: Realm is required when Principal has no realm")
	case c.ConfigPath == "":
		return fmt.Errorf("kerberos: ConfigPath is required")
	}
	return nil
}

// splitPrincipal returns the user and realm of the principal. A realm in the
// principal wins over the configured one.
func (c *Config) splitPrincipal() (string, string) {
	if idx := strings.LastIndex(c.Principal, "@"); idx >= 0 {
		return c.Principal[:idx], c.Principal[idx+1:]
	}
	return c.Principal, c.Realm
}

// spn returns the service principal for a request to host.
func (c *Config) spn(host string) string {
	if c.ServiceSPN != "" {
		return c.ServiceSPN
	}
	return "HTTP/" + host
}

type krbCloser struct {
	cl *client.Client
}

func (k *krbCloser) Close() error {
	k.cl.Destroy()
	return nil
}

// NewRequestOption logs in with the keytab and returns a RequestOption that
// sets the Negotiate header on every request. The io.Closer destroys the
// Kerberos client and must be called when the option is no longer used.
func NewRequestOption(cfg Config) (trino.RequestOption, io.Closer, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	kt, err := keytab.Load(cfg.KeytabPath)
	if err != nil {
		return nil, nil, fmt.Errorf("kerberos: failed to load keytab %q: %w", cfg.KeytabPath, err)
	}
	krb5Conf, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("kerberos: failed to load config %q: %w", cfg.ConfigPath, err)
	}

	username, realm := cfg.splitPrincipal()
	cl := client.NewWithKeytab(username, realm, kt, krb5Conf)
	if err := cl.Login(); err != nil {
		return nil, nil, fmt.Errorf("kerberos: login failed: %w", err)
	}

	opt := func(req *http.Request) {
		spn := cfg.spn(req.URL.Hostname())
		if err := spnego.SetSPNEGOHeader(cl, req, spn); err != nil {
			// the server answers 401 and the statement fails with a transport error
			log.Warn().Err(err).Str("spn", spn).Msg("kerberos: failed to set SPNEGO header")
		}
	}
	return opt, &krbCloser{cl: cl}, nil
}

// DSN parameter names for Kerberos configuration.
const (
	dsnKeytab     = "kerberos_keytab"
	dsnPrincipal  = "kerberos_principal"
	dsnRealm      = "kerberos_realm"
	dsnConfig     = "kerberos_config"
	dsnServiceSPN = "kerberos_service_spn"
)

// parseDSN takes the Kerberos parameters out of dsn.
func parseDSN(dsn string) (*Config, string, error) {
	params, cleanDSN, err := dsnparam.Extract(dsn, dsnKeytab, dsnPrincipal, dsnRealm, dsnConfig, dsnServiceSPN)
	if err != nil {
		return nil, "", fmt.Errorf("kerberos: %w", err)
	}
	return &Config{
		KeytabPath: params.Get(dsnKeytab),
		Principal:  params.Get(dsnPrincipal),
		Realm:      params.Get(dsnRealm),
		ConfigPath: params.Get(dsnConfig),
		ServiceSPN: params.Get(dsnServiceSPN),
	}, cleanDSN, nil
}

// NewConnector creates a driver.Connector with Kerberos/SPNEGO
// authentication configured by the kerberos_* DSN parameters, which are
// removed before the DSN reaches trino.NewConnector.
//
// The returned io.Closer destroys the Kerberos client; close it after the
// sql.DB built on the connector.
func NewConnector(dsn string, opts ...trino.ConnectorOption) (driver.Connector, io.Closer, error) {
	cfg, cleanDSN, err := parseDSN(dsn)
	if err != nil {
		return nil, nil, err
	}

	opt, closer, err := NewRequestOption(*cfg)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]trino.ConnectorOption{
		trino.WithClientOptions(trino.WithRequestOptions(opt)),
	}, opts...)
	connector, err := trino.NewConnector(cleanDSN, opts...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return connector, closer, nil
}
