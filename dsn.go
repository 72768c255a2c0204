package trino

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// DSN query parameters. Any other parameter becomes a session property.
const (
	dsnSource             = "source"
	dsnTimeZone           = "timezone"
	dsnLocale             = "locale"
	dsnClientTags         = "client_tags"
	dsnClientInfo         = "client_info"
	dsnTraceToken         = "trace_token"
	dsnDisableCompression = "disable_compression"
	dsnRequestTimeout     = "request_timeout"
	dsnSSL                = "ssl"
	dsnSSLCA              = "ssl_ca"
	dsnSSLCert            = "ssl_cert"
	dsnSSLKey             = "ssl_key"
	dsnSSLSkipVerify      = "ssl_skip_verify"
	dsnCredentialPrefix   = "credential."
)

const defaultPort = "8080"

// dsnConfig holds the parsed DSN parameters.
type dsnConfig struct {
	host     string
	port     string
	user     string
	password string
	catalog  string
	schema   string
	presto   bool

	source     string
	timeZone   string
	locale     string
	clientTags []string
	clientInfo string
	traceToken string

	disableCompression bool
	requestTimeout     time.Duration

	ssl           bool
	sslCA         string
	sslCert       string
	sslKey        string
	sslSkipVerify bool

	credentials []Property
	// Unrecognized query params become session properties, sorted by name.
	properties []Property
}

// parseDSN parses a Trino or Presto DSN.
//
// Format: trino://[user[:password]@]host[:port][/catalog[/schema]][?key=value&...]
//
//	presto://...  (same, with X-Presto- headers)
func parseDSN(dsn string) (*dsnConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("trino: invalid DSN: %w", err)
	}

	cfg := &dsnConfig{port: defaultPort}

	switch u.Scheme {
	case "trino":
	case "presto":
		cfg.presto = true
	default:
		return nil, fmt.Errorf("trino: unsupported scheme %q: must be trino or presto", u.Scheme)
	}

	// User info
	if u.User != nil {
		cfg.user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			cfg.password = p
		}
	}

	// Host and port
	cfg.host = u.Hostname()
	if cfg.host == "" {
		return nil, fmt.Errorf("trino: missing host in DSN")
	}
	if p := u.Port(); p != "" {
		cfg.port = p
	}

	// Path: /catalog/schema
	if path := strings.Trim(u.Path, "/"); path != "" {
		parts := strings.SplitN(path, "/", 2)
		cfg.catalog = parts[0]
		if len(parts) > 1 {
			cfg.schema = parts[1]
		}
	}

	// Query params, in a stable order
	query := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		val := query.Get(key)
		switch key {
		case dsnSource:
			cfg.source = val
		case dsnTimeZone:
			cfg.timeZone = val
		case dsnLocale:
			cfg.locale = val
		case dsnClientTags:
			cfg.clientTags = strings.Split(val, ",")
		case dsnClientInfo:
			cfg.clientInfo = val
		case dsnTraceToken:
			cfg.traceToken = val
		case dsnDisableCompression:
			if cfg.disableCompression, err = parseDSNBool(key, val); err != nil {
				return nil, err
			}
		case dsnRequestTimeout:
			d, err := str2duration.ParseDuration(val)
			if err != nil {
				return nil, fmt.Errorf("trino: invalid %s %q: %w", key, val, err)
			}
			cfg.requestTimeout = d
		case dsnSSL:
			if cfg.ssl, err = parseDSNBool(key, val); err != nil {
				return nil, err
			}
		case dsnSSLCA:
			cfg.sslCA = val
		case dsnSSLCert:
			cfg.sslCert = val
		case dsnSSLKey:
			cfg.sslKey = val
		case dsnSSLSkipVerify:
			if cfg.sslSkipVerify, err = parseDSNBool(key, val); err != nil {
				return nil, err
			}
		default:
			if name, ok := strings.CutPrefix(key, dsnCredentialPrefix); ok {
				cfg.credentials = append(cfg.credentials, Property{Name: name, Value: val})
				continue
			}
			cfg.properties = append(cfg.properties, Property{Name: key, Value: val})
		}
	}

	if (cfg.sslCert == "") != (cfg.sslKey == "") {
		return nil, fmt.Errorf("trino: %s and %s must be set together", dsnSSLCert, dsnSSLKey)
	}
	return cfg, nil
}

func parseDSNBool(key, val string) (bool, error) {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("trino: invalid %s %q: %w", key, val, err)
	}
	return b, nil
}

func (cfg *dsnConfig) useTLS() bool {
	return cfg.ssl || cfg.sslCA != "" || cfg.sslCert != "" || cfg.sslSkipVerify
}

// serverURL returns the base URL of the coordinator.
func (cfg *dsnConfig) serverURL() string {
	scheme := "http"
	if cfg.useTLS() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, cfg.host, cfg.port)
}

// buildTLSConfig returns nil when the DSN asks for no custom TLS settings.
func (cfg *dsnConfig) buildTLSConfig() (*tls.Config, error) {
	if cfg.sslCA == "" && cfg.sslCert == "" && !cfg.sslSkipVerify {
		return nil, nil
	}

	tlsCfg := &tls.Config{
		ServerName:         cfg.host,
		InsecureSkipVerify: cfg.sslSkipVerify,
	}

	if cfg.sslCA != "" {
		pem, err := os.ReadFile(cfg.sslCA)
		if err != nil {
			return nil, fmt.Errorf("trino: failed to read CA certificate %q: %w", cfg.sslCA, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("trino: no certificates found in %q", cfg.sslCA)
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.sslCert != "" {
		cert, err := tls.LoadX509KeyPair(cfg.sslCert, cfg.sslKey)
		if err != nil {
			return nil, fmt.Errorf("trino: failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}

// session builds the Session the DSN describes.
func (cfg *dsnConfig) session() (*Session, error) {
	s, err := NewSession(cfg.serverURL())
	if err != nil {
		return nil, err
	}
	s = s.WithUser(cfg.user).
		WithPassword(cfg.password).
		WithSource(cfg.source).
		WithCatalog(cfg.catalog).
		WithSchema(cfg.schema).
		WithClientTags(cfg.clientTags...).
		WithTimeZone(cfg.timeZone).
		WithLocale(cfg.locale).
		WithClientInfo(cfg.clientInfo).
		WithTraceToken(cfg.traceToken).
		WithCompressionDisabled(cfg.disableCompression)
	for _, p := range cfg.properties {
		s = s.WithProperty(p.Name, p.Value)
	}
	for _, c := range cfg.credentials {
		s = s.WithCredential(c.Name, c.Value)
	}
	return s, nil
}

// clientOptions returns the Client configuration the DSN describes.
func (cfg *dsnConfig) clientOptions() ([]ClientOption, error) {
	var opts []ClientOption
	if cfg.presto {
		opts = append(opts, WithPrestoHeaders())
	}
	tlsCfg, err := cfg.buildTLSConfig()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		opts = append(opts, WithTLSConfig(tlsCfg))
	}
	if cfg.requestTimeout > 0 {
		opts = append(opts, WithRequestTimeout(cfg.requestTimeout))
	}
	return opts, nil
}
