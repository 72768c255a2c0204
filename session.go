package trino

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

const (
	// DefaultUser is sent when a session does not name a user.
	DefaultUser = "trino-go-client"

	// DefaultSource is sent when a session does not name a source.
	DefaultSource = "trino-go-client"
)

// Property is one name=value pair of an ordered mapping, used for session
// properties and extra credentials.
type Property struct {
	Name  string
	Value string
}

func (p Property) String() string {
	return p.Name + "=" + p.Value
}

// Session is the immutable query context shared by every request of a
// statement: server endpoint, identity, catalog and schema, and the headers
// derived from them. The With* methods return modified copies; a Session is
// never changed in place, so one value may be shared between goroutines.
type Session struct {
	server *url.URL

	user     string
	password string
	source   string
	catalog  string
	schema   string

	clientTags  []string
	properties  []Property
	credentials []Property

	timeZone            string
	locale              string
	compressionDisabled bool

	traceToken string
	clientInfo string
}

// NewSession returns a session for the server at serverURL with the default
// user and source.
func NewSession(serverURL string) (*Session, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("trino: invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("trino: invalid server URL %q: scheme must be http or https", serverURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("trino: invalid server URL %q: missing host", serverURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Session{server: u, user: DefaultUser, source: DefaultSource}, nil
}

func (s *Session) clone() *Session {
	c := *s
	c.clientTags = slices.Clone(s.clientTags)
	c.properties = slices.Clone(s.properties)
	c.credentials = slices.Clone(s.credentials)
	return &c
}

// --- Accessors ---

// Server returns a copy of the server endpoint.
func (s *Session) Server() *url.URL {
	u := *s.server
	return &u
}

func (s *Session) User() string              { return s.user }
func (s *Session) Source() string            { return s.source }
func (s *Session) Catalog() string           { return s.catalog }
func (s *Session) Schema() string            { return s.schema }
func (s *Session) TimeZone() string          { return s.timeZone }
func (s *Session) Locale() string            { return s.locale }
func (s *Session) TraceToken() string        { return s.traceToken }
func (s *Session) ClientInfo() string        { return s.clientInfo }
func (s *Session) CompressionDisabled() bool { return s.compressionDisabled }
func (s *Session) ClientTags() []string      { return slices.Clone(s.clientTags) }
func (s *Session) Properties() []Property    { return slices.Clone(s.properties) }
func (s *Session) Credentials() []Property   { return slices.Clone(s.credentials) }

// Property returns the value of the named session property.
func (s *Session) Property(name string) (string, bool) {
	return lookupProperty(s.properties, name)
}

// Credential returns the value of the named extra credential.
func (s *Session) Credential(name string) (string, bool) {
	return lookupProperty(s.credentials, name)
}

// --- Copy-on-write setters ---

// WithServer points the session at another server.
func (s *Session) WithServer(serverURL string) (*Session, error) {
	base, err := NewSession(serverURL)
	if err != nil {
		return nil, err
	}
	c := s.clone()
	c.server = base.server
	return c, nil
}

// WithUser sets the user. An empty user resets to DefaultUser.
func (s *Session) WithUser(user string) *Session {
	c := s.clone()
	c.user = cmp.Or(user, DefaultUser)
	return c
}

// WithPassword attaches HTTP basic credentials for the session user.
func (s *Session) WithPassword(password string) *Session {
	c := s.clone()
	c.password = password
	return c
}

// WithSource sets the source tag. An empty source resets to DefaultSource.
func (s *Session) WithSource(source string) *Session {
	c := s.clone()
	c.source = cmp.Or(source, DefaultSource)
	return c
}

func (s *Session) WithCatalog(catalog string) *Session {
	c := s.clone()
	c.catalog = catalog
	return c
}

func (s *Session) WithSchema(schema string) *Session {
	c := s.clone()
	c.schema = schema
	return c
}

// WithClientTags replaces the client tags. Duplicates and empty tags are dropped.
func (s *Session) WithClientTags(tags ...string) *Session {
	c := s.clone()
	c.clientTags = nil
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(c.clientTags, t) {
			c.clientTags = append(c.clientTags, t)
		}
	}
	return c
}

// WithProperty sets a session property, keeping its original position when it
// is already present. The value is sent as name=value with the value
// URL-query-escaped, so pass it unescaped.
func (s *Session) WithProperty(name, value string) *Session {
	c := s.clone()
	c.properties = setProperty(c.properties, name, value)
	return c
}

// WithoutProperty removes a session property.
func (s *Session) WithoutProperty(name string) *Session {
	c := s.clone()
	c.properties = slices.DeleteFunc(c.properties, func(p Property) bool { return p.Name == name })
	return c
}

// WithCredential sets an extra credential. Like WithProperty, the value is
// URL-query-escaped on the wire and should be passed unescaped.
func (s *Session) WithCredential(name, value string) *Session {
	c := s.clone()
	c.credentials = setProperty(c.credentials, name, value)
	return c
}

func (s *Session) WithTimeZone(tz string) *Session {
	c := s.clone()
	c.timeZone = tz
	return c
}

// WithLocale sets the language tag sent as X-Trino-Language, e.g. "en-US".
func (s *Session) WithLocale(locale string) *Session {
	c := s.clone()
	c.locale = locale
	return c
}

// WithCompressionDisabled asks the server for uncompressed responses.
func (s *Session) WithCompressionDisabled(disabled bool) *Session {
	c := s.clone()
	c.compressionDisabled = disabled
	return c
}

func (s *Session) WithTraceToken(token string) *Session {
	c := s.clone()
	c.traceToken = token
	return c
}

func (s *Session) WithClientInfo(info string) *Session {
	c := s.clone()
	c.clientInfo = info
	return c
}

func setProperty(props []Property, name, value string) []Property {
	for i := range props {
		if props[i].Name == name {
			props[i].Value = value
			return props
		}
	}
	return append(props, Property{Name: name, Value: value})
}

func lookupProperty(props []Property, name string) (string, bool) {
	for _, p := range props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}
