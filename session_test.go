package trino

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s, err := NewSession("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", s.Server().String())
	assert.Equal(t, DefaultUser, s.User())
	assert.Equal(t, DefaultSource, s.Source())

	for _, bad := range []string{"://invalid", "ftp://host", "http://", "localhost:8080"} {
		_, err := NewSession(bad)
		assert.ErrorContains(t, err, "invalid server URL", bad)
	}
}

func TestSession_CopyOnWrite(t *testing.T) {
	base := newTestSession(t).
		WithCatalog("base").
		WithProperty("k", "v").
		WithClientTags("t1")

	child := base.
		WithCatalog("new").
		WithProperty("k", "v2").
		WithClientTags("t1", "t2").
		WithCredential("token", "abc")

	// Parent should remain untouched
	assert.Equal(t, "base", base.Catalog())
	v, _ := base.Property("k")
	assert.Equal(t, "v", v)
	assert.Equal(t, []string{"t1"}, base.ClientTags())
	_, ok := base.Credential("token")
	assert.False(t, ok)

	// Child should have new state
	assert.Equal(t, "new", child.Catalog())
	v, _ = child.Property("k")
	assert.Equal(t, "v2", v)
	assert.Equal(t, []string{"t1", "t2"}, child.ClientTags())
	c, ok := child.Credential("token")
	assert.True(t, ok)
	assert.Equal(t, "abc", c)

	// Returned slices are copies
	child.ClientTags()[0] = "mutated"
	assert.Equal(t, "t1", child.ClientTags()[0])
}

func TestSession_PropertyOrder(t *testing.T) {
	s := newTestSession(t).
		WithProperty("b", "1").
		WithProperty("a", "2").
		WithProperty("b", "3").
		WithProperty("c", "4").
		WithoutProperty("a")

	assert.Equal(t, []Property{{"b", "3"}, {"c", "4"}}, s.Properties())
	assert.Equal(t, "b=3", s.Properties()[0].String())
}

func TestSession_Defaults(t *testing.T) {
	s := newTestSession(t).WithUser("alice").WithSource("etl")
	assert.Equal(t, "alice", s.User())
	assert.Equal(t, "etl", s.Source())

	reset := s.WithUser("").WithSource("")
	assert.Equal(t, DefaultUser, reset.User())
	assert.Equal(t, DefaultSource, reset.Source())
}

func TestSession_ClientTagsDeduplicated(t *testing.T) {
	s := newTestSession(t).WithClientTags("a", " b ", "", "a")
	assert.Equal(t, []string{"a", "b"}, s.ClientTags())
}

func TestSession_WithServer(t *testing.T) {
	s := newTestSession(t).WithCatalog("hive")
	moved, err := s.WithServer("https://other:8443/base")
	require.NoError(t, err)
	assert.Equal(t, "https://other:8443/base/", moved.Server().String())
	assert.Equal(t, "hive", moved.Catalog())
	assert.Equal(t, "http://coordinator:8080/", s.Server().String())

	_, err = s.WithServer("nope")
	assert.Error(t, err)
}

func TestSession_ScalarSetters(t *testing.T) {
	s := newTestSession(t).
		WithSchema("default").
		WithTimeZone("UTC").
		WithLocale("en-US").
		WithCompressionDisabled(true).
		WithTraceToken("trace-1").
		WithClientInfo("info")

	assert.Equal(t, "default", s.Schema())
	assert.Equal(t, "UTC", s.TimeZone())
	assert.Equal(t, "en-US", s.Locale())
	assert.True(t, s.CompressionDisabled())
	assert.Equal(t, "trace-1", s.TraceToken())
	assert.Equal(t, "info", s.ClientInfo())
	assert.Empty(t, s.Credentials())
}
