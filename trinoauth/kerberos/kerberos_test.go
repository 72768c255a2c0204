package kerberos

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing keytab",
			cfg:     Config{Principal: "user@REALM", ConfigPath: "/etc/krb5.conf"},
			wantErr: "KeytabPath is required",
		},
		{
			name:    "missing principal",
			cfg:     Config{KeytabPath: "/etc/trino.keytab", Realm: "REALM", ConfigPath: "/etc/krb5.conf"},
			wantErr: "Principal is required",
		},
		{
			name:    "missing realm",
			cfg:     Config{KeytabPath: "/etc/trino.keytab", Principal: "user", ConfigPath: "/etc/krb5.conf"},
			wantErr: "Realm is required",
		},
		{
			name:    "missing config path",
			cfg:     Config{KeytabPath: "/etc/trino.keytab", Principal: "user", Realm: "REALM"},
			wantErr: "ConfigPath is required",
		},
		{
			name: "realm from principal",
			cfg:  Config{KeytabPath: "/etc/trino.keytab", Principal: "user@REALM", ConfigPath: "/etc/krb5.conf"},
		},
		{
			name: "all fields present",
			cfg: Config{
				KeytabPath: "/etc/trino.keytab",
				Principal:  "user",
				Realm:      "REALM",
				ConfigPath: "/etc/krb5.conf",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SplitPrincipal(t *testing.T) {
	user, realm := (&Config{Principal: "svc/etl@CORP.EXAMPLE.COM", Realm: "OTHER"}).splitPrincipal()
	assert.Equal(t, "svc/etl", user)
	assert.Equal(t, "CORP.EXAMPLE.COM", realm)

	user, realm = (&Config{Principal: "etl", Realm: "OTHER"}).splitPrincipal()
	assert.Equal(t, "etl", user)
	assert.Equal(t, "OTHER", realm)
}

func TestConfig_SPN(t *testing.T) {
	assert.Equal(t, "HTTP/coordinator.example.com", (&Config{}).spn("coordinator.example.com"))
	assert.Equal(t, "HTTP/trino@REALM", (&Config{ServiceSPN: "HTTP/trino@REALM"}).spn("ignored"))
}

func TestParseDSN(t *testing.T) {
	t.Run("extracts and strips kerberos params", func(t *testing.T) {
		dsn := "trino://host:8080/catalog/schema?kerberos_keytab=/etc/trino.keytab&kerberos_principal=user@REALM" +
			"&kerberos_realm=REALM&kerberos_config=/etc/krb5.conf&kerberos_service_spn=HTTP/trino.example.com&timezone=UTC"

		cfg, cleanDSN, err := parseDSN(dsn)
		require.NoError(t, err)

		assert.Equal(t, &Config{
			KeytabPath: "/etc/trino.keytab",
			Principal:  "user@REALM",
			Realm:      "REALM",
			ConfigPath: "/etc/krb5.conf",
			ServiceSPN: "HTTP/trino.example.com",
		}, cfg)
		assert.Equal(t, "trino://host:8080/catalog/schema?timezone=UTC", cleanDSN)
	})

	t.Run("empty kerberos params", func(t *testing.T) {
		cfg, cleanDSN, err := parseDSN("trino://host:8080/catalog/schema?timezone=UTC")
		require.NoError(t, err)
		assert.Empty(t, cfg.KeytabPath)
		assert.Empty(t, cfg.Principal)
		assert.Contains(t, cleanDSN, "timezone=UTC")
	})

	t.Run("invalid DSN", func(t *testing.T) {
		_, _, err := parseDSN("://bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kerberos: invalid DSN")
	})
}

func TestNewRequestOption_MissingConfig(t *testing.T) {
	_, _, err := NewRequestOption(Config{Principal: "user@REALM", ConfigPath: "/etc/krb5.conf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KeytabPath is required")
}

func TestNewRequestOption_BadKeytab(t *testing.T) {
	_, _, err := NewRequestOption(Config{
		KeytabPath: "/nonexistent/trino.keytab",
		Principal:  "user@REALM",
		ConfigPath: "/etc/krb5.conf",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load keytab")
}

func TestNewRequestOption_CorruptKeytab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.keytab")
	require.NoError(t, os.WriteFile(path, []byte("not a keytab"), 0o600))

	_, _, err := NewRequestOption(Config{KeytabPath: path, Principal: "user@REALM", ConfigPath: "/etc/krb5.conf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load keytab")
}

func TestNewConnector_ValidationError(t *testing.T) {
	dsn := "trino://host:8080/catalog/schema?kerberos_keytab=&kerberos_principal=user@REALM&kerberos_config=/etc/krb5.conf"

	_, _, err := NewConnector(dsn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KeytabPath is required")
}
