// Package cli implements the trino-cli command tree.
package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/ethanyzhang/trino-go"
	"github.com/ethanyzhang/trino-go/trinoauth/oauth2"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

const defaultServer = "http://localhost:8080"

// options holds the resolved global flags shared by every subcommand.
type options struct {
	server      string
	user        string
	catalog     string
	schema      string
	source      string
	output      string
	profile     string
	timeout     string
	accessToken string
	traceToken  string
	logLevel    string
	properties  []string
	presto      bool
	insecure    bool

	// set by resolve
	requestTimeout    time.Duration
	profileProperties map[string]string
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "trino-cli",
		Short:         "Run statements against a Trino or Presto coordinator",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(cmd.ErrOrStderr(), opts.logLevel); err != nil {
				return err
			}
			return opts.resolve(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.server, "server", defaultServer, "Coordinator URL (env: TRINO_SERVER)")
	pf.StringVarP(&opts.user, "user", "u", "", "User name (env: TRINO_USER)")
	pf.StringVarP(&opts.catalog, "catalog", "c", "", "Default catalog (env: TRINO_CATALOG)")
	pf.StringVarP(&opts.schema, "schema", "s", "", "Default schema (env: TRINO_SCHEMA)")
	pf.StringVar(&opts.source, "source", "trino-cli", "Source name reported to the server (env: TRINO_SOURCE)")
	pf.StringVarP(&opts.output, "output", "o", "", "Output format: table, json or csv (env: TRINO_OUTPUT)")
	pf.StringVarP(&opts.profile, "profile", "p", "", "Profile from ~/.trino/config.yaml (env: TRINO_PROFILE)")
	pf.StringVar(&opts.timeout, "timeout", "", "Per-request timeout, e.g. 30s or 1d (env: TRINO_TIMEOUT)")
	pf.StringVar(&opts.accessToken, "access-token", "", "OAuth2 bearer token (env: TRINO_ACCESS_TOKEN)")
	pf.StringVar(&opts.traceToken, "trace-token", "", "Trace token; a random one is generated when empty")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringArrayVar(&opts.properties, "session", nil, "Session property name=value (repeatable)")
	pf.BoolVar(&opts.presto, "presto", false, "Send X-Presto-* headers instead of X-Trino-*")
	pf.BoolVar(&opts.insecure, "insecure", false, "Skip TLS certificate verification")

	root.AddCommand(
		newQueryCmd(opts),
		newInfoCmd(opts),
		newQueryInfoCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// resolve applies flag > env > profile > default precedence.
func (o *options) resolve(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if !flags.Changed("profile") {
		o.profile = os.Getenv("TRINO_PROFILE")
	}

	var p Profile
	cfg, err := LoadUserConfig()
	switch {
	case err == nil:
		if p, err = cfg.ActiveProfile(o.profile); err != nil {
			return err
		}
	case errors.Is(err, fs.ErrNotExist):
		if o.profile != "" {
			return fmt.Errorf("profile %q not found", o.profile)
		}
	default:
		return err
	}

	pick := func(flag string, target *string, env, fromProfile string) {
		if flags.Changed(flag) {
			return
		}
		if v := os.Getenv(env); v != "" {
			*target = v
			return
		}
		if fromProfile != "" {
			*target = fromProfile
		}
	}
	pick("server", &o.server, "TRINO_SERVER", p.Server)
	pick("user", &o.user, "TRINO_USER", p.User)
	pick("catalog", &o.catalog, "TRINO_CATALOG", p.Catalog)
	pick("schema", &o.schema, "TRINO_SCHEMA", p.Schema)
	pick("source", &o.source, "TRINO_SOURCE", p.Source)
	pick("output", &o.output, "TRINO_OUTPUT", p.Output)
	pick("timeout", &o.timeout, "TRINO_TIMEOUT", p.Timeout)
	pick("access-token", &o.accessToken, "TRINO_ACCESS_TOKEN", p.AccessToken)
	if !flags.Changed("presto") && p.Presto {
		o.presto = true
	}
	o.profileProperties = p.Properties

	switch o.output {
	case "", formatTable, formatJSON, formatCSV:
	default:
		return fmt.Errorf("unsupported output format %q", o.output)
	}

	o.requestTimeout = 0
	if o.timeout != "" {
		d, err := str2duration.ParseDuration(o.timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", o.timeout, err)
		}
		o.requestTimeout = d
	}
	return nil
}

// session builds the session every request of this run shares.
func (o *options) session() (*trino.Session, error) {
	s, err := trino.NewSession(o.server)
	if err != nil {
		return nil, err
	}
	if o.user != "" {
		s = s.WithUser(o.user)
	}
	s = s.WithSource(o.source).
		WithCatalog(o.catalog).
		WithSchema(o.schema)

	for _, name := range slices.Sorted(maps.Keys(o.profileProperties)) {
		s = s.WithProperty(name, o.profileProperties[name])
	}
	for _, prop := range o.properties {
		name, value, ok := strings.Cut(prop, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid session property %q, expected name=value", prop)
		}
		s = s.WithProperty(name, value)
	}

	token := o.traceToken
	if token == "" {
		token = uuid.NewString()
	}
	return s.WithTraceToken(token), nil
}

func (o *options) client() *trino.Client {
	opts := []trino.ClientOption{trino.WithLogger(log.Logger)}
	if o.requestTimeout > 0 {
		opts = append(opts, trino.WithRequestTimeout(o.requestTimeout))
	}
	if o.presto {
		opts = append(opts, trino.WithPrestoHeaders())
	}
	if o.insecure {
		opts = append(opts, trino.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	}
	if o.accessToken != "" {
		opts = append(opts, trino.WithRequestOptions(oauth2.NewStaticTokenOption(o.accessToken)))
	}
	return trino.NewClient(opts...)
}
