package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage connection profiles in ~/.trino/config.yaml",
		// profiles are read and written directly; skip root resolution so a
		// broken profile can still be repaired
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd.ErrOrStderr(), opts.logLevel)
		},
	}
	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigUseCmd(),
	)
	return cmd
}

func loadOrEmpty() (*UserConfig, error) {
	cfg, err := LoadUserConfig()
	if errors.Is(err, fs.ErrNotExist) {
		return &UserConfig{Profiles: map[string]Profile{}}, nil
	}
	return cfg, err
}

func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadOrEmpty()
			if err != nil {
				return err
			}
			if !reveal {
				for name, p := range cfg.Profiles {
					p.AccessToken = maskSecret(p.AccessToken)
					cfg.Profiles[name] = p
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", ConfigPath())
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print access tokens unmasked")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	var (
		p     Profile
		props []string
	)

	cmd := &cobra.Command{
		Use:   "set-profile NAME",
		Short: "Create or update a profile",
		Long: `Create or update a profile. Only the flags that are given are
written; other fields of an existing profile are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrEmpty()
			if err != nil {
				return err
			}
			name := args[0]
			existing := cfg.Profiles[name]
			flags := cmd.Flags()
			set := func(flag string, dst *string, v string) {
				if flags.Changed(flag) {
					*dst = v
				}
			}
			set("server", &existing.Server, p.Server)
			set("user", &existing.User, p.User)
			set("catalog", &existing.Catalog, p.Catalog)
			set("schema", &existing.Schema, p.Schema)
			set("source", &existing.Source, p.Source)
			set("output", &existing.Output, p.Output)
			set("timeout", &existing.Timeout, p.Timeout)
			set("access-token", &existing.AccessToken, p.AccessToken)
			if flags.Changed("presto") {
				existing.Presto = p.Presto
			}
			for _, prop := range props {
				k, v, ok := strings.Cut(prop, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid session property %q, expected name=value", prop)
				}
				if existing.Properties == nil {
					existing.Properties = map[string]string{}
				}
				existing.Properties[k] = v
			}

			cfg.Profiles[name] = existing
			if cfg.CurrentProfile == "" {
				cfg.CurrentProfile = name
			}
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, ConfigPath())
			return nil
		},
	}

	// Local flags shadow the root's persistent flags of the same name.
	f := cmd.Flags()
	f.StringVar(&p.Server, "server", "", "Coordinator URL")
	f.StringVar(&p.User, "user", "", "User name")
	f.StringVar(&p.Catalog, "catalog", "", "Default catalog")
	f.StringVar(&p.Schema, "schema", "", "Default schema")
	f.StringVar(&p.Source, "source", "", "Source name")
	f.StringVar(&p.Output, "output", "", "Output format")
	f.StringVar(&p.Timeout, "timeout", "", "Per-request timeout")
	f.StringVar(&p.AccessToken, "access-token", "", "OAuth2 bearer token")
	f.BoolVar(&p.Presto, "presto", false, "Send X-Presto-* headers")
	f.StringArrayVar(&props, "session", nil, "Session property name=value (repeatable)")
	return cmd
}

func newConfigUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile NAME",
		Short: "Make a profile the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrEmpty()
			if err != nil {
				return err
			}
			if _, ok := cfg.Profiles[args[0]]; !ok {
				return fmt.Errorf("profile %q not found (known: %s)", args[0],
					strings.Join(slices.Sorted(maps.Keys(cfg.Profiles)), ", "))
			}
			cfg.CurrentProfile = args[0]
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current profile is now %q\n", args[0])
			return nil
		},
	}
}

// maskSecret keeps the last four characters of long secrets.
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}
