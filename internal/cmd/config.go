package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/Iron-Ham/mediaidle/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View mediaidle configuration",
		Long: `View mediaidle configuration.

Without arguments, displays the effective configuration after applying the
config file, MEDIAIDLE_* environment variables, and flags.`,
		Args: cobra.NoArgs,
		RunE: a.runConfigShow,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE:  a.runConfigShow,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			fmt.Fprintln(cmd.OutOrStdout(), configPath(a))
			return nil
		},
	})

	return configCmd
}

// configPath is the file in use, or the default location when none was
// found.
func configPath(a *app) string {
	if used := a.v.ConfigFileUsed(); used != "" {
		return used
	}
	return config.ConfigFile()
}

func (a *app) runConfigShow(cmd *cobra.Command, args []string) error {
	defer a.close()
	writeConfig(cmd.OutOrStdout(), a.cfg, a.v.ConfigFileUsed())
	return nil
}

func writeConfig(w io.Writer, cfg *config.Config, file string) {
	if file != "" {
		fmt.Fprintf(w, "Config file: %s\n", file)
	} else {
		fmt.Fprintf(w, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "helper:")
	fmt.Fprintf(w, "  program: %s\n", cfg.Helper.Program)
	fmt.Fprintf(w, "  grace_period: %s\n", cfg.Helper.GracePeriod)

	fmt.Fprintln(w, "provider:")
	fmt.Fprintf(w, "  command: %s\n", cfg.Provider.Command)
	fmt.Fprintf(w, "  args: [%s]\n", strings.Join(cfg.Provider.Args, ", "))
	fmt.Fprintf(w, "  connect_timeout: %s\n", cfg.Provider.ConnectTimeout)

	fmt.Fprintln(w, "logging:")
	fmt.Fprintf(w, "  level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		fmt.Fprintf(w, "  file: %s\n", cfg.Logging.File)
	} else {
		fmt.Fprintf(w, "  file: (stderr)\n")
	}
	fmt.Fprintf(w, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(w, "  max_backups: %d\n", cfg.Logging.MaxBackups)
}
