// Package cmd implements the mediaidle command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Iron-Ham/mediaidle/internal/config"
	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Build-time variables (set via ldflags).
var (
	Version = "dev"
	Commit  = "unknown"
)

// app carries state shared by the commands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *logging.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "mediaidle [flags] <interval> [-- <helper args>...]",
		Short: "Keep the idle helper stopped while media plays",
		Long: `mediaidle watches the PipeWire stream graph and gates an idle helper
such as swayidle. While any audio or video stream is actively flowing the
helper is kept stopped; once nothing flows it is started again.

<interval> is the evaluation period in whole seconds. Arguments after "--"
are passed verbatim to the helper, which is always launched as
"<helper> <args>...".

Example:
  mediaidle 2 -- timeout 300 'swaylock -f'`,
		Args:              validateInvocation,
		PersistentPreRunE: a.initialize,
		RunE:              a.runDaemon,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           Version,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/mediaidle/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	flags.String("helper", "", "helper program launched while idle (default swayidle)")
	flags.Duration("grace-period", 0, "wait this long after SIGTERM before killing the helper")
	flags.Duration("connect-timeout", 0, "how long to wait for the initial PipeWire graph")

	bindings := map[string]string{
		"logging.level":            "log-level",
		"logging.file":             "log-file",
		"helper.program":           "helper",
		"helper.grace_period":      "grace-period",
		"provider.connect_timeout": "connect-timeout",
	}
	for key, flag := range bindings {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newProbeCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the command line and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		reportError(root, os.Stderr, err)
	}
	return errors.ExitCode(err)
}

// reportError prints err, plus the usage text when the command line itself
// was wrong.
func reportError(root *cobra.Command, w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if errors.Is(err, errors.ErrUsage) {
		fmt.Fprintln(w)
		fmt.Fprint(w, root.UsageString())
	}
}

// initialize loads configuration and sets up logging. It runs before every
// command.
func (a *app) initialize(cmd *cobra.Command, args []string) error {
	config.SetDefaults(a.v)

	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(config.ConfigDir())
	}

	a.v.SetEnvPrefix("MEDIAIDLE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., MEDIAIDLE_HELPER_PROGRAM for helper.program
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config must exist; the default location is optional.
		if a.configFile != "" || !errors.As(err, &notFound) {
			return errors.NewUsageError("config", err.Error())
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}
	a.logger = logger
	return nil
}

// close releases resources opened by initialize.
func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}
