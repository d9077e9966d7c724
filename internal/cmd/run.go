package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/mediaidle/internal/config"
	"github.com/Iron-Ham/mediaidle/internal/daemon"
	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/graph/pwdump"
	"github.com/Iron-Ham/mediaidle/internal/helper"
	"github.com/Iron-Ham/mediaidle/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// invocation is the parsed positional part of the command line.
type invocation struct {
	Interval   time.Duration
	HelperArgs []string
}

func validateInvocation(cmd *cobra.Command, args []string) error {
	_, err := parseInvocation(args, cmd.ArgsLenAtDash())
	return err
}

// parseInvocation splits args into the interval and the helper arguments.
// dash is the number of args that came before "--", or -1 if there was
// none.
func parseInvocation(args []string, dash int) (invocation, error) {
	positional := args
	var helperArgs []string
	if dash >= 0 {
		positional = args[:dash]
		helperArgs = args[dash:]
	}

	switch {
	case len(positional) == 0:
		return invocation{}, errors.NewUsageError("interval", "missing required argument")
	case len(positional) > 1:
		return invocation{}, errors.NewUsageError("", fmt.Sprintf(
			"unexpected arguments %q before \"--\"; they are rejected rather than ignored, "+
				"pass helper arguments after \"--\" (e.g. %s -- %s)",
			positional[1:], positional[0], strings.Join(positional[1:], " ")))
	}

	secs, err := strconv.ParseInt(positional[0], 10, 64)
	if err != nil {
		return invocation{}, errors.NewUsageError("interval",
			fmt.Sprintf("%q is not a whole number of seconds", positional[0]))
	}
	if secs <= 0 {
		return invocation{}, errors.NewUsageError("interval",
			fmt.Sprintf("must be positive, got %d", secs))
	}
	// Guard against overflowing time.Duration.
	if secs > int64((1<<63-1)/time.Second) {
		return invocation{}, errors.NewUsageError("interval", fmt.Sprintf("%d seconds is too long", secs))
	}

	return invocation{
		Interval:   time.Duration(secs) * time.Second,
		HelperArgs: append([]string(nil), helperArgs...),
	}, nil
}

// helperArgv returns the argument vector the helper is launched with.
func helperArgv(program string, args []string) []string {
	return append([]string{program}, args...)
}

func (a *app) runDaemon(cmd *cobra.Command, args []string) error {
	defer a.close()

	inv, err := parseInvocation(args, cmd.ArgsLenAtDash())
	if err != nil {
		return err
	}

	logger := a.logger.WithComponent("daemon")
	argv := helperArgv(a.cfg.Helper.Program, inv.HelperArgs)

	supervisor := helper.NewSupervisor(argv,
		helper.NewExecLauncher(a.cfg.Helper.GracePeriod),
		a.logger.WithComponent("helper"))

	providerCfg := a.cfg.Provider
	providerLogger := a.logger.WithComponent("provider")
	newProvider := func() daemon.Provider {
		return pwdump.New(pwdump.Options{
			Command: providerCfg.Command,
			Args:    providerCfg.Args,
			Logger:  providerLogger,
		})
	}

	d, err := daemon.New(daemon.Options{
		Interval:       inv.Interval,
		ConnectTimeout: a.cfg.Provider.ConnectTimeout,
		Logger:         logger,
	}, newProvider, supervisor)
	if err != nil {
		return err
	}

	a.watchConfig()

	logger.Info("starting",
		"version", Version,
		"interval", inv.Interval.String(),
		"helper", argv,
		"provider", providerCfg.Command)

	if err := d.Run(cmd.Context()); err != nil {
		logger.Error("stopped", "error", err.Error())
		return err
	}
	logger.Info("stopped")
	return nil
}

// watchConfig applies log level changes from the config file while the
// daemon runs. Other settings take effect on the next start.
func (a *app) watchConfig() {
	if a.v.ConfigFileUsed() == "" {
		return
	}

	logger := a.logger.WithComponent("config")
	a.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := config.Load(a.v)
		if err != nil {
			logger.Warn("ignoring invalid config change", "file", e.Name, "error", err.Error())
			return
		}
		if level := logging.ParseLevel(cfg.Logging.Level); level != a.logger.Level() {
			a.logger.SetLevel(level)
			logger.Info("log level changed", "level", a.logger.Level(), "op", e.Op.String())
		}
	})
	a.v.WatchConfig()
}
