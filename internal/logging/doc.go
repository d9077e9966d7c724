// Package logging provides structured logging for mediaidle.
//
// It wraps Go's log/slog to produce JSON-formatted records with persistent
// context attributes (component, helper pid, ...) and a level that can be
// changed while the daemon runs, so a config reload can turn on debug output
// without a restart.
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Options{Level: "info"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	sup := logger.WithComponent("supervisor")
//	sup.Info("helper started", "pid", 1234)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"helper started","component":"supervisor","pid":1234}
//
// # Log Files
//
// When Options.File is set, records go to that file through a
// [RotatingWriter] which renames the file to file.1, file.2, ... once it
// grows past Rotation.MaxSizeMB, keeping Rotation.MaxBackups old files.
// Without a file, records go to stderr.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWithWriter] to capture it.
//
// # Log Levels
//
// Four levels are supported: [LevelDebug], [LevelInfo], [LevelWarn] and
// [LevelError]. [ParseLevel] normalizes user input, falling back to
// [LevelInfo].
package logging
