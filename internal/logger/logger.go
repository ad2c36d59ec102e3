package logger

import (
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	base *zap.Logger // log without the "component" field
	once sync.Once
)

// runLogFileMaxSizeMB, runLogFileMaxBackups and runLogFileMaxAge are tuned
// for a one-shot compile run rather than a long-lived import daemon: a
// single osm.pbf -> archive conversion produces one log file's worth of
// output and exits, so there is no need for the deep backlog a continuously
// running service would keep.
const (
	runLogFileMaxSizeMB  = 20
	runLogFileMaxBackups = 3
	runLogFileMaxAge     = 7
)

// Init initializes the global logger with console output only.
func Init(verbose bool) {
	once.Do(func() {
		initLogger(verbose, "")
	})
}

// InitWithFile initializes the global logger with both console and file output.
func InitWithFile(verbose bool, logFile string) {
	once.Do(func() {
		initLogger(verbose, logFile)
	})
}

// initLogger builds the global logger: a console core always present, plus
// a rotating JSON file core when logFile is set. Every entry carries a
// "component" field set to "compiler" by default; Named returns a logger
// that overrides it, so log lines from the node/way/relation stages can be
// told apart from the top-level pipeline's own entries.
func initLogger(verbose bool, logFile string) {
	var level zapcore.Level
	var encoderConfig zapcore.EncoderConfig

	if verbose {
		level = zapcore.DebugLevel
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		level = zapcore.InfoLevel
		encoderConfig = zap.NewProductionEncoderConfig()
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if logFile != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    runLogFileMaxSizeMB,
				MaxBackups: runLogFileMaxBackups,
				MaxAge:     runLogFileMaxAge,
			}),
			level,
		)
		cores = append(cores, fileCore)
	}

	base = zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	log = base.With(zap.String("component", "compiler"))
}

// Get returns the global logger.
func Get() *zap.Logger {
	if log == nil {
		Init(false)
	}
	return log
}

// Named returns the global logger with its "component" field overridden to
// name, for a stage or subsystem that wants its own log lines distinguishable
// from the top-level pipeline's (e.g. "nodes", "ways", "relations", "metrics").
func Named(name string) *zap.Logger {
	Get()
	return base.With(zap.String("component", name))
}

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		log.Sync()
	}
}
