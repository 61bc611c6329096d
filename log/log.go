package log

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// LogWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type LogWriter struct{}

func (LogWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if LogRotator != nil {
		LogRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all
// subsystem loggers created from it will write to the backend.  When adding
// new subsystems, add the subsystem logger variable here and to the
// SubsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by
// calling InitLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.
	backendLog = btclog.NewBackend(LogWriter{})

	// LogRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	LogRotator *rotator.Rotator

	OrddLog = backendLog.Logger("ORDD")
	BcdbLog = backendLog.Logger("BCDB")
	ChanLog = backendLog.Logger("CHAN")
	FeesLog = backendLog.Logger("FEES")
	RpccLog = backendLog.Logger("RPCC")
	RpcsLog = backendLog.Logger("RPCS")
	SrvrLog = backendLog.Logger("SRVR")
	TxmpLog = backendLog.Logger("TXMP")
)

// SubsystemLoggers maps each subsystem identifier to its associated logger.
var SubsystemLoggers = map[string]btclog.Logger{
	"ORDD": OrddLog,
	"BCDB": BcdbLog,
	"CHAN": ChanLog,
	"FEES": FeesLog,
	"RPCC": RpccLog,
	"RPCS": RpcsLog,
	"SRVR": SrvrLog,
	"TXMP": TxmpLog,
}

// InitLogRotator initializes the logging rotator to write logs to logFile
// and create roll files in the same directory.  It must be called before the
// package-global log rotator variables are used.
func InitLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}

	LogRotator = r
}

// SetLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := SubsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) {
	// Configure all sub-systems with the new logging level.
	for subsystemID := range SubsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// ValidLogLevel returns whether or not logLevel is a valid debug log level.
func ValidLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}
