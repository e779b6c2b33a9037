package brewy

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the leveled, structured logger contract used across the package.
type Logger = glog.Logger

// LoggerProvider hands out named loggers so components can scope their output.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// ResolveLogger resolves the effective (provider, logger) pair for a component.
// A provider wins over a bare logger; a bare logger is wrapped into a provider
// so downstream components can keep requesting scoped loggers.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if resolved := provider.GetLogger(name); resolved != nil {
			return provider, resolved
		}
	}

	if logger == nil {
		logger = defaultLogger()
	}

	return glog.ProviderFromLogger(logger), logger
}

func defaultLogger() Logger {
	return stdLogger{scope: "brewy"}
}

// stdLogger is the zero-configuration fallback. Real deployments inject a
// glog.BaseLogger through WithLoggerProvider.
type stdLogger struct {
	scope string
}

func (l stdLogger) log(level, message string, args ...any) {
	line := fmt.Sprintf("[%s] %s %s", level, l.scope, message)
	for i := 0; i+1 < len(args); i += 2 {
		line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	fmt.Fprintln(os.Stderr, line)
}

func (l stdLogger) Trace(message string, args ...any) { l.log("TRC", message, args...) }
func (l stdLogger) Debug(message string, args ...any) { l.log("DBG", message, args...) }
func (l stdLogger) Info(message string, args ...any)  { l.log("INF", message, args...) }
func (l stdLogger) Warn(message string, args ...any)  { l.log("WRN", message, args...) }
func (l stdLogger) Error(message string, args ...any) { l.log("ERR", message, args...) }
func (l stdLogger) Fatal(message string, args ...any) {
	l.log("FTL", message, args...)
	os.Exit(1)
}

func (l stdLogger) WithContext(context.Context) Logger { return l }
