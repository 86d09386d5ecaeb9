// Package obs provides the component-tagged structured logging used
// throughout the L1/L2 stack.
package obs

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Component identifies a subsystem for log filtering.
type Component string

// L2 stack component identifiers.
const (
	ComponentL1       Component = "l1"
	ComponentSender   Component = "l2.sender"
	ComponentReceiver Component = "l2.receiver"
	ComponentEngine   Component = "l2.engine"
	ComponentConfig   Component = "config"
	ComponentPeer     Component = "peer"
)

var (
	// defaultLogger is the process-wide logger used by the stack.
	defaultLogger zerolog.Logger

	// logMutex protects logger configuration.
	logMutex sync.RWMutex
)

func init() {
	defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
}

// SetLogLevel sets the minimum log level for all stack logging.
func SetLogLevel(level zerolog.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	defaultLogger = defaultLogger.Level(level)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() zerolog.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return defaultLogger.GetLevel()
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger zerolog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	defaultLogger = logger
}

// SetOutput redirects the default logger's JSON output to w, discarding
// the console formatting used by the process default.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	defaultLogger = zerolog.New(w).Level(defaultLogger.GetLevel()).With().Timestamp().Logger()
}

func current() zerolog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return defaultLogger
}

// LogDebug logs a debug message tagged with component.
func LogDebug(component Component, msg string, kv ...any) {
	withFields(current().Debug(), component, kv).Msg(msg)
}

// LogInfo logs an info message tagged with component.
func LogInfo(component Component, msg string, kv ...any) {
	withFields(current().Info(), component, kv).Msg(msg)
}

// LogWarn logs a warning message tagged with component.
func LogWarn(component Component, msg string, kv ...any) {
	withFields(current().Warn(), component, kv).Msg(msg)
}

// LogError logs an error message tagged with component.
func LogError(component Component, msg string, kv ...any) {
	withFields(current().Error(), component, kv).Msg(msg)
}

// withFields attaches component plus a flat key/value tail (mirroring the
// slog-style `"key", value, "key", value` calling convention) to an
// in-flight zerolog event.
func withFields(ev *zerolog.Event, component Component, kv []any) *zerolog.Event {
	ev = ev.Str("component", string(component))
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		if key == "" {
			key = "field"
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
