// Package log provides a leveled, structured logger for the whole node,
// backed by zerolog. It must be initialized with Init before use.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// The possible log levels accepted by Init.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	logTestWriterName = "__testwriter__"
	invalidCharsHint  = "log line contains invalid characters"
)

var (
	log zerolog.Logger
	// logTestWriter can be set to replace the output of the special
	// logTestWriterName output, used by benchmarks.
	logTestWriter io.Writer = &testHookWriter{}
	// panicOnInvalidChars is used by tests to make the logger panic when a
	// log line carries non-printable garbage, which usually means binary
	// data logged without encoding.
	panicOnInvalidChars = strings.ToLower(os.Getenv("LOG_PANIC_ON_INVALIDCHARS")) == "true"
)

// testHookWriter checks the output for invalid characters before writing.
type testHookWriter struct {
	w io.Writer
}

func (t *testHookWriter) Write(p []byte) (int, error) {
	if panicOnInvalidChars {
		for _, b := range p {
			if b == 0xff {
				panic(invalidCharsHint + ": " + string(p))
			}
		}
	}
	if t.w == nil {
		return len(p), nil
	}
	return t.w.Write(p)
}

// Init initializes the global logger with the given level and output. Valid
// outputs are "stdout", "stderr", a file path, or the internal test writer.
// If errorOutput is not nil, a copy of every warning and error line is also
// written there.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	if output == logTestWriterName {
		out = logTestWriter
	} else {
		out = zerolog.ConsoleWriter{Out: &testHookWriter{w: output2raw(output)}, TimeFormat: time.RFC3339}
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, levelFilterWriter{w: errorOutput})
	}
	log = zerolog.New(out).With().Timestamp().Logger()
	switch level {
	case LogLevelDebug:
		log = log.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		log = log.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		log = log.Level(zerolog.WarnLevel)
	case LogLevelError:
		log = log.Level(zerolog.ErrorLevel)
	default:
		panic(fmt.Sprintf("invalid log level %q", level))
	}
	Infow("logger initialized", "level", level, "output", output)
}

func output2raw(output string) io.Writer {
	switch output {
	case "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	case logTestWriterName:
		return logTestWriter
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
	}
	return f
}

// levelFilterWriter forwards only warning-or-worse lines.
type levelFilterWriter struct {
	w io.Writer
}

func (l levelFilterWriter) Write(p []byte) (int, error) { return len(p), nil }

func (l levelFilterWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.WarnLevel {
		return l.w.Write(p)
	}
	return len(p), nil
}

// Level returns the level the global logger was initialized with.
func Level() string {
	switch log.GetLevel() {
	case zerolog.DebugLevel:
		return LogLevelDebug
	case zerolog.InfoLevel:
		return LogLevelInfo
	case zerolog.WarnLevel:
		return LogLevelWarn
	default:
		return LogLevelError
	}
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger { return &log }

func checkInvalidChars(s string) {
	if !panicOnInvalidChars {
		return
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0xff {
			panic(invalidCharsHint + ": " + s)
		}
	}
}

// Debug logs a debug message using the default formats for its operands.
func Debug(args ...any) { logMsg(log.Debug(), fmt.Sprint(args...)) }

// Info logs an informational message.
func Info(args ...any) { logMsg(log.Info(), fmt.Sprint(args...)) }

// Warn logs a warning message.
func Warn(args ...any) { logMsg(log.Warn(), fmt.Sprint(args...)) }

// Error logs an error message.
func Error(args ...any) { logMsg(log.Error(), fmt.Sprint(args...)) }

// Debugf formats according to a format specifier and logs at debug level.
func Debugf(format string, args ...any) { logMsg(log.Debug(), fmt.Sprintf(format, args...)) }

// Infof formats according to a format specifier and logs at info level.
func Infof(format string, args ...any) { logMsg(log.Info(), fmt.Sprintf(format, args...)) }

// Warnf formats according to a format specifier and logs at warn level.
func Warnf(format string, args ...any) { logMsg(log.Warn(), fmt.Sprintf(format, args...)) }

// Errorf formats according to a format specifier and logs at error level.
func Errorf(format string, args ...any) { logMsg(log.Error(), fmt.Sprintf(format, args...)) }

// Fatalf formats according to a format specifier, logs it and exits.
func Fatalf(format string, args ...any) {
	logMsg(log.Fatal(), fmt.Sprintf(format, args...))
}

// Debugw logs a message at debug level with structured key-value fields.
func Debugw(msg string, keysAndValues ...any) {
	logMsg(withFields(log.Debug(), keysAndValues), msg)
}

// Infow logs a message at info level with structured key-value fields.
func Infow(msg string, keysAndValues ...any) {
	logMsg(withFields(log.Info(), keysAndValues), msg)
}

// Warnw logs a message at warn level with structured key-value fields.
func Warnw(msg string, keysAndValues ...any) {
	logMsg(withFields(log.Warn(), keysAndValues), msg)
}

// Errorw logs an error with an accompanying message at error level.
func Errorw(err error, msg string) {
	logMsg(log.Error().Err(err), msg)
}

func withFields(ev *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	return ev
}

func logMsg(ev *zerolog.Event, msg string) {
	checkInvalidChars(msg)
	ev.Msg(msg)
}
