package logging

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Logger provides leveled console logging with redaction support
type Logger struct {
	debug bool
	quiet bool
	out   io.Writer
	mu    sync.Mutex

	info  *color.Color
	warn  *color.Color
	error *color.Color
	trace *color.Color
}

// New creates a new logger instance writing to stderr
func New(debug, noColor bool) *Logger {
	l := &Logger{
		debug: debug,
		out:   os.Stderr,
		info:  color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		error: color.New(color.FgRed),
		trace: color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range []*color.Color{l.info, l.warn, l.error, l.trace} {
			c.DisableColor()
		}
	}
	return l
}

// SetOutput redirects log output, mainly for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetQuiet suppresses everything except errors.
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiet = quiet
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	l.write(l.info.Sprint("✓"), format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	l.write(l.warn.Sprint("⚠"), format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(l.error.Sprint("✗"), format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.write(l.trace.Sprint("[DEBUG]"), format, args...)
}

func (l *Logger) write(prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s\n", prefix, msg)
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}

var connectionSecretPattern = regexp.MustCompile(`(?i)(Secret=)[^;]*`)

// RedactConnectionString hides the Secret part of an App Configuration
// connection string embedded anywhere in s.
func RedactConnectionString(s string) string {
	return connectionSecretPattern.ReplaceAllString(s, "${1}[REDACTED]")
}
