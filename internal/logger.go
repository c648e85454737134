package internal

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// SecureLogger provides leveled logging with sensitive data redaction. The
// tool handles account cookies and share passcodes on nearly every request,
// so everything written through it is scrubbed first.
type SecureLogger struct {
	logger    *log.Logger
	level     LogLevel
	redactors []Redactor
}

// Redactor defines an interface for redacting sensitive information
type Redactor interface {
	Redact(input string) string
}

// CookieRedactor redacts account cookie material from strings.
type CookieRedactor struct{}

func (r *CookieRedactor) Redact(input string) string {
	patterns := []string{
		"BDUSS=",
		"STOKEN=",
		"BDCLND=",
		"Cookie:",
		"Set-Cookie:",
	}

	result := input
	for _, pattern := range patterns {
		result = redactAfter(result, pattern, func(c byte) bool {
			return c == ' ' || c == ';' || c == '\n' || c == '\r'
		})
	}
	return result
}

// PasscodeRedactor redacts share passwords carried in URLs and parameters.
type PasscodeRedactor struct{}

func (r *PasscodeRedactor) Redact(input string) string {
	params := []string{
		"pwd=",
		"passcode=",
		"stoken=",
		"randsk=",
	}

	result := input
	for _, param := range params {
		result = redactAfter(result, param, func(c byte) bool {
			return c == '&' || c == ' ' || c == '"' || c == '\n'
		})
	}
	return result
}

// redactAfter replaces everything between the first occurrence of pattern
// and the next boundary byte with a placeholder.
func redactAfter(input, pattern string, boundary func(byte) bool) string {
	lower := strings.ToLower(input)
	index := strings.Index(lower, strings.ToLower(pattern))
	if index == -1 {
		return input
	}

	start := index + len(pattern)
	end := start
	for end < len(input) && !boundary(input[end]) {
		end++
	}
	if end > start {
		return input[:start] + "[REDACTED]" + input[end:]
	}
	return input
}

// NewSecureLogger creates a new secure logger
func NewSecureLogger(output io.Writer, level LogLevel) *SecureLogger {
	return &SecureLogger{
		logger: log.New(output, "", 0),
		level:  level,
		redactors: []Redactor{
			&CookieRedactor{},
			&PasscodeRedactor{},
		},
	}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger(debug, quiet bool) *SecureLogger {
	level := LogLevelInfo
	if debug {
		level = LogLevelDebug
	}
	if quiet {
		level = LogLevelError
	}

	return NewSecureLogger(os.Stderr, level)
}

// redactSensitiveData applies all redactors to the input string
func (sl *SecureLogger) redactSensitiveData(input string) string {
	result := input
	for _, redactor := range sl.redactors {
		result = redactor.Redact(result)
	}
	return result
}

func (sl *SecureLogger) formatMessage(level LogLevel, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("[%s] %s %s", timestamp, level.String(), message)
}

func (sl *SecureLogger) log(level LogLevel, format string, args ...interface{}) {
	if level > sl.level {
		return
	}

	message := fmt.Sprintf(format, args...)
	message = sl.redactSensitiveData(message)
	sl.logger.Print(sl.formatMessage(level, message))
}

// Error logs an error message
func (sl *SecureLogger) Error(format string, args ...interface{}) {
	sl.log(LogLevelError, format, args...)
}

// Warn logs a warning message
func (sl *SecureLogger) Warn(format string, args ...interface{}) {
	sl.log(LogLevelWarn, format, args...)
}

// Info logs an info message
func (sl *SecureLogger) Info(format string, args ...interface{}) {
	sl.log(LogLevelInfo, format, args...)
}

// Debug logs a debug message
func (sl *SecureLogger) Debug(format string, args ...interface{}) {
	sl.log(LogLevelDebug, format, args...)
}

// SetLevel sets the logging level
func (sl *SecureLogger) SetLevel(level LogLevel) {
	sl.level = level
}

// AddRedactor adds a custom redactor
func (sl *SecureLogger) AddRedactor(redactor Redactor) {
	sl.redactors = append(sl.redactors, redactor)
}
