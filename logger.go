package dataset_go

import (
	"fmt"
	"log"
	"os"
)

// LogLevel Severity of a log message
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String Returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger Interface for logging within dataset composition and loading.
// Logging is optional: NoOpLogger is used when nothing is provided.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NoOpLogger Discards all messages
type NoOpLogger struct{}

// Debug Discards debug message
func (NoOpLogger) Debug(format string, args ...interface{}) {}

// Info Discards info message
func (NoOpLogger) Info(format string, args ...interface{}) {}

// Warn Discards warning message
func (NoOpLogger) Warn(format string, args ...interface{}) {}

// Error Discards error message
func (NoOpLogger) Error(format string, args ...interface{}) {}

// SimpleLogger Writes Debug and Info messages to stdout, Warn and Error messages to stderr.
//
// MinLevel - messages below this level are discarded
//
type SimpleLogger struct {
	MinLevel     LogLevel
	StdoutLogger *log.Logger
	StderrLogger *log.Logger
}

// NewSimpleLogger Returns SimpleLogger with standard log formatting (timestamps)
func NewSimpleLogger(minLevel LogLevel) *SimpleLogger {
	return &SimpleLogger{
		MinLevel:     minLevel,
		StdoutLogger: log.New(os.Stdout, "", log.LstdFlags),
		StderrLogger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Log Writes message with provided level
func (s *SimpleLogger) Log(level LogLevel, format string, args ...interface{}) {
	if level < s.MinLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LogLevelDebug, LogLevelInfo:
		s.StdoutLogger.Printf("[%s] %s", level, msg)
	default:
		s.StderrLogger.Printf("[%s] %s", level, msg)
	}
}

// Debug Writes debug message, see Log
func (s *SimpleLogger) Debug(format string, args ...interface{}) {
	s.Log(LogLevelDebug, format, args...)
}

// Info Writes info message, see Log
func (s *SimpleLogger) Info(format string, args ...interface{}) {
	s.Log(LogLevelInfo, format, args...)
}

// Warn Writes warning message, see Log
func (s *SimpleLogger) Warn(format string, args ...interface{}) {
	s.Log(LogLevelWarn, format, args...)
}

// Error Writes error message, see Log
func (s *SimpleLogger) Error(format string, args ...interface{}) {
	s.Log(LogLevelError, format, args...)
}

func loggerOrNoop(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}
