// Package logger provides structured logging with per-order context
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the logging abstraction used across the engine.
type Logger interface {
	Info(message string, fields ...Field)
	Error(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Debug(message string, fields ...Field)
	Success(message string, fields ...Field)
	WithOrder(orderID int64) Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// OrderLogger implements Logger with order awareness
type OrderLogger struct {
	logger  *logrus.Logger
	orderID int64
}

// ConsoleFormatter formats log lines with colors and a level tag.
type ConsoleFormatter struct {
	TimestampFormat string
	DisableColors   bool
}

// Format implements logrus.Formatter
func (f *ConsoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	var levelColor *color.Color
	var levelText string

	switch entry.Level {
	case logrus.ErrorLevel:
		levelColor = color.New(color.FgRed, color.Bold)
		levelText = "ERROR"
	case logrus.WarnLevel:
		levelColor = color.New(color.FgYellow, color.Bold)
		levelText = "WARN"
	case logrus.InfoLevel:
		levelColor = color.New(color.FgCyan)
		levelText = "INFO"
	case logrus.DebugLevel:
		levelColor = color.New(color.FgWhite, color.Faint)
		levelText = "DEBUG"
	default:
		levelColor = color.New(color.FgGreen)
		levelText = "SUCCESS"
	}

	// Order prefix, pulled out of the field map so it leads the line.
	orderPrefix := ""
	if orderID, ok := entry.Data["order"]; ok {
		orderPrefix = fmt.Sprintf("[order %s] ", color.New(color.FgBlue).Sprint(orderID))
		delete(entry.Data, "order")
	}

	var output string
	if f.DisableColors {
		output = fmt.Sprintf("🍜 [%s] %s: %s%s", timestamp, levelText, orderPrefix, entry.Message)
	} else {
		output = fmt.Sprintf("🍜 [%s] %s: %s%s",
			timestamp,
			levelColor.Sprint(levelText),
			orderPrefix,
			entry.Message,
		)
	}

	if len(entry.Data) > 0 {
		fields := " {"
		first := true
		for k, v := range entry.Data {
			if !first {
				fields += ", "
			}
			fields += fmt.Sprintf("%s=%v", k, v)
			first = false
		}
		fields += "}"
		output += color.New(color.FgWhite, color.Faint).Sprint(fields)
	}

	return []byte(output + "\n"), nil
}

// CreateLogger creates a new logger instance
func CreateLogger(logFile string, logLevel string) Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&ConsoleFormatter{
		TimestampFormat: time.TimeOnly,
		DisableColors:   false,
	})

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err == nil {
			log.SetOutput(io.MultiWriter(os.Stdout, file))
		}
	}

	return &OrderLogger{logger: log}
}

// CreateLoggerWithOutput creates a logger with custom output (for testing)
func CreateLoggerWithOutput(logLevel string, output io.Writer) Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&ConsoleFormatter{
		TimestampFormat: time.TimeOnly,
		DisableColors:   true,
	})
	log.SetOutput(output)

	return &OrderLogger{logger: log}
}

// WithOrder creates a new logger scoped to an order
func (l *OrderLogger) WithOrder(orderID int64) Logger {
	return &OrderLogger{
		logger:  l.logger,
		orderID: orderID,
	}
}

// convertFields converts Field slice to logrus.Fields
func (l *OrderLogger) convertFields(fields []Field) logrus.Fields {
	result := make(logrus.Fields)
	if l.orderID != 0 {
		result["order"] = l.orderID
	}
	for _, f := range fields {
		result[f.Key] = f.Value
	}
	return result
}

// Info logs an info message
func (l *OrderLogger) Info(message string, fields ...Field) {
	l.logger.WithFields(l.convertFields(fields)).Info(message)
}

// Error logs an error message
func (l *OrderLogger) Error(message string, fields ...Field) {
	l.logger.WithFields(l.convertFields(fields)).Error(message)
}

// Warn logs a warning message
func (l *OrderLogger) Warn(message string, fields ...Field) {
	l.logger.WithFields(l.convertFields(fields)).Warn(message)
}

// Debug logs a debug message
func (l *OrderLogger) Debug(message string, fields ...Field) {
	l.logger.WithFields(l.convertFields(fields)).Debug(message)
}

// Success logs a success message at info level
func (l *OrderLogger) Success(message string, fields ...Field) {
	f := l.convertFields(fields)
	f["success"] = true
	l.logger.WithFields(f).Info(message)
}
