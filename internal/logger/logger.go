package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Field names shared by every component that logs about plans and sessions.
const (
	FieldSession = "session_id"
	FieldRequest = "request_id"
)

// Logger is the process-wide JSON logger.
var Logger = newLogger(os.Stdout, os.Getenv("LOG_LEVEL"))

func newLogger(w io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	l.SetLevel(parseLevel(level))
	return l
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	}
	return logrus.InfoLevel
}

// SetLevel applies a textual level; unknown values fall back to info.
func SetLevel(level string) { Logger.SetLevel(parseLevel(level)) }

// SetOutput redirects log output, mostly for tests and the CLI.
func SetOutput(w io.Writer) { Logger.SetOutput(w) }

func WithFields(fields logrus.Fields) *logrus.Entry { return Logger.WithFields(fields) }

func WithField(key string, value interface{}) *logrus.Entry { return Logger.WithField(key, value) }

func WithError(err error) *logrus.Entry { return Logger.WithError(err) }

// ForSession scopes an entry to one planning session.
func ForSession(id string) *logrus.Entry { return Logger.WithField(FieldSession, id) }

// ForRequest scopes an entry to one plan generation.
func ForRequest(id string) *logrus.Entry { return Logger.WithField(FieldRequest, id) }

func Info(msg string) { Logger.Info(msg) }

func Error(msg string) { Logger.Error(msg) }

func Debug(msg string) { Logger.Debug(msg) }

func Warn(msg string) { Logger.Warn(msg) }
