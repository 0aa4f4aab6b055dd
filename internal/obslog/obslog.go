// Package obslog wraps logrus with the run_id/session_id/node_id field
// set every ambient diagnostic in this module wants attached, the same
// way emit.Event carries RunID/NodeID on every record.
package obslog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// base is the process-wide logger every Logger wraps. Configure once at
// startup via Configure; defaults to text output at info level.
var base = logrus.New()

// Config selects the base logger's level and output format.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "text"
}

// Configure applies cfg to the package-wide base logger.
func Configure(cfg Config) {
	switch cfg.Level {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "warn":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	base.SetOutput(os.Stderr)
}

// Logger is a field-carrying wrapper over the base logrus.Logger. Each
// With* call returns a new Logger, leaving the receiver unmodified, so
// callers can branch field sets without clobbering each other.
type Logger struct {
	fields logrus.Fields
}

// New returns a Logger with no fields set.
func New() *Logger {
	return &Logger{fields: logrus.Fields{}}
}

func (l *Logger) clone() logrus.Fields {
	out := make(logrus.Fields, len(l.fields))
	for k, v := range l.fields {
		out[k] = v
	}
	return out
}

// WithRun attaches run_id.
func (l *Logger) WithRun(runID string) *Logger {
	f := l.clone()
	f["run_id"] = runID
	return &Logger{fields: f}
}

// WithSession attaches session_id.
func (l *Logger) WithSession(sessionID string) *Logger {
	f := l.clone()
	f["session_id"] = sessionID
	return &Logger{fields: f}
}

// WithNode attaches node_id.
func (l *Logger) WithNode(nodeID string) *Logger {
	f := l.clone()
	f["node_id"] = nodeID
	return &Logger{fields: f}
}

// WithField attaches an arbitrary key/value pair.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	f := l.clone()
	f[key] = value
	return &Logger{fields: f}
}

// WithError attaches err's message under the "error" field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(msg string) { base.WithFields(l.fields).Debug(msg) }
func (l *Logger) Info(msg string)  { base.WithFields(l.fields).Info(msg) }
func (l *Logger) Warn(msg string)  { base.WithFields(l.fields).Warn(msg) }
func (l *Logger) Error(msg string) { base.WithFields(l.fields).Error(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	base.WithFields(l.fields).Debugf(format, args...)
}
func (l *Logger) Infof(format string, args ...interface{}) {
	base.WithFields(l.fields).Infof(format, args...)
}
func (l *Logger) Warnf(format string, args ...interface{}) {
	base.WithFields(l.fields).Warnf(format, args...)
}
func (l *Logger) Errorf(format string, args ...interface{}) {
	base.WithFields(l.fields).Errorf(format, args...)
}
