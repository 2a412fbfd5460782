// Package log provides the responder's structured logger and the
// audit trail sinks the engine writes terminal query outcomes to.
package log

import (
	"fmt"
	golog "log"
	"log/syslog"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// Logger is the leveled logging interface every other package is
// handed; it never takes a context, matching how the responder's
// ambient logger is threaded through constructors rather than calls.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Notice(msg string)
	Warning(msg string)
	Err(msg string)

	// Audit and AuditErr additionally guarantee delivery to the audit
	// trail (stdout, and the syslog sink when one is configured)
	// regardless of the configured stdout/syslog verbosity levels.
	Audit(msg string)
	AuditErr(msg string)
}

// Level mirrors syslog's severity scale so StdoutLevel/SyslogLevel
// config fields have an unambiguous meaning.
type Level int

const (
	LevelErr     Level = 3
	LevelWarning Level = 4
	LevelNotice  Level = 5
	LevelInfo    Level = 6
	LevelDebug   Level = 7
)

var defaultLogger = newStdoutOnlyLogger()

// Get returns the process-wide default Logger. Set installs a new one,
// typically once at startup after reading config.
func Get() Logger {
	mu.Lock()
	defer mu.Unlock()
	return defaultLogger
}

// Set installs logger as the process-wide default.
func Set(logger Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

var mu sync.Mutex

// syslogLogger writes to both a go-logr console sink (for stdout/
// journald-style capture) and an optional syslog writer, each gated by
// its own verbosity threshold.
type syslogLogger struct {
	console     logr.Logger
	writer      *syslog.Writer
	stdoutLevel Level
	syslogLevel Level
}

// New constructs a Logger writing to writer (nil disables the syslog
// sink entirely) and stdout, each bounded by its own level.
func New(writer *syslog.Writer, stdoutLevel, syslogLevel Level) Logger {
	return &syslogLogger{
		console:     stdr.New(golog.New(os.Stdout, "", golog.LstdFlags)),
		writer:      writer,
		stdoutLevel: stdoutLevel,
		syslogLevel: syslogLevel,
	}
}

func newStdoutOnlyLogger() Logger {
	return New(nil, LevelInfo, LevelErr)
}

func (l *syslogLogger) Debug(msg string)    { l.log(LevelDebug, msg) }
func (l *syslogLogger) Info(msg string)     { l.log(LevelInfo, msg) }
func (l *syslogLogger) Notice(msg string)   { l.log(LevelNotice, msg) }
func (l *syslogLogger) Warning(msg string)  { l.log(LevelWarning, msg) }
func (l *syslogLogger) Err(msg string)      { l.log(LevelErr, msg) }

// Audit and AuditErr always reach the syslog sink (if configured)
// regardless of syslogLevel: an audit entry that silently dropped
// because someone turned verbosity down would defeat the point of an
// audit trail.
func (l *syslogLogger) Audit(msg string) {
	l.console.Info(msg, "audit", true)
	l.writeSyslog(LevelNotice, fmt.Sprintf("AUDIT: %s", msg))
}

func (l *syslogLogger) AuditErr(msg string) {
	l.console.Error(nil, msg, "audit", true)
	l.writeSyslog(LevelErr, fmt.Sprintf("AUDIT-ERR: %s", msg))
}

func (l *syslogLogger) log(level Level, msg string) {
	if level <= l.stdoutLevel {
		if level <= LevelErr {
			l.console.Error(nil, msg)
		} else {
			l.console.Info(msg)
		}
	}
	if level <= l.syslogLevel {
		l.writeSyslog(level, msg)
	}
}

func (l *syslogLogger) writeSyslog(level Level, msg string) {
	if l.writer == nil {
		return
	}
	switch level {
	case LevelDebug:
		_ = l.writer.Debug(msg)
	case LevelInfo:
		_ = l.writer.Info(msg)
	case LevelNotice:
		_ = l.writer.Notice(msg)
	case LevelWarning:
		_ = l.writer.Warning(msg)
	default:
		_ = l.writer.Err(msg)
	}
}
