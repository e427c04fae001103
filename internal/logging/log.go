// Package logging provides leveled logging for hyperstack.  Messages go through
// the standard log package unless a LogConfig with a log file is applied, in which
// case they are written to a rotating file.
package logging

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
)

type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var modeNames = map[string]ModeFlag{
	"debug":    DebugMode,
	"info":     InfoMode,
	"warning":  WarningMode,
	"warn":     WarningMode,
	"error":    ErrorMode,
	"critical": CriticalMode,
	"silent":   SilentMode,
}

// ParseMode converts a level name like "debug" or "warning" into a ModeFlag.
func ParseMode(s string) (ModeFlag, error) {
	m, found := modeNames[strings.ToLower(strings.TrimSpace(s))]
	if !found {
		return InfoMode, fmt.Errorf("unknown log level %q", s)
	}
	return m, nil
}

// Logger provides a way for the application to log messages at different severities.
type Logger interface {
	// Debugf formats its arguments analogous to fmt.Printf and records the text as a log
	// message at Debug level.
	Debugf(format string, args ...interface{})

	// Infof is like Debugf, but at Info level.
	Infof(format string, args ...interface{})

	// Warningf is like Debugf, but at Warning level.
	Warningf(format string, args ...interface{})

	// Errorf is like Debugf, but at Error level.
	Errorf(format string, args ...interface{})

	// Criticalf is like Debugf, but at Critical level.
	Criticalf(format string, args ...interface{})

	// Shutdown makes sure logs are closed.
	Shutdown()
}

var (
	mu     sync.RWMutex
	mode   = InfoMode
	logger Logger = stdLogger{}
)

// SetLogMode sets the severity required for a log message to be printed.
// For example, SetLogMode(logging.WarningMode) will log any calls using
// Warningf, Errorf, or Criticalf.  To turn off all logging, use SilentMode.
func SetLogMode(newMode ModeFlag) {
	mu.Lock()
	mode = newMode
	mu.Unlock()
}

// Mode returns the current log mode.
func Mode() ModeFlag {
	mu.RLock()
	defer mu.RUnlock()
	return mode
}

// SetLogger replaces the package-level logger and returns the previous one.
func SetLogger(l Logger) Logger {
	mu.Lock()
	defer mu.Unlock()
	prev := logger
	if l == nil {
		l = stdLogger{}
	}
	logger = l
	return prev
}

func current(level ModeFlag) (Logger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return logger, mode <= level
}

func Debugf(format string, args ...interface{}) {
	if l, ok := current(DebugMode); ok {
		l.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if l, ok := current(InfoMode); ok {
		l.Infof(format, args...)
	}
}

func Warningf(format string, args ...interface{}) {
	if l, ok := current(WarningMode); ok {
		l.Warningf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if l, ok := current(ErrorMode); ok {
		l.Errorf(format, args...)
	}
}

func Criticalf(format string, args ...interface{}) {
	if l, ok := current(CriticalMode); ok {
		l.Criticalf(format, args...)
	}
}

// Shutdown closes the package-level logger.
func Shutdown() {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Shutdown()
}

// TimeLog adds elapsed time to logging.
// Example:
//
//	mylog := logging.NewTimeLog()
//	...
//	mylog.Debugf("restacked %d frames", n)  // Appends elapsed time from NewTimeLog() to message.
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{time.Now()}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	Debugf(format+": %s", append(args, time.Since(t.start))...)
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	Infof(format+": %s", append(args, time.Since(t.start))...)
}

func (t TimeLog) Warningf(format string, args ...interface{}) {
	Warningf(format+": %s", append(args, time.Since(t.start))...)
}

// LogConfig describes where log messages go.  An empty Logfile sends messages
// to the standard logger.
type LogConfig struct {
	Level   string `yaml:"level" toml:"level"`
	Logfile string `yaml:"logfile" toml:"logfile"`
	MaxSize int    `yaml:"maxLogSize" toml:"max_log_size"`
	MaxAge  int    `yaml:"maxLogAge" toml:"max_log_age"`
}

// SetLogger applies the log level and, if a log file is given, creates a logger
// that saves to a rotating log file.
func (c *LogConfig) SetLogger() error {
	if c == nil {
		return nil
	}
	if c.Level != "" {
		m, err := ParseMode(c.Level)
		if err != nil {
			return err
		}
		SetLogMode(m)
	}
	if c.Logfile == "" {
		Debugf("Sending log messages to stdout since no log file specified.")
		return nil
	}
	l := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	log.SetOutput(l)
	SetLogger(stdLogger{l})
	return nil
}

// --- Logger implementation ----

type stdLogger struct {
	*lumberjack.Logger
}

func (slog stdLogger) Debugf(format string, args ...interface{}) {
	log.Printf(" DEBUG "+format, args...)
}

func (slog stdLogger) Infof(format string, args ...interface{}) {
	log.Printf(" INFO "+format, args...)
}

func (slog stdLogger) Warningf(format string, args ...interface{}) {
	log.Printf(" WARNING "+format, args...)
}

func (slog stdLogger) Errorf(format string, args ...interface{}) {
	log.Printf(" ERROR "+format, args...)
}

func (slog stdLogger) Criticalf(format string, args ...interface{}) {
	log.Printf(" CRITICAL "+format, args...)
}

func (slog stdLogger) Shutdown() {
	if slog.Logger != nil {
		log.Printf("Closing log file...\n")
		slog.Close()
	}
}
