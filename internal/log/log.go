// Package log is the leveled, package-level logger shared by every feaprep
// component. It wraps a uni-logger BasicLogger so the command surface can
// swap the writer or raise the level without touching callers.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"

	unilogger "github.com/neuronlabs/uni-logger"
)

const (
	// LDEBUG is the debug level.
	LDEBUG = unilogger.DEBUG
	// LINFO is the info level.
	LINFO = unilogger.INFO
	// LWARNING is the warning level.
	LWARNING = unilogger.WARNING
	// LERROR is the error level.
	LERROR = unilogger.ERROR
)

var (
	mu           sync.RWMutex
	logger       unilogger.LeveledLogger
	currentLevel = LINFO
)

// Default creates a BasicLogger that writes to os.Stderr.
func Default() {
	New(os.Stderr, "feaprep ", stdlog.Ldate|stdlog.Ltime)
}

// New sets a BasicLogger writing to out with the given prefix and flags.
func New(out io.Writer, prefix string, flags int) {
	basic := unilogger.NewBasicLogger(out, prefix, flags)
	basic.SetOutputDepth(4)
	SetLogger(basic)
}

// Discard silences logging entirely; used by tests.
func Discard() {
	New(io.Discard, "", 0)
}

// SetLogger replaces the current logger and applies the current level to it.
func SetLogger(l unilogger.LeveledLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
	if setter, ok := l.(unilogger.LevelSetter); ok {
		setter.SetLevel(currentLevel)
	}
}

// SetLevel changes the level of the current logger.
func SetLevel(level unilogger.Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	if logger == nil {
		return
	}
	if setter, ok := logger.(unilogger.LevelSetter); ok {
		setter.SetLevel(level)
	}
}

// ParseLevel maps a config string to a level.
func ParseLevel(s string) (unilogger.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LDEBUG, nil
	case "info", "":
		return LINFO, nil
	case "warning", "warn":
		return LWARNING, nil
	case "error":
		return LERROR, nil
	}
	return LINFO, fmt.Errorf("unknown log level %q", s)
}

func current() unilogger.LeveledLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debugf writes a formatted debug message.
func Debugf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Debugf(format, args...)
	}
}

// Infof writes a formatted info message.
func Infof(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Infof(format, args...)
	}
}

// Warningf writes a formatted warning message.
func Warningf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Warningf(format, args...)
	}
}

// Errorf writes a formatted error message.
func Errorf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Errorf(format, args...)
	}
}
