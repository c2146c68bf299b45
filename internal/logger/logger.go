package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger is a basic leveled logger.
type Logger struct {
	level   Level
	logger  *log.Logger
	closer  io.Closer
	enabled bool
}

var (
	mu           sync.RWMutex
	globalLogger *Logger
)

// Init initializes the global logger.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		swap(&Logger{enabled: false})
		return nil
	}

	var writers []io.Writer
	var closer io.Closer

	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if console || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	swap(&Logger{
		level:   ParseLevel(levelStr),
		logger:  log.New(io.MultiWriter(writers...), "", 0),
		closer:  closer,
		enabled: true,
	})
	return nil
}

// SetOutput routes all logging to w at the given level. Tests use it to
// capture output.
func SetOutput(w io.Writer, level Level) {
	swap(&Logger{
		level:   level,
		logger:  log.New(w, "", 0),
		enabled: true,
	})
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil || globalLogger.closer == nil {
		return nil
	}
	err := globalLogger.closer.Close()
	globalLogger.closer = nil
	return err
}

func swap(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger != nil && globalLogger.closer != nil {
		globalLogger.closer.Close()
	}
	globalLogger = l
}

// ParseLevel maps a config string to a Level, defaulting to Info.
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func emit(level Level, component, format string, args ...interface{}) {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l == nil || !l.enabled || l.level > level {
		return
	}
	ts := time.Now().UTC().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	if component != "" {
		l.logger.Printf("[%s] [%s] [%s] %s", ts, level, component, msg)
		return
	}
	l.logger.Printf("[%s] [%s] %s", ts, level, msg)
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { emit(Debug, "", format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { emit(Info, "", format, args...) }

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) { emit(Warn, "", format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { emit(Error, "", format, args...) }

// Component logs through the global logger with a fixed component tag.
type Component struct {
	name string
}

// Named returns a logger that prefixes every line with name.
func Named(name string) Component {
	return Component{name: name}
}

func (c Component) Debugf(format string, args ...interface{}) { emit(Debug, c.name, format, args...) }
func (c Component) Infof(format string, args ...interface{})  { emit(Info, c.name, format, args...) }
func (c Component) Warnf(format string, args ...interface{})  { emit(Warn, c.name, format, args...) }
func (c Component) Errorf(format string, args ...interface{}) { emit(Error, c.name, format, args...) }
