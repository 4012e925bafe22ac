package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Logger struct {
	mu       sync.Mutex
	minLevel LogLevel
	terminal io.Writer
	file     io.WriteCloser
}

// NewLogger writes coloured lines to stdout and JSON lines to a rotating file.
func NewLogger(opts Options) *Logger {
	l := &Logger{
		minLevel: ParseLevel(opts.Level),
		terminal: os.Stdout,
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		} else {
			l.file = &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    opts.MaxSizeMB,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAgeDays,
				Compress:   true,
			}
		}
	}

	l.Info("LOGGER", "Logging system initialized")
	if opts.File != "" {
		l.Info("LOGGER", fmt.Sprintf("Log file: %s", opts.File))
	}

	return l
}

// New builds a logger over arbitrary writers. Either may be nil.
func New(terminal io.Writer, file io.WriteCloser, level LogLevel) *Logger {
	return &Logger{minLevel: level, terminal: terminal, file: file}
}

// Discard drops every entry. Used by tests.
func Discard() *Logger {
	return &Logger{minLevel: FATAL + 1}
}

func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

var levelNames = [...]string{DEBUG: "DEBUG", INFO: "INFO", WARN: "WARN", ERROR: "ERROR", FATAL: "FATAL"}

func (lv LogLevel) String() string {
	if lv < DEBUG || lv > FATAL {
		return "INFO"
	}
	return levelNames[lv]
}

type palette struct {
	level, category *color.Color
}

var (
	palettes = map[LogLevel]palette{
		DEBUG: {color.New(color.FgCyan), color.New(color.FgCyan, color.Bold)},
		INFO:  {color.New(color.FgGreen), color.New(color.FgGreen, color.Bold)},
		WARN:  {color.New(color.FgYellow), color.New(color.FgYellow, color.Bold)},
		ERROR: {color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
		FATAL: {color.New(color.FgHiRed, color.Bold), color.New(color.FgHiRed, color.Bold)},
	}
	clockColor  = color.New(color.FgBlue)
	callerColor = color.New(color.FgMagenta)
)

func (l *Logger) log(level LogLevel, category, message string) {
	if l == nil || level < l.minLevel {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     level.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		entry.File, entry.Line = filepath.Base(file), line
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.terminal != nil {
		io.WriteString(l.terminal, render(level, entry))
	}
	if l.file != nil {
		if b, err := json.Marshal(entry); err == nil {
			l.file.Write(append(b, '\n'))
		}
	}
}

// render formats entry as one coloured terminal line.
func render(level LogLevel, entry LogEntry) string {
	p, ok := palettes[level]
	if !ok {
		p = palettes[INFO]
	}

	var b strings.Builder
	b.WriteString(clockColor.Sprint(entry.Timestamp[11:19]))
	b.WriteByte(' ')
	b.WriteString(p.level.Sprintf("%-5s", entry.Level))
	b.WriteByte(' ')
	b.WriteString(p.category.Sprintf("[%-10s]", entry.Category))
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	if entry.File != "" && entry.Line > 0 {
		b.WriteString(callerColor.Sprintf(" (%s:%d)", entry.File, entry.Line))
	}
	b.WriteByte('\n')
	return b.String()
}

func (l *Logger) Debug(category, message string) { l.log(DEBUG, category, message) }

func (l *Logger) Info(category, message string) { l.log(INFO, category, message) }

func (l *Logger) Warn(category, message string) { l.log(WARN, category, message) }

func (l *Logger) Error(category, message string) { l.log(ERROR, category, message) }

// Fatal logs and exits the process with status 1.
func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	l.Close()
	os.Exit(1)
}

// tagged logs "[tag] subject - detail" under category.
func (l *Logger) tagged(level LogLevel, category, tag, subject, detail string) {
	msg := "[" + tag + "] " + subject
	if detail != "" {
		msg += " - " + detail
	}
	l.log(level, category, msg)
}

func (l *Logger) LogOrder(action, orderNumber, message string) {
	l.tagged(INFO, "ORDER", action, orderNumber, message)
}

// LogAPI records one served request, e.g. "GET /api/menu - 200 (1.2ms)".
func (l *Logger) LogAPI(method, path, status, duration string) {
	l.log(INFO, "API", method+" "+path+" - "+status+" ("+duration+")")
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.tagged(INFO, "KAFKA", action, topic, message)
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.tagged(INFO, "DATABASE", operation, table, message)
}

func (l *Logger) LogSecurity(event, message string) {
	l.log(WARN, "SECURITY", "["+event+"] "+message)
}

// Close flushes and closes the log file, if any. Safe to call more than once.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	f := l.file
	l.file = nil
	l.mu.Unlock()
	if f != nil {
		f.Close()
	}
}
