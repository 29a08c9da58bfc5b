package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Leveled process-wide logger. Call sites use the printf-style helpers;
// output goes through zap so production deployments get JSON lines and an
// optional rotated file.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu      sync.RWMutex
	level   Level     = LevelInfo
	atom              = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	out     io.Writer = os.Stdout
	file    io.Writer
	jsonOut bool
	sugar   *zap.SugaredLogger
)

func init() {
	rebuild()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
	atom.SetLevel(zapLevel(level))
}

// Options controls where log lines go in addition to stdout.
type Options struct {
	// File enables a rotated log file when non-empty.
	File string
	// JSON switches the console encoder to JSON (production).
	JSON bool
}

// Configure installs the sinks. Safe to call once after Init.
func Configure(o Options) {
	mu.Lock()
	defer mu.Unlock()
	jsonOut = o.JSON
	file = nil
	if o.File != "" {
		file = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}
	rebuildLocked()
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}

func rebuild() {
	mu.Lock()
	defer mu.Unlock()
	rebuildLocked()
}

func rebuildLocked() {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var console zapcore.Encoder
	if jsonOut {
		console = zapcore.NewJSONEncoder(encCfg)
	} else {
		console = zapcore.NewConsoleEncoder(encCfg)
	}
	cores := []zapcore.Core{zapcore.NewCore(console, zapcore.Lock(zapcore.AddSync(out)), atom)}
	if file != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), atom))
	}
	sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
}

// setOutput swaps the console sink; used by tests.
func setOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	rebuildLocked()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, v ...interface{}) { current().Debugf(format, v...) }

func Infof(format string, v ...interface{}) { current().Infof(format, v...) }

func Warnf(format string, v ...interface{}) { current().Warnf(format, v...) }

func Errorf(format string, v ...interface{}) { current().Errorf(format, v...) }

// Fatalf logs regardless of level and exits.
func Fatalf(format string, v ...interface{}) {
	l := current()
	l.Errorf(format, v...)
	_ = l.Sync()
	os.Exit(1)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	current().Info(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// Sync flushes buffered entries.
func Sync() error { return current().Sync() }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
