package gwlog

import (
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// DebugLevel level
	DebugLevel Level = Level(zap.DebugLevel)
	// InfoLevel level
	InfoLevel Level = Level(zap.InfoLevel)
	// WarnLevel level
	WarnLevel Level = Level(zap.WarnLevel)
	// ErrorLevel level
	ErrorLevel Level = Level(zap.ErrorLevel)
	// PanicLevel level
	PanicLevel Level = Level(zap.PanicLevel)
	// FatalLevel level
	FatalLevel Level = Level(zap.FatalLevel)

	// Debugf logs formatted debug message
	Debugf logFormatFunc
	// Infof logs formatted info message
	Infof logFormatFunc
	// Warnf logs formatted warn message
	Warnf logFormatFunc
	// Errorf logs formatted error message
	Errorf logFormatFunc
	Panicf logFormatFunc
	Fatalf logFormatFunc
	Fatal  func(args ...interface{})
	Panic  func(args ...interface{})
)

type logFormatFunc func(format string, args ...interface{})

// Level is type of log levels
type Level zapcore.Level

const (
	_ROLLING_MAX_SIZE_MB  = 100
	_ROLLING_MAX_BACKUPS  = 5
	_ROLLING_MAX_AGE_DAYS = 7
)

var (
	lock    sync.Mutex
	level   = zap.NewAtomicLevelAt(zap.DebugLevel)
	source  string
	outputs = []string{"stderr"}
	files   []*lumberjack.Logger
	logger  *zap.Logger
	sugar   *zap.SugaredLogger
)

func init() {
	rebuild()
}

// SetSource sets the component name (gridclient/gridserver) of gwlog module
func SetSource(comp string) {
	lock.Lock()
	source = comp
	rebuild()
	lock.Unlock()
}

// SetLevel sets the log level
func SetLevel(lv Level) {
	level.SetLevel(zapcore.Level(lv))
}

// GetLevel returns the current log level
func GetLevel() Level {
	return Level(level.Level())
}

// SetOutput sets the log outputs: "stderr", "stdout" or paths of rolling log files
func SetOutput(outs []string) {
	lock.Lock()
	outputs = append([]string(nil), outs...)
	rebuild()
	lock.Unlock()
}

// TraceError prints the stack and error
func TraceError(format string, args ...interface{}) {
	Errorf(format+"\n%s", append(args, debug.Stack())...)
}

// Sync flushes buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// ParseLevel converts string to Levels
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "panic":
		return PanicLevel
	case "fatal":
		return FatalLevel
	}
	Errorf("ParseLevel: unknown level: %s", s)
	return DebugLevel
}

func rebuild() {
	for _, f := range files {
		_ = f.Close()
	}
	files = nil

	var syncers []zapcore.WriteSyncer
	for _, out := range outputs {
		switch out {
		case "stderr":
			syncers = append(syncers, zapcore.Lock(os.Stderr))
		case "stdout":
			syncers = append(syncers, zapcore.Lock(os.Stdout))
		default:
			lj := &lumberjack.Logger{
				Filename:   out,
				MaxSize:    _ROLLING_MAX_SIZE_MB,
				MaxBackups: _ROLLING_MAX_BACKUPS,
				MaxAge:     _ROLLING_MAX_AGE_DAYS,
			}
			files = append(files, lj)
			syncers = append(syncers, zapcore.AddSync(lj))
		}
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:     "ts",
		LevelKey:    "level",
		MessageKey:  "message",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.NewMultiWriteSyncer(syncers...), level)
	logger = zap.New(core)
	if source != "" {
		logger = logger.With(zap.String("source", source))
	}
	setSugar(logger.Sugar())
}

func setSugar(sugar_ *zap.SugaredLogger) {
	sugar = sugar_
	Debugf = sugar.Debugf
	Infof = sugar.Infof
	Warnf = sugar.Warnf
	Errorf = sugar.Errorf
	Panicf = sugar.Panicf
	Panic = sugar.Panic
	Fatalf = sugar.Fatalf
	Fatal = sugar.Fatal
}
