package xlog

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xordtree/lib/kv"
	"github.com/benz9527/xordtree/lib/tree"
)

// logLevel is the upper case level name accepted by XLOG_LVL.
type logLevel string

const (
	LogLevelDebug logLevel = "DEBUG"
	LogLevelInfo  logLevel = "INFO"
	LogLevelWarn  logLevel = "WARN"
	LogLevelError logLevel = "ERROR"
)

func (lvl logLevel) String() string { return string(lvl) }

// zapLevel falls back to DEBUG for blank or unknown names.
func (lvl logLevel) zapLevel() zapcore.Level {
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(string(lvl))))
	if err != nil || parsed > zapcore.ErrorLevel {
		return zapcore.DebugLevel
	}
	return parsed
}

type logEncoderType uint8

const (
	JSON logEncoderType = iota
	PlainText
	_encMax
)

type logOutWriterType uint8

const (
	StdOut logOutWriterType = iota
	testMemAsOut
	_writerMax
)

const (
	ContextKeyMapToOmitempty = "_"
	ContextKeyMapToItself    = ""
	coreKeyIgnored           = ""
)

// writerMap is consulted on every core construction. Tests register
// in-memory writers into it.
var writerMap = kv.NewThreadSafeMap[logOutWriterType, zapcore.WriteSyncer]()

func init() {
	_ = writerMap.AddOrUpdate(StdOut, &zapcore.BufferedWriteSyncer{
		WS:            zapcore.Lock(os.Stdout),
		Size:          512 * 1024,
		FlushInterval: 30 * time.Second,
	})
}

func encoderOf(typ logEncoderType) func(cfg zapcore.EncoderConfig) zapcore.Encoder {
	if typ == PlainText {
		return zapcore.NewConsoleEncoder
	}
	return zapcore.NewJSONEncoder
}

func writerOf(typ logOutWriterType) zapcore.WriteSyncer {
	if ws, ok := writerMap.Get(typ); ok {
		return ws
	}
	return zapcore.Lock(os.Stdout)
}

// xLogCore is a zap core that can be rebuilt with another encoder
// config while keeping its writer, encoders and the fields bound by With.
type xLogCore interface {
	context() context.Context
	timeEncoder() zapcore.TimeEncoder
	levelEncoder() zapcore.LevelEncoder
	writeSyncer() zapcore.WriteSyncer
	outEncoder() func(cfg zapcore.EncoderConfig) zapcore.Encoder
	boundFields() []zap.Field

	zapcore.Core
}

// coreParams carries everything a core constructor needs.
type coreParams struct {
	ctx        context.Context
	lvlEnabler zapcore.LevelEnabler
	encoder    logEncoderType
	writer     logOutWriterType
	lvlEnc     zapcore.LevelEncoder
	tsEnc      zapcore.TimeEncoder
}

// XLogCoreConstructor returns nil to reject params it cannot serve.
type XLogCoreConstructor func(params coreParams) xLogCore

// XLogger is the zap backed logger shared by the ordered trees, the
// sorted maps and the third-party adapters.
//
// It is a tree.Logger, so a tree reports rejected inserts, missed
// removes, arena exhaustion and release through it. WithContext binds
// the registered context fields once for callers that log without a
// context, like the trees.
type XLogger interface {
	tree.Logger

	zap() *zap.Logger

	IncreaseLogLevel(level zapcore.Level)
	Level() string
	Sync() error

	Info(msg string, fields ...zap.Field)
	Error(err error, msg string, fields ...zap.Field)
	// ErrorStack inlines the frames of an infra.ErrorStack as JSON.
	ErrorStack(err error, msg string, fields ...zap.Field)

	DebugContext(ctx context.Context, msg string, fields ...zap.Field)
	InfoContext(ctx context.Context, msg string, fields ...zap.Field)
	WarnContext(ctx context.Context, msg string, fields ...zap.Field)
	ErrorContext(ctx context.Context, err error, msg string, fields ...zap.Field)

	WithContext(ctx context.Context, fields ...zap.Field) XLogger
}
