package xlog

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xordtree/lib/infra"
	"github.com/benz9527/xordtree/lib/kv"
)

type xLogger struct {
	cancelFn            context.CancelFunc
	logger              atomic.Pointer[zap.Logger]
	ctxFields           kv.ThreadSafeStorer[string, string]
	dynamicLevelEnabler zap.AtomicLevel
	writer              logOutWriterType
	encoder             logEncoderType
}

var _ XLogger = (*xLogger)(nil)

func (l *xLogger) zap() *zap.Logger {
	return l.logger.Load()
}

// IncreaseLogLevel is safe to call while other goroutines log. Children
// made by WithContext and the component loggers follow the change.
func (l *xLogger) IncreaseLogLevel(level zapcore.Level) {
	l.dynamicLevelEnabler.SetLevel(level)
}

func (l *xLogger) Sync() error {
	return l.zap().Sync()
}

func (l *xLogger) Level() string {
	return l.dynamicLevelEnabler.Level().String()
}

func (l *xLogger) Close() {
	if l.cancelFn != nil {
		l.cancelFn()
	}
}

// logAt is the single write path. Context fields come first, then the
// error, then the caller's fields.
func (l *xLogger) logAt(ctx context.Context, lvl zapcore.Level, errField zap.Field, msg string, fields []zap.Field) {
	ce := l.zap().Check(lvl, msg)
	if ce == nil {
		return
	}
	all := append(extractFieldsFromContext(ctx, l.ctxFields), errField)
	ce.Write(append(all, fields...)...)
}

func errorField(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", err.Error())
}

// stackField inlines the frames of an infra.ErrorStack.
func stackField(err error) zap.Field {
	if es, ok := err.(infra.ErrorStack); ok && es != nil {
		return zap.Inline(es)
	}
	return errorField(err)
}

func (l *xLogger) Debug(msg string, fields ...zap.Field) {
	l.logAt(nil, zapcore.DebugLevel, zap.Skip(), msg, fields)
}

func (l *xLogger) Info(msg string, fields ...zap.Field) {
	l.logAt(nil, zapcore.InfoLevel, zap.Skip(), msg, fields)
}

func (l *xLogger) Warn(msg string, fields ...zap.Field) {
	l.logAt(nil, zapcore.WarnLevel, zap.Skip(), msg, fields)
}

func (l *xLogger) Error(err error, msg string, fields ...zap.Field) {
	l.logAt(nil, zapcore.ErrorLevel, errorField(err), msg, fields)
}

func (l *xLogger) ErrorStack(err error, msg string, fields ...zap.Field) {
	l.logAt(nil, zapcore.ErrorLevel, stackField(err), msg, fields)
}

func (l *xLogger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.logAt(ctx, zapcore.DebugLevel, zap.Skip(), msg, fields)
}

func (l *xLogger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.logAt(ctx, zapcore.InfoLevel, zap.Skip(), msg, fields)
}

func (l *xLogger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.logAt(ctx, zapcore.WarnLevel, zap.Skip(), msg, fields)
}

func (l *xLogger) ErrorContext(ctx context.Context, err error, msg string, fields ...zap.Field) {
	l.logAt(ctx, zapcore.ErrorLevel, errorField(err), msg, fields)
}

// WithContext binds the registered context fields of ctx and the given
// fields to a child logger. The child shares the level and writers.
func (l *xLogger) WithContext(ctx context.Context, fields ...zap.Field) XLogger {
	child := l.derive()
	bound := append(extractFieldsFromContext(ctx, l.ctxFields), fields...)
	child.logger.Store(l.zap().With(bound...))
	return child
}

// derive copies everything but the zap logger and the cancel func.
func (l *xLogger) derive() *xLogger {
	return &xLogger{
		ctxFields:           l.ctxFields,
		dynamicLevelEnabler: l.dynamicLevelEnabler,
		writer:              l.writer,
		encoder:             l.encoder,
	}
}

// newComponentXLogger derives a named logger for a library or a tree.
// It follows the parent's level unless lvlEnabler is given, and drops
// the caller keys.
func newComponentXLogger(logger XLogger, name string, lvlEnabler zapcore.LevelEnabler) *xLogger {
	if logger == nil || logger.zap() == nil {
		panic("[XLogger] component " + name + " has no parent logger")
	}
	var l *xLogger
	if xl, ok := logger.(*xLogger); ok {
		l = xl.derive()
	} else {
		l = &xLogger{dynamicLevelEnabler: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
	}
	l.logger.Store(logger.zap().Named(name).WithOptions(
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			c, ok := core.(xLogCore)
			if !ok {
				panic("[XLogger] core is not XLogCore")
			}
			wrapped, err := wrapCore(c, lvlEnabler, componentCoreEncoderCfg())
			if err != nil {
				panic(err)
			}
			return wrapped
		}),
	))
	return l
}

type loggerCfg struct {
	ctx              context.Context
	ctxFields        kv.ThreadSafeStorer[string, string]
	encoderType      *logEncoderType
	writerType       *logOutWriterType
	lvlEncoder       zapcore.LevelEncoder
	tsEncoder        zapcore.TimeEncoder
	level            *zapcore.Level
	coreConstructors []XLogCoreConstructor
}

// build fills the defaults into l and returns its cores.
func (cfg *loggerCfg) build(l *xLogger) []xLogCore {
	l.encoder = lo.FromPtrOr(cfg.encoderType, JSON)
	l.writer = lo.FromPtrOr(cfg.writerType, StdOut)
	l.dynamicLevelEnabler = zap.NewAtomicLevelAt(
		lo.FromPtrOr(cfg.level, logLevel(os.Getenv("XLOG_LVL")).zapLevel()),
	)
	l.ctxFields = cfg.ctxFields

	ctx, cancel := context.WithCancel(lo.Ternary(cfg.ctx == nil, context.Background(), cfg.ctx))
	l.cancelFn = cancel

	params := coreParams{
		ctx:        ctx,
		lvlEnabler: l.dynamicLevelEnabler,
		encoder:    l.encoder,
		writer:     l.writer,
		lvlEnc:     lo.Ternary[zapcore.LevelEncoder](cfg.lvlEncoder == nil, zapcore.CapitalLevelEncoder, cfg.lvlEncoder),
		tsEnc:      lo.Ternary[zapcore.TimeEncoder](cfg.tsEncoder == nil, zapcore.ISO8601TimeEncoder, cfg.tsEncoder),
	}
	ctors := cfg.coreConstructors
	if len(ctors) == 0 {
		ctors = []XLogCoreConstructor{newConsoleCore}
	}
	return lo.Map(ctors, func(cc XLogCoreConstructor, _ int) xLogCore {
		return cc(params)
	})
}

type XLoggerOption func(*loggerCfg) error

// NewXLogger panics on an invalid option. XLOG_LVL sets the level when
// no option does.
func NewXLogger(opts ...XLoggerOption) XLogger {
	cfg := &loggerCfg{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			panic(err)
		}
	}
	xl := &xLogger{}
	cores := cfg.build(xl)
	// Skips logAt and the exported method.
	xl.logger.Store(zap.New(
		XLogTeeCore(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(2),
	))
	return xl
}

func WithXLoggerContext(ctx context.Context) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if ctx == nil {
			return infra.NewErrorStack("[XLogger] nil context")
		}
		cfg.ctx = ctx
		return nil
	}
}

func WithXLoggerWriter(writer logOutWriterType) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if writer >= _writerMax {
			return infra.NewErrorStack("unknown xlogger writer")
		}
		cfg.writerType = &writer
		return nil
	}
}

func WithXLoggerConsoleCore() XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.coreConstructors = append(cfg.coreConstructors, newConsoleCore)
		return nil
	}
}

func WithXLoggerEncoder(logEnc logEncoderType) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if logEnc >= _encMax {
			return infra.NewErrorStack("unknown xlogger encoder")
		}
		cfg.encoderType = &logEnc
		return nil
	}
}

func WithXLoggerLevel(lvl logLevel) XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.level = lo.ToPtr(lvl.zapLevel())
		return nil
	}
}

// WithXLoggerLevelEncoder with nil picks the colored capital encoder.
func WithXLoggerLevelEncoder(lvlEnc zapcore.LevelEncoder) XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.lvlEncoder = lo.Ternary[zapcore.LevelEncoder](lvlEnc == nil, zapcore.CapitalColorLevelEncoder, lvlEnc)
		return nil
	}
}

func WithXLoggerTimeEncoder(tsEnc zapcore.TimeEncoder) XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.tsEncoder = tsEnc
		return nil
	}
}

// WithXLoggerContextFieldExtract registers a context key to log. mapTo
// renames it, ContextKeyMapToOmitempty drops it.
func WithXLoggerContextFieldExtract(field string, mapTo ...string) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if len(field) == 0 {
			return nil
		}
		if cfg.ctxFields == nil {
			cfg.ctxFields = kv.NewThreadSafeMap[string, string]()
		}
		if len(mapTo) == 0 || mapTo[0] == ContextKeyMapToItself {
			mapTo = []string{field}
		}
		return cfg.ctxFields.AddOrUpdate(field, mapTo[0])
	}
}

// extractFieldsFromContext reports a registered key missing from ctx as
// the string "nil".
func extractFieldsFromContext(
	ctx context.Context,
	targets kv.ThreadSafeStorer[string, string],
) []zap.Field {
	if ctx == nil || targets == nil {
		return []zap.Field{}
	}

	keys := targets.ListKeys()
	newFields := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		mapTo, _ := targets.Get(key)
		if mapTo == ContextKeyMapToOmitempty {
			continue
		}
		if v := ctx.Value(key); v != nil {
			newFields = append(newFields, zap.Any(mapTo, v))
		} else {
			newFields = append(newFields, zap.String(mapTo, "nil"))
		}
	}
	return newFields
}
