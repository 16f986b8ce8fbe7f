package xlog

import (
	"context"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xordtree/lib/infra"
)

var _ xLogCore = (*commonCore)(nil)

type commonCore struct {
	ctx        context.Context
	lvlEnabler zapcore.LevelEnabler
	lvlEnc     zapcore.LevelEncoder
	tsEnc      zapcore.TimeEncoder
	ws         zapcore.WriteSyncer
	enc        func(cfg zapcore.EncoderConfig) zapcore.Encoder
	fields     []zap.Field
	core       zapcore.Core
}

func (cc *commonCore) timeEncoder() zapcore.TimeEncoder                            { return cc.tsEnc }
func (cc *commonCore) levelEncoder() zapcore.LevelEncoder                          { return cc.lvlEnc }
func (cc *commonCore) writeSyncer() zapcore.WriteSyncer                            { return cc.ws }
func (cc *commonCore) outEncoder() func(cfg zapcore.EncoderConfig) zapcore.Encoder { return cc.enc }
func (cc *commonCore) context() context.Context                                    { return cc.ctx }
func (cc *commonCore) boundFields() []zap.Field                                    { return cc.fields }
func (cc *commonCore) Enabled(lvl zapcore.Level) bool {
	return cc.lvlEnabler.Enabled(lvl)
}

// With keeps the result an xLogCore, so a logger with bound fields can
// still be wrapped.
func (cc *commonCore) With(fields []zap.Field) zapcore.Core {
	clone := *cc
	clone.fields = append(slices.Clip(cc.fields), fields...)
	clone.core = cc.core.With(fields)
	return &clone
}

func (cc *commonCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if cc.Enabled(ent.Level) {
		return ce.AddCore(ent, cc)
	}
	return ce
}

func (cc *commonCore) Write(ent zapcore.Entry, fields []zap.Field) error {
	return cc.core.Write(ent, fields)
}

func (cc *commonCore) Sync() error {
	return cc.core.Sync()
}

// wrapCore rebuilds core, or every member of a tee, with another encoder
// config. Writers, encoders and bound fields are kept. A nil lvlEnabler keeps the level
// of each wrapped core.
func wrapCore(core xLogCore, lvlEnabler zapcore.LevelEnabler, cfg *zapcore.EncoderConfig) (xLogCore, error) {
	if core == nil {
		return nil, infra.NewErrorStack("[XLogger] logger core is nil")
	}
	if cfg == nil {
		return nil, infra.NewErrorStack("[XLogger] logger core config is empty")
	}
	if tee, ok := core.(xLogMultiCore); ok {
		wrapped := make(xLogMultiCore, 0, len(tee))
		for _, member := range tee {
			c, err := wrapCore(member, lvlEnabler, cfg)
			if err != nil {
				return nil, err
			}
			wrapped = append(wrapped, c)
		}
		return wrapped, nil
	}

	if lvlEnabler == nil {
		lvlEnabler = core
	}
	encCfg := *cfg
	encCfg.EncodeLevel = core.levelEncoder()
	encCfg.EncodeTime = core.timeEncoder()
	wrapped := newCommonCore(coreParams{
		ctx:        core.context(),
		lvlEnabler: lvlEnabler,
		lvlEnc:     core.levelEncoder(),
		tsEnc:      core.timeEncoder(),
	}, core.writeSyncer(), core.outEncoder(), encCfg)
	if bound := core.boundFields(); len(bound) > 0 {
		return wrapped.With(bound).(xLogCore), nil
	}
	return wrapped, nil
}

func newCommonCore(
	params coreParams,
	ws zapcore.WriteSyncer,
	enc func(cfg zapcore.EncoderConfig) zapcore.Encoder,
	encCfg zapcore.EncoderConfig,
) *commonCore {
	return &commonCore{
		ctx:        params.ctx,
		lvlEnabler: params.lvlEnabler,
		lvlEnc:     params.lvlEnc,
		tsEnc:      params.tsEnc,
		ws:         ws,
		enc:        enc,
		core:       zapcore.NewCore(enc(encCfg), ws, params.lvlEnabler),
	}
}

func defaultCoreEncoderCfg() *zapcore.EncoderConfig {
	return &zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		TimeKey:       "ts",
		CallerKey:     "callAt",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   "fn",
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
}

// Component loggers, like the fx one, drop the caller and function keys.
func componentCoreEncoderCfg() *zapcore.EncoderConfig {
	return &zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		TimeKey:       "ts",
		CallerKey:     coreKeyIgnored,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   coreKeyIgnored,
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
}
