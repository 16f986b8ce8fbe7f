package xlog

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ xLogCore = (xLogMultiCore)(nil)

// xLogMultiCore fans every entry out to its members. The encoder and
// writer accessors report the first member.
type xLogMultiCore []xLogCore

func (mc xLogMultiCore) head() xLogCore {
	if len(mc) == 0 {
		return nil
	}
	return mc[0]
}

func (mc xLogMultiCore) context() context.Context {
	if h := mc.head(); h != nil {
		return h.context()
	}
	return nil
}

func (mc xLogMultiCore) levelEncoder() zapcore.LevelEncoder {
	if h := mc.head(); h != nil {
		return h.levelEncoder()
	}
	return nil
}

func (mc xLogMultiCore) timeEncoder() zapcore.TimeEncoder {
	if h := mc.head(); h != nil {
		return h.timeEncoder()
	}
	return nil
}

func (mc xLogMultiCore) writeSyncer() zapcore.WriteSyncer {
	if h := mc.head(); h != nil {
		return h.writeSyncer()
	}
	return nil
}

func (mc xLogMultiCore) outEncoder() func(cfg zapcore.EncoderConfig) zapcore.Encoder {
	if h := mc.head(); h != nil {
		return h.outEncoder()
	}
	return nil
}

func (mc xLogMultiCore) boundFields() []zap.Field {
	if h := mc.head(); h != nil {
		return h.boundFields()
	}
	return nil
}

func (mc xLogMultiCore) With(fields []zap.Field) zapcore.Core {
	return xLogMultiCore(lo.Map(mc, func(c xLogCore, _ int) xLogCore {
		return c.With(fields).(xLogCore)
	}))
}

// Level is the most verbose member level.
func (mc xLogMultiCore) Level() zapcore.Level {
	return lo.Reduce(mc, func(lvl zapcore.Level, c xLogCore, _ int) zapcore.Level {
		return min(lvl, zapcore.LevelOf(c))
	}, zapcore.InvalidLevel)
}

func (mc xLogMultiCore) Enabled(lvl zapcore.Level) bool {
	return lo.SomeBy(mc, func(c xLogCore) bool {
		return c.Enabled(lvl)
	})
}

func (mc xLogMultiCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	for _, c := range mc {
		ce = c.Check(ent, ce)
	}
	return ce
}

func (mc xLogMultiCore) Write(ent zapcore.Entry, fields []zap.Field) (err error) {
	for _, c := range mc {
		err = multierr.Append(err, c.Write(ent, fields))
	}
	return err
}

func (mc xLogMultiCore) Sync() (err error) {
	for _, c := range mc {
		err = multierr.Append(err, c.Sync())
	}
	return err
}

// XLogTeeCore drops the nil cores returned by rejecting constructors.
func XLogTeeCore(cores ...xLogCore) xLogCore {
	return xLogMultiCore(lo.Filter(cores, func(c xLogCore, _ int) bool {
		return c != nil
	}))
}
