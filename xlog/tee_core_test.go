package xlog

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type testSyncErrWriter struct {
	testMemOutWriter
	err error
}

func (w *testSyncErrWriter) Sync() error {
	return w.err
}

func newTestMemCore(t *testing.T, lvlEnabler zapcore.LevelEnabler, ws zapcore.WriteSyncer) xLogCore {
	t.Helper()
	cfg := *defaultCoreEncoderCfg()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return newCommonCore(coreParams{
		ctx:        context.TODO(),
		lvlEnabler: lvlEnabler,
		lvlEnc:     cfg.EncodeLevel,
		tsEnc:      cfg.EncodeTime,
	}, ws, encoderOf(JSON), cfg)
}

func TestMultiCores_DataRace(t *testing.T) {
	tee := make(xLogMultiCore, 0, 2)
	require.Nil(t, tee.context())
	require.Nil(t, tee.writeSyncer())
	require.Nil(t, tee.levelEncoder())
	require.Nil(t, tee.timeEncoder())
	require.Nil(t, tee.outEncoder())
	require.Nil(t, tee.boundFields())
	require.Equal(t, zapcore.InvalidLevel, tee.Level())
	require.False(t, tee.Enabled(zapcore.ErrorLevel))

	lvlEnabler := zap.NewAtomicLevelAt(LogLevelDebug.zapLevel())
	w1 := &testMemOutWriter{data: make([]byte, 0, 4096)}
	w2 := &testMemOutWriter{data: make([]byte, 0, 4096)}
	tee = append(tee,
		newTestMemCore(t, &lvlEnabler, zapcore.Lock(zapcore.AddSync(w1))),
		newTestMemCore(t, zapcore.WarnLevel, zapcore.Lock(zapcore.AddSync(w2))),
	)
	require.Equal(t, zapcore.DebugLevel, tee.Level())
	require.True(t, tee.Enabled(zapcore.DebugLevel))

	tee2, err := wrapCore(tee, nil, componentCoreEncoderCfg())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := tee.Write(zapcore.Entry{Level: zapcore.WarnLevel}, []zap.Field{zap.String("tee", strconv.Itoa(i))}); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if ce := tee2.Check(zapcore.Entry{Level: zapcore.InfoLevel}, nil); ce != nil {
				ce.Write(zap.String("tee2", strconv.Itoa(i)))
			}
			if i == 50 {
				lvlEnabler.SetLevel(zapcore.ErrorLevel)
			}
		}
	}()
	wg.Wait()
	require.NoError(t, tee.Sync())
	require.NoError(t, tee2.Sync())

	// Only w1 accepts INFO entries.
	require.Contains(t, string(w1.data), `"tee2":"0"`)
	require.NotContains(t, string(w2.data), `"tee2"`)
	require.Contains(t, string(w2.data), `"tee":"99"`)
}

func TestXLogTeeCore(t *testing.T) {
	errSync := errors.New("sync failed")
	w1 := &testSyncErrWriter{err: errSync}
	w2 := &testMemOutWriter{data: make([]byte, 0, 1024)}
	tee := XLogTeeCore(
		nil,
		newTestMemCore(t, zapcore.ErrorLevel, w1),
		newTestMemCore(t, zapcore.InfoLevel, zapcore.AddSync(w2)),
	)
	require.Len(t, tee.(xLogMultiCore), 2)
	require.Equal(t, zapcore.InfoLevel, zapcore.LevelOf(tee))
	require.False(t, tee.Enabled(zapcore.DebugLevel))

	child := tee.With([]zap.Field{zap.String("tree", "users")})
	if ce := child.Check(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "both"}, nil); ce != nil {
		ce.Write()
	}
	require.Contains(t, string(w1.data), `"tree":"users"`)
	require.Contains(t, string(w2.data), `"msg":"both"`)

	err := tee.Sync()
	require.ErrorIs(t, err, errSync)
	require.Len(t, multierr.Errors(err), 1)

	require.NotNil(t, tee.(xLogMultiCore).timeEncoder())
	require.Len(t, child.(xLogMultiCore), 2)

	_, err = wrapCore(tee, zapcore.WarnLevel, nil)
	require.Error(t, err)
	wrapped, err := wrapCore(tee, zapcore.WarnLevel, componentCoreEncoderCfg())
	require.NoError(t, err)
	require.False(t, wrapped.Enabled(zapcore.InfoLevel))
	require.True(t, wrapped.Enabled(zapcore.WarnLevel))
}

func TestXLogTeeCore_Empty(t *testing.T) {
	tee := XLogTeeCore(nil, nil)
	require.Empty(t, tee.(xLogMultiCore))
	require.Nil(t, tee.Check(zapcore.Entry{Level: zapcore.ErrorLevel}, nil))
	require.NoError(t, tee.Sync())
	require.NoError(t, tee.Write(zapcore.Entry{Level: zapcore.ErrorLevel}, nil))
}
