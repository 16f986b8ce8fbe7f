package xlog

import (
	"context"
	"strconv"
	"testing"

	mredisv2 "github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xordtree/lib/infra"
	"github.com/benz9527/xordtree/lib/tree"
)

func TestGoRedisXLogger_ParentLogLevelChanged(t *testing.T) {
	var (
		parentLogger XLogger         = nil
		logger       *GoRedisXLogger = nil
	)
	require.NotPanics(t, func() {
		logger.Printf(context.TODO(), "test %d", 123)
	})

	w := &testMemOutWriter{data: make([]byte, 0, 4096)}
	require.NoError(t, writerMap.AddOrUpdate(testMemAsOut, zapcore.AddSync(w)))
	defer func() {
		_ = writerMap.Delete(testMemAsOut)
	}()

	parentLogger = NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
		WithXLoggerWriter(testMemAsOut),
	)
	logger = NewGoRedisXLogger(parentLogger)
	parentLogger.IncreaseLogLevel(zapcore.ErrorLevel)
	logger.Printf(context.TODO(), "dial %d", 1)
	parentLogger.IncreaseLogLevel(zapcore.DebugLevel)
	logger.Printf(context.TODO(), "dial %d", 2)
	logger.Printf(context.TODO(), "dial failed: %d", 3)
	require.NoError(t, parentLogger.Sync())

	out := w.String()
	require.Contains(t, out, `"component":"GoRedis"`)
	require.NotContains(t, out, `"msg":"dial 1"`)
	require.Contains(t, out, `"msg":"dial 2"`)
	require.Contains(t, out, `"msg":"dial failed: 3"`)
	require.Contains(t, out, `"lvl":"ERROR"`)

	require.Panics(t, func() {
		_ = NewGoRedisXLogger(&xLogger{})
	})
}

func TestGoRedisXLogger_ExportTreeValues(t *testing.T) {
	parentLogger := NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
	)
	redisv9.SetLogger(NewGoRedisXLogger(parentLogger))

	mredis := mredisv2.RunT(t)
	rclient := redisv9.NewClient(&redisv9.Options{
		Addr: mredis.Addr(),
	})
	defer func() { _ = rclient.Close() }()

	rbt := tree.NewOrderedKeyTree[int]()
	for _, v := range []int{42, 7, 19, 3, 88, 61} {
		require.NoError(t, rbt.Insert(v))
	}

	ctx := context.TODO()
	vals := make([]any, 0, rbt.Len())
	rbt.Foreach(tree.VisitorFunc[int](func(_ int64, v int) bool {
		vals = append(vals, strconv.Itoa(v))
		return true
	}))
	require.NoError(t, rclient.RPush(ctx, "rbtree:values", vals...).Err())

	got, err := rclient.LRange(ctx, "rbtree:values", 0, -1).Result()
	require.NoError(t, err)
	require.Equal(t, []string{"3", "7", "19", "42", "61", "88"}, got)

	// Round trip back into a fresh tree keeps the order.
	restored := tree.NewOrderedKeyTree[int]()
	for _, s := range got {
		v, err := strconv.Atoi(s)
		require.NoError(t, err)
		require.NoError(t, restored.Insert(v))
	}
	require.Equal(t, rbt.Values(), restored.Values())
	require.NoError(t, tree.Validate(restored, tree.Comparator[int](infra.OrderedComparator[int]())))

	_, err = rclient.Get(ctx, "rbtree:missing").Result()
	require.ErrorIs(t, err, redisv9.Nil)
	parentLogger.Debug("go redis export", zap.Int("count", len(got)))
	require.NoError(t, parentLogger.Sync())
}
