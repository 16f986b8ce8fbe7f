package xlog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GoRedisXLogger adapts XLogger to the go-redis internal logging.
type GoRedisXLogger struct {
	logger *xLogger
}

// Printf raises the lines reporting a failure to ERROR.
func (l *GoRedisXLogger) Printf(ctx context.Context, format string, v ...any) {
	if l == nil || l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, v...)
	lvl := zapcore.InfoLevel
	if strings.Contains(msg, "failed") {
		lvl = zapcore.ErrorLevel
	}
	l.logger.logAt(ctx, lvl, zap.Skip(), msg, nil)
}

func NewGoRedisXLogger(logger XLogger) *GoRedisXLogger {
	return &GoRedisXLogger{
		logger: newComponentXLogger(logger, "GoRedis", nil),
	}
}
