package xlog

import (
	"go.uber.org/zap"
)

// AntsXLogger adapts XLogger to ants.Logger. ants only logs worker
// panics, so every line is written at ERROR.
type AntsXLogger struct {
	sugar *zap.SugaredLogger
}

func (l *AntsXLogger) Printf(format string, args ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

func NewAntsXLogger(logger XLogger) *AntsXLogger {
	return &AntsXLogger{
		sugar: newComponentXLogger(logger, "Ants", nil).zap().Sugar(),
	}
}
