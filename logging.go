package incr

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// NewZapLogger returns a zap backed logr.Logger for WithLogger.
// Development loggers print V(1) and V(2) messages, production ones only V(0).
func NewZapLogger(development bool) (logr.Logger, error) {
	var (
		zl  *zap.Logger
		err error
	)

	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(-2)
		zl, err = cfg.Build()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return logr.Discard(), err
	}

	return zapr.NewLogger(zl), nil
}
