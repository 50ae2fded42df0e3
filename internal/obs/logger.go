package obs

import (
	"lensstock/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggerは設定からzapロガーを作る。
// devはconsole、prodはJSON。
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProd() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.LogEncoding != "" {
		zc.Encoding = cfg.LogEncoding
	}

	return zc.Build()
}
