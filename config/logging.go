package config

import (
	"go.uber.org/zap"
)

// InitLogger builds the process logger and installs it as the zap global.
// Production gets JSON output at info level, anything else the development
// console encoder.
func InitLogger(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	_ = zap.ReplaceGlobals(logger)
	return logger, nil
}
