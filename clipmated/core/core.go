package core

import (
	"log/slog"
	"os"

	"github.com/clipmate/clipmate/internals/conf"
	"github.com/clipmate/clipmate/internals/env"
)

// Base bundles the pieces every daemon component needs: parsed config,
// validated environment, and the process logger.
type Base struct {
	Config  *conf.Config
	Env     *env.EnvStruct
	Logger  *slog.Logger
	LogFile *os.File
}

func New() *Base {
	envs := env.Get()
	config := conf.GetConfig()
	logger, logFile := InitLogger(config)

	return &Base{
		Config:  config,
		Env:     envs,
		Logger:  logger,
		LogFile: logFile,
	}
}
