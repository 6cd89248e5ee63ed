package commands

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/urfave/cli"
)

var log = logger.New("oxytrace")

// setupLogging applies the configured level, then lets -v and -vv raise it.
func setupLogging(ctx *cli.Context, cfg config.Config) {
	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	if ctx.GlobalBool("v") {
		logger.SetLevel(logger.Info)
	}

	if ctx.GlobalBool("vv") {
		logger.SetLevel(logger.Debug)
	}
}
