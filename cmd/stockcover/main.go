// Command stockcover runs coverage analyses from the terminal.
package main

import (
	"os"

	"github.com/andresuchdata/stockcover/internal/app"
	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg := config.Load()

	cliApp := &cli.App{
		Name:  "stockcover",
		Usage: "Reconcile stock snapshots with outflow logs and suggest purchases",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   cfg.App.LogLevel,
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(c.String("log-level"), cfg.App.LogFormat)
			return nil
		},
		Commands: []*cli.Command{
			analyzeCommand(cfg),
			inspectCommand(cfg),
			batchCommand(cfg),
			categoriesCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("stockcover failed")
		os.Exit(1)
	}
}

func newApp(c *cli.Context, cfg *config.Config) (*app.App, error) {
	return app.New(c.Context, cfg)
}
