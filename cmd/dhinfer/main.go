// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/logger"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/utils"
)

type settingsKey struct{}

func loadSettings(c *cli.Context) error {
	v := utils.NewViper()
	if err := utils.LoadProfile(v, c.String("ini"), c.String("env")); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	level := v.GetString(utils.LogLevel)
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger.SetLevel(level)

	c.Context = context.WithValue(c.Context, settingsKey{}, v)
	return nil
}

func settings(c *cli.Context) *viper.Viper {
	if v, ok := c.Context.Value(settingsKey{}).(*viper.Viper); ok {
		return v
	}
	return utils.NewViper()
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Log.Warn().Err(err).Msg("could not load .env file")
	}

	app := &cli.App{
		Name:  "dhinfer",
		Usage: "Batch inference: download a CSV from S3, score it, upload the predictions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Profile section of the INI file",
				EnvVars: []string{"DHINFER_ENV"},
			},
			&cli.StringFlag{
				Name:    "ini",
				Usage:   "Path of the INI profile file",
				Value:   utils.DefaultIniPath(),
				EnvVars: []string{"DHINFER_INI"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (trace, debug, info, warn, error)",
			},
		},
		Before: loadSettings,
		Commands: []*cli.Command{
			runCommand(),
			uploadCommand(),
			downloadCommand(),
			modelCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("dhinfer failed")
		os.Exit(1)
	}
}
