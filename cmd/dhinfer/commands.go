// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/yaml"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/logger"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/model"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/pipeline"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/transfer"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/utils"
)

const (
	exitFailure       = 1
	exitUploadFailure = 2
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the full pipeline: download, predict, upload",
		Action: func(c *cli.Context) error {
			conf := utils.ToConfig(settings(c))
			svc, err := pipeline.NewPipelineService(c.Context, conf)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			res, err := svc.Run(c.Context)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			if !res.OK() {
				return cli.Exit(res.Message(), exitUploadFailure)
			}
			return nil
		},
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a local file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bucket", Usage: "Target bucket (default: S3_BUCKET_NAME)"},
			&cli.StringFlag{Name: "key", Usage: "Object key (default: the file name)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("upload requires exactly one file", exitFailure)
			}
			conf := utils.ToConfig(settings(c))
			bucket := c.String("bucket")
			if bucket == "" {
				bucket = conf.Pipeline.InputBucket
			}
			svc, err := transfer.NewTransferService(c.Context, conf)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			res := svc.Upload(c.Context, transfer.UploadRequest{
				LocalPath: c.Args().First(),
				Bucket:    bucket,
				Key:       c.String("key"),
			})
			if !res.OK() {
				return cli.Exit(res.Message(), exitFailure)
			}
			fmt.Println(res.URL)
			return nil
		},
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download an object",
		ArgsUsage: "[key]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bucket", Usage: "Source bucket (default: S3_BUCKET_NAME)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Local path (default: the key's file name)"},
		},
		Action: func(c *cli.Context) error {
			conf := utils.ToConfig(settings(c))
			bucket := c.String("bucket")
			if bucket == "" {
				bucket = conf.Pipeline.InputBucket
			}
			key := c.Args().First()
			if key == "" {
				key = conf.Pipeline.InputKey
			}
			svc, err := transfer.NewTransferService(c.Context, conf)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			res, err := svc.Download(c.Context, transfer.DownloadRequest{
				Bucket:    bucket,
				Key:       key,
				LocalPath: c.String("output"),
			})
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			if !res.OK() {
				return cli.Exit(res.Message(), exitFailure)
			}
			return nil
		},
	}
}

func modelCommand() *cli.Command {
	return &cli.Command{
		Name:  "model",
		Usage: "Inspect the configured model",
		Subcommands: []*cli.Command{
			{
				Name:      "describe",
				Usage:     "Resolve a model reference and print it",
				ArgsUsage: "[reference]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"o"}, Value: "yaml", Usage: "yaml or json"},
				},
				Action: func(c *cli.Context) error {
					conf := utils.ToConfig(settings(c))
					ref := c.Args().First()
					if ref == "" {
						ref = conf.Tracking.ModelReference
					}
					svc, err := model.NewModelService(c.Context, conf)
					if err != nil {
						return cli.Exit(err.Error(), exitFailure)
					}
					h, err := svc.Load(c.Context, ref)
					if err != nil {
						return cli.Exit(err.Error(), exitFailure)
					}
					out, err := h.Describe(utils.TranslateFormat(c.String("format")))
					if err != nil {
						return cli.Exit(err.Error(), exitFailure)
					}
					_, _ = os.Stdout.Write(out)
					return nil
				},
			},
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or persist the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print every key with its effective value, secrets masked",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"o"}, Value: "yaml", Usage: "yaml or json"},
				},
				Action: func(c *cli.Context) error {
					values := utils.Describe(settings(c))
					var (
						out []byte
						err error
					)
					if utils.TranslateFormat(c.String("format")) == "json" {
						out, err = json.MarshalIndent(values, "", "    ")
					} else {
						out, err = yaml.Marshal(values)
					}
					if err != nil {
						return cli.Exit(err.Error(), exitFailure)
					}
					_, _ = os.Stdout.Write(out)
					return nil
				},
			},
			{
				Name:  "save",
				Usage: "Write the effective values into the selected INI section",
				Action: func(c *cli.Context) error {
					v := settings(c)
					env := v.GetString(utils.CurrentEnvironment)
					if err := utils.SaveProfile(v, c.String("ini"), env); err != nil {
						return cli.Exit(err.Error(), exitFailure)
					}
					logger.Log.Info().Str("path", c.String("ini")).Str("env", env).Msg("profile saved")
					return nil
				},
			},
		},
	}
}
