package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/elonet-archiver"
	"github.com/alanbriolat/elonet-archiver/internal/config"
	_ "github.com/alanbriolat/elonet-archiver/providers"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx = elonet_archiver.WithLogger(ctx, logger)

	app := newApp(zapConfig.Level)
	err = app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		logger.Error(err.Error())
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func newApp(level zap.AtomicLevel) *cli.App {
	return &cli.App{
		Name:      "elonet-dl",
		Usage:     "download a video from Elonet+ or Finna",
		ArgsUsage: "[URL...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "read settings from `FILE`",
			},
			&cli.StringFlag{
				Name:        "target",
				Usage:       "save downloaded video to `DIR`",
				DefaultText: ".",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "save downloaded video as `FILE`, ignoring --target and --output-template",
			},
			&cli.StringFlag{
				Name:        "output-template",
				Usage:       "name the output file using `TEMPLATE`; fields: .Title .Name .Ext .Site .ProviderName",
				DefaultText: "{{.Title}}",
			},
			&cli.StringFlag{
				Name:        "ffmpeg",
				Usage:       "use ffmpeg binary at `PATH`",
				DefaultText: "ffmpeg",
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "limit each HTTP request to `DURATION`",
				DefaultText: "1m0s",
			},
			&cli.StringFlag{
				Name:  "user-agent",
				Usage: "send `UA` as the User-Agent header",
			},
			&cli.StringFlag{
				Name:  "site",
				Usage: "skip site detection and use provider `NAME` (elonetplus, finna, fallback)",
			},
			&cli.StringFlag{
				Name:  "history",
				Usage: "record jobs in database `FILE`",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "don't record jobs",
			},
			&cli.BoolFlag{
				Name:  "fail-on-missing",
				Usage: "fail if any segment could not be downloaded",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "log each segment instead of showing a progress bar",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.Debug {
				level.SetLevel(zap.DebugLevel)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			urls := c.Args().Slice()
			if len(urls) == 0 {
				pageURL, err := promptURL(c)
				if err != nil {
					return err
				}
				urls = append(urls, pageURL)
			}
			for _, pageURL := range urls {
				if err := downloadPage(c.Context, cfg, pageURL); err != nil {
					return err
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			historyCommand(),
		},
		HideHelpCommand: true,
	}
}

// Flags that can also be set in the config file or environment.
var configFlags = []string{
	"target", "output", "output-template", "ffmpeg", "timeout", "user-agent", "site", "history", "no-history",
	"fail-on-missing", "debug", "no-progress",
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	overrides := make(map[string]any)
	for _, name := range configFlags {
		if c.IsSet(name) {
			overrides[config.FlagKey(name)] = c.Value(name)
		}
	}
	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
