package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/elonet-archiver"
	"github.com/alanbriolat/elonet-archiver/download"
	"github.com/alanbriolat/elonet-archiver/generic"
	"github.com/alanbriolat/elonet-archiver/internal/config"
	"github.com/alanbriolat/elonet-archiver/internal/history"
	"github.com/alanbriolat/elonet-archiver/internal/web"
)

var errNoURL = errors.New("no URL given")

func promptURL(c *cli.Context) (string, error) {
	fmt.Fprint(c.App.Writer, "Elonet URL to download: ")
	line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("%w: %v", errNoURL, err)
		}
		return "", errNoURL
	}
	return line, nil
}

func downloadPage(ctx context.Context, cfg *config.Config, pageURL string) error {
	logger := elonet_archiver.Logger(ctx)
	logger.Sugar().Infof("Downloading from %s into %s", pageURL, cfg.Target)

	tmpl, err := elonet_archiver.ParseTargetTemplate(cfg.OutputTemplate)
	if err != nil {
		return fmt.Errorf("invalid output template: %w", err)
	}
	target := &elonet_archiver.TargetConfig{
		TargetDir:          cfg.Target,
		TargetFileTemplate: tmpl,
		OutputPath:         cfg.Output,
	}

	store := openHistory(cfg, logger)
	defer store.Close()

	client := web.New(
		web.WithTimeout(cfg.Timeout),
		web.WithUserAgent(cfg.UserAgent),
		web.WithHeaders(cfg.Headers),
		web.WithLogger(logger),
	)
	bar := newProgress(!cfg.NoProgress, logger)
	pipeline := elonet_archiver.NewPipeline(client,
		elonet_archiver.WithTarget(target),
		elonet_archiver.WithProviderName(cfg.Site),
		elonet_archiver.WithHistory(store),
		elonet_archiver.WithFailOnMissing(cfg.FailOnMissing),
		elonet_archiver.WithDownloadOptions(
			download.WithLauncher(download.FFmpeg(cfg.FFmpeg, logger)),
			download.WithProgress(bar.Update),
		),
	)

	outcome, err := pipeline.Run(ctx, pageURL)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if dropped := len(outcome.Result.Dropped); dropped > 0 {
		logger.Sugar().Warnf("Download complete, but %d of %d segments are missing: %s", dropped, outcome.Result.Total, outcome.Result.OutputPath)
	} else {
		logger.Sugar().Infof("Download complete: %s", outcome.Result.OutputPath)
	}
	return nil
}

func openHistory(cfg *config.Config, logger *zap.Logger) history.Store {
	if !cfg.HistoryEnabled() {
		return history.NilStore{}
	}
	store, err := history.Open(cfg.History)
	if err != nil {
		logger.Warn("history disabled", zap.Error(err))
		return history.NilStore{}
	}
	return store
}

// progress shows a bar on stderr, or logs each segment if the bar is disabled.
type progress struct {
	enabled bool
	bar     *progressbar.ProgressBar
	log     *zap.SugaredLogger
}

func newProgress(enabled bool, logger *zap.Logger) *progress {
	return &progress{enabled: enabled, log: logger.Sugar()}
}

func (p *progress) Update(pr download.Progress) {
	if !p.enabled {
		p.log.Infof(">>> Downloading chunk %d/%d: %s", pr.Index, pr.Total, pr.Segment)
		return
	}
	p.log.Debugf(">>> Downloading chunk %d/%d: %s", pr.Index, pr.Total, pr.Segment)
	if p.bar == nil {
		p.bar = progressbar.NewOptions(pr.Total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.bar.Describe(pr.Segment)
	generic.Unwrap_(p.bar.Set(pr.Index - 1))
}

func (p *progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
