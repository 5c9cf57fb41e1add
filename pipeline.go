package elonet_archiver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alanbriolat/elonet-archiver/download"
	"github.com/alanbriolat/elonet-archiver/hls"
	"github.com/alanbriolat/elonet-archiver/internal/history"
	"github.com/alanbriolat/elonet-archiver/internal/web"
)

var (
	ErrDownloadFailed  = errors.New("download failed")
	ErrMissingSegments = errors.New("some segments could not be downloaded")
)

type PipelineOption func(*Pipeline)

// WithRegistry replaces DefaultProviderRegistry.
func WithRegistry(registry *ProviderRegistry) PipelineOption {
	return func(p *Pipeline) {
		p.registry = registry
	}
}

// WithProviderName skips site detection and always uses the named provider.
func WithProviderName(name string) PipelineOption {
	return func(p *Pipeline) {
		p.providerName = name
	}
}

func WithTarget(target *TargetConfig) PipelineOption {
	return func(p *Pipeline) {
		p.target = target
	}
}

func WithHistory(store history.Store) PipelineOption {
	return func(p *Pipeline) {
		p.history = store
	}
}

func WithDownloadOptions(opts ...download.Option) PipelineOption {
	return func(p *Pipeline) {
		p.downloadOpts = append(p.downloadOpts, opts...)
	}
}

// WithFailOnMissing makes any dropped segment fail the run.
func WithFailOnMissing(fail bool) PipelineOption {
	return func(p *Pipeline) {
		p.failOnMissing = fail
	}
}

// Pipeline takes a page URL all the way to a video file on disk.
type Pipeline struct {
	client        *web.Client
	registry      *ProviderRegistry
	providerName  string
	target        *TargetConfig
	history       history.Store
	downloadOpts  []download.Option
	failOnMissing bool
}

func NewPipeline(client *web.Client, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:   client,
		registry: &DefaultProviderRegistry,
		target:   NewTargetConfig(),
		history:  history.NilStore{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outcome is everything learned while running a Pipeline. Fields are filled in as far as the run got.
type Outcome struct {
	Match       *Match
	Video       VideoSource
	PlaylistURL string
	Playlist    *hls.MediaPlaylist
	Result      *download.Result
	Record      *history.Record
}

// Run downloads the video on a page. The returned Outcome is never nil, even on error.
func (p *Pipeline) Run(ctx context.Context, pageURL string) (outcome *Outcome, err error) {
	log := Logger(ctx)
	record := history.NewRecord(pageURL)
	outcome = &Outcome{Record: record}
	p.writeRecord(log, record)
	defer func() {
		record.Finish(recordStatus(outcome.Result, err), err)
		p.writeRecord(log, record)
	}()

	match, err := p.match(pageURL)
	if err != nil {
		return outcome, err
	}
	outcome.Match = match
	record.Site = string(match.Page.Site)
	log = log.With(zap.String("provider", match.ProviderName))
	log.Info("matched page", zap.Stringer("page", match.Page))

	doc, err := p.client.GetDocument(ctx, pageURL)
	if err != nil {
		return outcome, fmt.Errorf("failed to fetch page: %w", err)
	}
	video, err := match.Extractor.Extract(doc)
	if err != nil {
		return outcome, &ExtractionError{Site: match.Page.Site, Err: err}
	}
	outcome.Video = video
	record.Title = video.Title
	record.SourceURL = video.SourceURL
	log.Info("found video", zap.String("title", video.Title), zap.String("source", video.SourceURL))

	playlistURL, err := hls.NewResolver(p.client, log).Resolve(ctx, video.SourceURL)
	if err != nil {
		return outcome, err
	}
	outcome.PlaylistURL = playlistURL
	record.PlaylistURL = playlistURL

	playlist, err := hls.NewParser(p.client, log).Parse(ctx, playlistURL)
	if err != nil {
		return outcome, err
	}
	outcome.Playlist = playlist
	record.Segments = len(playlist.Segments)
	log.Info("parsed playlist", zap.Int("segments", len(playlist.Segments)), zap.Duration("duration", playlist.Duration))

	outputPath, err := p.target.GetTargetPath(match, video)
	if err != nil {
		return outcome, fmt.Errorf("failed to get target path: %w", err)
	}
	record.OutputPath = outputPath
	job := download.NewJob(outputPath, playlist.Segments)

	opts := append([]download.Option{download.WithLogger(log)}, p.downloadOpts...)
	result, err := download.NewDownloader(p.client, opts...).Download(ctx, job)
	outcome.Result = result
	if result != nil {
		record.Dropped = result.Dropped
	}
	if err != nil {
		return outcome, err
	}
	if !result.OK {
		if result.MuxerErr != nil {
			return outcome, fmt.Errorf("%w: %v", ErrDownloadFailed, result.MuxerErr)
		}
		return outcome, fmt.Errorf("%w: %v is missing or empty", ErrDownloadFailed, result.OutputPath)
	}
	if len(result.Dropped) > 0 {
		log.Warn("video is incomplete", zap.Ints("dropped", result.Dropped), zap.Int("total", result.Total))
		if p.failOnMissing {
			return outcome, fmt.Errorf("%w: %d of %d", ErrMissingSegments, len(result.Dropped), result.Total)
		}
	}
	log.Info("saved video", zap.String("path", result.OutputPath), zap.Int64("size", result.Size))
	return outcome, nil
}

func (p *Pipeline) match(pageURL string) (*Match, error) {
	if p.providerName != "" {
		return p.registry.MatchWith(p.providerName, pageURL)
	}
	return p.registry.Match(pageURL)
}

// History failures are logged, never fatal.
func (p *Pipeline) writeRecord(log *zap.Logger, record *history.Record) {
	if err := p.history.Write(record); err != nil {
		log.Warn("failed to write history", zap.Error(err))
	}
}

func recordStatus(result *download.Result, err error) history.Status {
	switch {
	case err != nil:
		return history.StatusFailed
	case result != nil && result.Complete():
		return history.StatusComplete
	default:
		return history.StatusPartial
	}
}
