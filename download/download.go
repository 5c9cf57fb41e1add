package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/alanbriolat/elonet-archiver/util"
)

// SegmentFetcher copies a whole segment into w. Any error means the segment is unusable.
type SegmentFetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Progress is reported once per segment, before it is fetched.
type Progress struct {
	// 1-based
	Index   int
	Total   int
	Segment string
}

type Option func(*Downloader)

func WithLauncher(launch Launcher) Option {
	return func(d *Downloader) {
		d.launch = launch
	}
}

func WithProgress(f func(Progress)) Option {
	return func(d *Downloader) {
		d.onProgress = f
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Downloader) {
		d.log = log
	}
}

// Downloader fetches segments one at a time, in order, and streams each one into a Muxer as soon as it has arrived.
type Downloader struct {
	fetcher    SegmentFetcher
	launch     Launcher
	onProgress func(Progress)
	log        *zap.Logger
}

func NewDownloader(fetcher SegmentFetcher, opts ...Option) *Downloader {
	d := &Downloader{
		fetcher: fetcher,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.Named("download")
	if d.launch == nil {
		d.launch = FFmpeg(DefaultFFmpegPath, d.log)
	}
	return d
}

// Download runs the job. Segments that fail to download are logged and skipped. An error is only returned if the
// job could not run at all, the muxer could not be fed, or ctx was cancelled; check Result.OK for the outcome.
func (d *Downloader) Download(ctx context.Context, job *Job) (*Result, error) {
	if job.Len() == 0 {
		return nil, ErrNoSegments
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath()), 0755); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}
	// A muxer that fails early never touches the output, so an old file must not be mistaken for a new one
	if err := os.Remove(job.OutputPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove existing output: %w", err)
	}
	log := d.log.With(zap.String("output", job.OutputPath()))
	result := &Result{
		OutputPath: job.OutputPath(),
		Total:      job.Len(),
	}

	err := WithMuxer(ctx, d.launch, job.OutputPath(), func(mux Muxer) error {
		return d.feed(ctx, log, job, mux, result)
	})
	var exitErr *ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return result, ctx.Err()
	case errors.As(err, &exitErr):
		// The whole stream was written, so whatever the muxer managed to produce is still checked
		log.Warn("muxer failed", zap.Error(err))
		result.MuxerErr = err
	default:
		return result, err
	}

	if info, err := os.Stat(job.OutputPath()); err == nil {
		result.Size = info.Size()
	}
	result.OK = result.Written > 0 && result.Size > 0
	log.Info("download finished",
		zap.Int("written", result.Written), zap.Int("dropped", len(result.Dropped)), zap.Int64("size", result.Size))
	return result, nil
}

type muxerWriteError struct {
	index int
	err   error
}

func (e *muxerWriteError) Error() string {
	return fmt.Sprintf("failed to write segment %d to muxer: %v", e.index+1, e.err)
}

func (e *muxerWriteError) Unwrap() error {
	return e.err
}

func (d *Downloader) feed(ctx context.Context, log *zap.Logger, job *Job, mux Muxer, result *Result) error {
	// One segment is held in memory at a time, so a segment that fails part way through never reaches the muxer
	var buf bytes.Buffer
	for i, segment := range job.segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := Progress{Index: i + 1, Total: result.Total, Segment: util.ShortName(segment)}
		if d.onProgress != nil {
			d.onProgress(p)
		}
		log.Debug("downloading segment", zap.Int("index", p.Index), zap.Int("total", p.Total), zap.String("segment", p.Segment))

		buf.Reset()
		if _, err := d.fetcher.Fetch(ctx, segment, &buf); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("failed to download segment, skipping",
				zap.Int("index", p.Index), zap.String("url", segment), zap.Error(err))
			result.Dropped = append(result.Dropped, i)
			continue
		}
		if _, err := mux.Write(buf.Bytes()); err != nil {
			return &muxerWriteError{index: i, err: err}
		}
		result.Written++
		result.Bytes += int64(buf.Len())
	}
	return nil
}
