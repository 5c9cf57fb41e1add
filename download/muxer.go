package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

const DefaultFFmpegPath = "ffmpeg"

const maxStderrLine = 1024 * 1024

// A Muxer consumes a continuous transport stream and writes the finished container file. Close ends the input and
// waits for the muxer to finish; Abort stops it without finishing.
type Muxer interface {
	io.WriteCloser
	Abort()
}

// Launcher starts a Muxer writing to outputPath.
type Launcher func(ctx context.Context, outputPath string) (Muxer, error)

// Command builds a Launcher that runs an external program reading the stream from stdin.
func Command(name string, args func(outputPath string) []string, log *zap.Logger) Launcher {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, outputPath string) (Muxer, error) {
		cmd := exec.CommandContext(ctx, name, args(outputPath)...)
		return StartProcess(cmd, log.With(zap.String("output", outputPath)))
	}
}

// FFmpeg remuxes without re-encoding, overwriting any existing output.
func FFmpeg(path string, log *zap.Logger) Launcher {
	if path == "" {
		path = DefaultFFmpegPath
	}
	return Command(path, ffmpegArgs, log)
}

func ffmpegArgs(outputPath string) []string {
	return []string{"-hide_banner", "-loglevel", "warning", "-y", "-i", "-", "-c", "copy", outputPath}
}

// ExitError means the muxer was given the whole stream but did not finish cleanly.
type ExitError struct {
	Err error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("muxer exited: %v", e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Process is a Muxer backed by a child process. Each line the process writes to stderr is logged as a warning.
type Process struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stderrDone chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

func StartProcess(cmd *exec.Cmd, log *zap.Logger) (*Process, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open muxer stdin: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("failed to open muxer stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	log = log.Named("muxer").With(zap.Int("pid", cmd.Process.Pid))
	log.Debug("muxer started", zap.Strings("args", cmd.Args))
	p := &Process{
		cmd:        cmd,
		stdin:      stdin,
		stderrDone: make(chan struct{}),
	}
	go func() {
		defer close(p.stderrDone)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 4096), maxStderrLine)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				log.Warn(line)
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn("stopped reading muxer output", zap.Error(err))
		}
		// Keep draining, or the process blocks on a full pipe
		_, _ = io.Copy(io.Discard, stderr)
	}()
	return p, nil
}

func (p *Process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// Close is idempotent, and always waits for the process to exit.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		_ = p.stdin.Close()
		// All stderr must be read before Wait closes the pipe
		<-p.stderrDone
		if err := p.cmd.Wait(); err != nil {
			p.closeErr = &ExitError{Err: err}
		}
	})
	return p.closeErr
}

func (p *Process) Abort() {
	_ = p.cmd.Process.Kill()
	_ = p.Close()
}

// WithMuxer runs f with a freshly launched Muxer, which is always closed before returning. If f fails the muxer is
// aborted and f's error is returned; otherwise the muxer's own exit error is returned.
func WithMuxer(ctx context.Context, launch Launcher, outputPath string, f func(Muxer) error) error {
	mux, err := launch(ctx, outputPath)
	if err != nil {
		return err
	}
	if err := f(mux); err != nil {
		mux.Abort()
		return err
	}
	return mux.Close()
}
