package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	FFmpegCommand = "ffmpeg"

	stderrTail = 512
)

var ErrInvalidName = errors.New("invalid workspace file name")

// ExecEngine runs the ffmpeg binary inside a private temporary directory.
type ExecEngine struct {
	binary string
	dir    string
}

// NewExecEngine resolves binary (ffmpeg when empty) and creates the scratch
// directory. Close removes it.
func NewExecEngine(binary string) (*ExecEngine, error) {
	if binary == "" {
		binary = FFmpegCommand
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	dir, err := os.MkdirTemp("", "mediaproxy-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return &ExecEngine{binary: path, dir: dir}, nil
}

func (e *ExecEngine) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(e.dir, name), nil
}

func (e *ExecEngine) WriteFile(_ context.Context, name string, data []byte) error {
	p, err := e.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0600)
}

func (e *ExecEngine) ReadFile(_ context.Context, name string) ([]byte, error) {
	p, err := e.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// DeleteFile removes name. A missing file is not an error.
func (e *ExecEngine) DeleteFile(_ context.Context, name string) error {
	p, err := e.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exec runs ffmpeg with args inside the scratch directory.
func (e *ExecEngine) Exec(ctx context.Context, args []string) error {
	full := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, args...)

	cmd := exec.CommandContext(ctx, e.binary, full...)
	cmd.Dir = e.dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debug().Strs("args", full).Msg("Running ffmpeg")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String()))
	}

	return nil
}

// Close removes the scratch directory and everything left in it.
func (e *ExecEngine) Close() error {
	return os.RemoveAll(e.dir)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		return s[len(s)-stderrTail:]
	}
	return s
}
