package transcode

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const cleanupTimeout = 5 * time.Second

// Workspace scopes the files of one operation inside an Engine. Every name
// handed out by File is deleted when Run returns, whatever the outcome.
type Workspace struct {
	engine Engine
	prefix string
	files  []string
}

// Run calls fn with a fresh Workspace and removes its files afterwards.
func Run(ctx context.Context, engine Engine, fn func(ctx context.Context, ws *Workspace) error) error {
	ws := &Workspace{
		engine: engine,
		prefix: uuid.NewString() + "-",
	}
	defer ws.cleanup(ctx)

	return fn(ctx, ws)
}

// File returns the engine-side name for name and registers it for cleanup.
func (w *Workspace) File(name string) string {
	full := w.prefix + name
	w.files = append(w.files, full)
	return full
}

func (w *Workspace) Write(ctx context.Context, file string, data []byte) error {
	return w.engine.WriteFile(ctx, file, data)
}

func (w *Workspace) Exec(ctx context.Context, args []string) error {
	return w.engine.Exec(ctx, args)
}

func (w *Workspace) Read(ctx context.Context, file string) ([]byte, error) {
	return w.engine.ReadFile(ctx, file)
}

func (w *Workspace) cleanup(ctx context.Context) {
	// The operation context may already be cancelled; deletion still has to happen.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, f := range w.files {
		if err := w.engine.DeleteFile(ctx, f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("Failed to delete workspace file")
		}
	}
}
