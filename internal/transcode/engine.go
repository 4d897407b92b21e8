package transcode

import "context"

// Engine is an external media tool working on named files in its own
// scratch space. Names are plain file names, never paths.
type Engine interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	Exec(ctx context.Context, args []string) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	DeleteFile(ctx context.Context, name string) error
}
