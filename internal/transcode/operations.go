package transcode

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/rs/zerolog/log"
)

// MaxUploadSize bounds files accepted for trimming and extraction.
const MaxUploadSize int64 = 500 << 20

var (
	ErrNotMedia          = errors.New("file is neither audio nor video")
	ErrNotVideo          = errors.New("file is not a video")
	ErrTooLarge          = errors.New("file exceeds upload limit")
	ErrInvalidRange      = errors.New("trim range must satisfy 0 <= start < end")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEngine            = errors.New("transcoding failed")
)

// MediaKind is the top-level MIME type of an upload.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// KindOf classifies a MIME type as audio or video.
func KindOf(contentType string) (MediaKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "audio/"):
		return KindAudio, true
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, true
	}
	return "", false
}

func (k MediaKind) defaultExt() string {
	if k == KindAudio {
		return ".mp3"
	}
	return ".mp4"
}

// AudioFormat is a target container for audio extraction.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
	FormatAAC AudioFormat = "aac"
	FormatOGG AudioFormat = "ogg"
)

var codecArgs = map[AudioFormat][]string{
	FormatMP3: {"-acodec", "libmp3lame", "-ab", "192k"},
	FormatWAV: {"-acodec", "pcm_s16le"},
	FormatAAC: {"-acodec", "aac", "-ab", "192k"},
	FormatOGG: {"-acodec", "libvorbis", "-ab", "192k"},
}

// ParseAudioFormat accepts mp3, wav, aac and ogg, case-insensitively. Empty means mp3.
func ParseAudioFormat(s string) (AudioFormat, error) {
	if s == "" {
		return FormatMP3, nil
	}
	f := AudioFormat(strings.ToLower(s))
	if _, ok := codecArgs[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// TrimArgs builds the stream-copy trim command.
func TrimArgs(input, output string, start, end float64) []string {
	return []string{
		"-i", input,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-c", "copy",
		output,
	}
}

// ExtractArgs builds the audio extraction command for format.
func ExtractArgs(input, output string, format AudioFormat) []string {
	args := []string{"-i", input, "-vn"}
	args = append(args, codecArgs[format]...)
	return append(args, output)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// Processor runs trim and extraction jobs on an Engine.
type Processor struct {
	engine  Engine
	maxSize int64
}

func NewProcessor(engine Engine) *Processor {
	return &Processor{engine: engine, maxSize: MaxUploadSize}
}

// Trim cuts [start, end) seconds out of an audio or video file without re-encoding.
func (p *Processor) Trim(ctx context.Context, in model.MediaFile, start, end float64) (*model.MediaFile, error) {
	kind, ok := KindOf(in.ContentType)
	if !ok {
		return nil, ErrNotMedia
	}
	if in.Size() > p.maxSize {
		return nil, ErrTooLarge
	}
	if start < 0 || end <= start {
		return nil, ErrInvalidRange
	}

	ext := inputExt(in.Name, kind)

	var out []byte
	err := Run(ctx, p.engine, func(ctx context.Context, ws *Workspace) error {
		input := ws.File("input" + ext)
		output := ws.File("trimmed" + ext)

		var err error
		out, err = convert(ctx, ws, input, output, in.Data, TrimArgs(input, output, start, end))
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("name", in.Name).
		Float64("start", start).
		Float64("end", end).
		Int("bytes", len(out)).
		Msg("Media trimmed")

	return &model.MediaFile{
		Name:        "trimmed-" + displayName(in.Name),
		ContentType: string(kind) + "/" + strings.TrimPrefix(ext, "."),
		Data:        out,
	}, nil
}

// ExtractAudio drops the video stream of in and encodes its audio as format.
func (p *Processor) ExtractAudio(ctx context.Context, in model.MediaFile, format AudioFormat) (*model.MediaFile, error) {
	if kind, ok := KindOf(in.ContentType); !ok || kind != KindVideo {
		return nil, ErrNotVideo
	}
	if in.Size() > p.maxSize {
		return nil, ErrTooLarge
	}
	if _, ok := codecArgs[format]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	ext := inputExt(in.Name, KindVideo)

	var out []byte
	err := Run(ctx, p.engine, func(ctx context.Context, ws *Workspace) error {
		input := ws.File("input" + ext)
		output := ws.File("output." + string(format))

		var err error
		out, err = convert(ctx, ws, input, output, in.Data, ExtractArgs(input, output, format))
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("name", in.Name).
		Str("format", string(format)).
		Int("bytes", len(out)).
		Msg("Audio extracted")

	return &model.MediaFile{
		Name:        "extracted-audio." + string(format),
		ContentType: "audio/" + string(format),
		Data:        out,
	}, nil
}

func convert(ctx context.Context, ws *Workspace, input, output string, data []byte, args []string) ([]byte, error) {
	if err := ws.Write(ctx, input, data); err != nil {
		return nil, fmt.Errorf("%w: write input: %v", ErrEngine, err)
	}
	if err := ws.Exec(ctx, args); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}
	out, err := ws.Read(ctx, output)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrEngine, err)
	}
	return out, nil
}

// inputExt keeps the upload's extension so the engine can probe the container.
func inputExt(name string, kind MediaKind) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if ext == "" || ext == "." || strings.ContainsAny(ext, " \t") {
		return kind.defaultExt()
	}
	return ext
}

func displayName(name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
