package handler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/MikhailRaia/media-proxy/internal/auth"
	"github.com/MikhailRaia/media-proxy/internal/handoff"
	"github.com/MikhailRaia/media-proxy/internal/middleware"
	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/MikhailRaia/media-proxy/internal/transcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProcessor struct {
	trimFunc    func(ctx context.Context, in model.MediaFile, start, end float64) (*model.MediaFile, error)
	extractFunc func(ctx context.Context, in model.MediaFile, format transcode.AudioFormat) (*model.MediaFile, error)
}

func (m *mockProcessor) Trim(ctx context.Context, in model.MediaFile, start, end float64) (*model.MediaFile, error) {
	return m.trimFunc(ctx, in, start, end)
}

func (m *mockProcessor) ExtractAudio(ctx context.Context, in model.MediaFile, format transcode.AudioFormat) (*model.MediaFile, error) {
	return m.extractFunc(ctx, in, format)
}

type upload struct {
	name        string
	contentType string
	data        string
}

func multipartRequest(t *testing.T, path string, file *upload, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.name))
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(file.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_handleTrim(t *testing.T) {
	tests := []struct {
		name        string
		file        *upload
		fields      map[string]string
		procErr     error
		wantStatus  int
		wantMessage string
		wantStart   float64
		wantEnd     float64
	}{
		{
			name:       "Seconds",
			file:       &upload{"song.mp3", "audio/mpeg", "audio-bytes"},
			fields:     map[string]string{"start": "1.5", "end": "4"},
			wantStatus: http.StatusOK,
			wantStart:  1.5,
			wantEnd:    4,
		},
		{
			name:       "Display format",
			file:       &upload{"song.mp3", "audio/mpeg", "audio-bytes"},
			fields:     map[string]string{"start": "00:01.50", "end": "01:00.00"},
			wantStatus: http.StatusOK,
			wantStart:  1.5,
			wantEnd:    60,
		},
		{
			name:        "Missing end",
			file:        &upload{"song.mp3", "audio/mpeg", "audio-bytes"},
			fields:      map[string]string{"start": "1"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: msgInvalidRange,
		},
		{
			name:        "NaN start",
			file:        &upload{"song.mp3", "audio/mpeg", "audio-bytes"},
			fields:      map[string]string{"start": "NaN", "end": "3"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: msgInvalidRange,
		},
		{
			name:        "No file",
			fields:      map[string]string{"start": "1", "end": "2"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: msgNoFile,
		},
		{
			name:        "Not media",
			file:        &upload{"notes.txt", "text/plain", "hello"},
			fields:      map[string]string{"start": "1", "end": "2"},
			procErr:     transcode.ErrNotMedia,
			wantStatus:  http.StatusBadRequest,
			wantMessage: msgNotMedia,
		},
		{
			name:        "Range rejected",
			file:        &upload{"song.mp3", "audio/mpeg", "audio-bytes"},
			fields:      map[string]string{"start": "5", "end": "2"},
			procErr:     transcode.ErrInvalidRange,
			wantStatus:  http.StatusBadRequest,
			wantMessage: msgInvalidRange,
		},
		{
			name:        "Engine failure",
			file:        &upload{"song.mp3", "audio/mpeg", "audio-bytes"},
			fields:      map[string]string{"start": "1", "end": "2"},
			procErr:     fmt.Errorf("%w: exit status 1", transcode.ErrEngine),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: msgTrimFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &mockProcessor{
				trimFunc: func(ctx context.Context, in model.MediaFile, start, end float64) (*model.MediaFile, error) {
					if tt.procErr != nil {
						return nil, tt.procErr
					}
					assert.Equal(t, tt.file.name, in.Name)
					assert.Equal(t, tt.file.contentType, in.ContentType)
					assert.Equal(t, tt.file.data, string(in.Data))
					assert.InDelta(t, tt.wantStart, start, 1e-9)
					assert.InDelta(t, tt.wantEnd, end, 1e-9)
					return &model.MediaFile{Name: "trimmed-" + in.Name, ContentType: "audio/mp3", Data: []byte("cut")}, nil
				},
			}
			h := NewHandler(&mockFetchService{}, nil, Options{Processor: proc}).RegisterRoutes()

			w := httptest.NewRecorder()
			h.ServeHTTP(w, multipartRequest(t, "/api/trim", tt.file, tt.fields))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, tt.wantMessage, errorMessage(t, w))
				return
			}

			assert.Equal(t, "cut", w.Body.String())
			assert.Equal(t, "audio/mp3", w.Header().Get("Content-Type"))
			assert.Equal(t, "3", w.Header().Get("Content-Length"))
			assert.Equal(t, `attachment; filename=trimmed-song.mp3`, w.Header().Get("Content-Disposition"))
		})
	}
}

func TestHandler_handleExtract(t *testing.T) {
	tests := []struct {
		name        string
		file        *upload
		format      string
		procErr     error
		wantStatus  int
		wantMessage string
		wantFormat  transcode.AudioFormat
	}{
		{
			name:       "Default format",
			file:       &upload{"clip.mp4", "video/mp4", "video-bytes"},
			wantStatus: http.StatusOK,
			wantFormat: transcode.FormatMP3,
		},
		{
			name:       "WAV",
			file:       &upload{"clip.mp4", "video/mp4", "video-bytes"},
			format:     "wav",
			wantStatus: http.StatusOK,
			wantFormat: transcode.FormatWAV,
		},
		{
			name:        "Unsupported format",
			file:        &upload{"clip.mp4", "video/mp4", "video-bytes"},
			format:      "flac",
			wantStatus:  http.StatusBadRequest,
			wantMessage: msgUnsupportedFormat,
		},
		{
			name:        "Audio input",
			file:        &upload{"song.mp3", "audio/mpeg", "audio"},
			procErr:     transcode.ErrNotVideo,
			wantStatus:  http.StatusBadRequest,
			wantMessage: msgNotVideo,
		},
		{
			name:        "Too large",
			file:        &upload{"clip.mp4", "video/mp4", "video"},
			procErr:     transcode.ErrTooLarge,
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantMessage: msgUploadTooLarge,
		},
		{
			name:        "Engine failure",
			file:        &upload{"clip.mp4", "video/mp4", "video"},
			procErr:     transcode.ErrEngine,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: msgExtractFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &mockProcessor{
				extractFunc: func(ctx context.Context, in model.MediaFile, format transcode.AudioFormat) (*model.MediaFile, error) {
					if tt.procErr != nil {
						return nil, tt.procErr
					}
					assert.Equal(t, tt.wantFormat, format)
					return &model.MediaFile{
						Name:        "extracted-audio." + string(format),
						ContentType: "audio/" + string(format),
						Data:        []byte("pcm"),
					}, nil
				},
			}
			h := NewHandler(&mockFetchService{}, nil, Options{Processor: proc}).RegisterRoutes()

			fields := map[string]string{}
			if tt.format != "" {
				fields["format"] = tt.format
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, multipartRequest(t, "/api/extract", tt.file, fields))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, tt.wantMessage, errorMessage(t, w))
				return
			}

			assert.Equal(t, "pcm", w.Body.String())
			assert.Equal(t, "audio/"+string(tt.wantFormat), w.Header().Get("Content-Type"))
			assert.Equal(t, "attachment; filename=extracted-audio."+string(tt.wantFormat), w.Header().Get("Content-Disposition"))
		})
	}
}

func TestHandler_MediaUnavailable(t *testing.T) {
	h := NewHandler(&mockFetchService{}, nil, Options{}).RegisterRoutes()

	for _, path := range []string{"/api/trim", "/api/extract", "/api/handoff"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, multipartRequest(t, path, &upload{"a.mp4", "video/mp4", "v"}, nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestHandler_HandoffIsOneShot(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	token, err := jwtService.GenerateToken("client-7")
	require.NoError(t, err)

	var received []model.MediaFile
	proc := &mockProcessor{
		extractFunc: func(ctx context.Context, in model.MediaFile, format transcode.AudioFormat) (*model.MediaFile, error) {
			received = append(received, in)
			return &model.MediaFile{Name: "extracted-audio.mp3", ContentType: "audio/mp3", Data: []byte("a")}, nil
		},
	}
	store := handoff.NewStore(0, 0)
	h := NewHandler(&mockFetchService{}, middleware.NewAuthMiddleware(jwtService), Options{
		Processor: proc,
		Handoff:   store,
	}).RegisterRoutes()

	send := func(req *http.Request) *httptest.ResponseRecorder {
		req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := send(multipartRequest(t, "/api/handoff", &upload{"movie.mp4", "video/mp4", "movie-bytes"}, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = send(multipartRequest(t, "/api/extract", nil, map[string]string{"format": "mp3"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, received, 1)
	assert.Equal(t, "movie.mp4", received[0].Name)
	assert.Equal(t, "movie-bytes", string(received[0].Data))

	w = send(multipartRequest(t, "/api/extract", nil, map[string]string{"format": "mp3"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgNoFile, errorMessage(t, w))
}

func TestHandler_HandoffRejectsNonMedia(t *testing.T) {
	store := handoff.NewStore(0, 0)
	h := NewHandler(&mockFetchService{}, nil, Options{Handoff: store}).RegisterRoutes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, "/api/handoff", &upload{"doc.pdf", "application/pdf", "%PDF"}, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgNotMedia, errorMessage(t, w))
	assert.Zero(t, store.Len())
}

func TestHandler_HandoffWithoutFile(t *testing.T) {
	h := NewHandler(&mockFetchService{}, nil, Options{Handoff: handoff.NewStore(0, 0)}).RegisterRoutes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, multipartRequest(t, "/api/handoff", nil, map[string]string{"x": "y"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgNoFile, errorMessage(t, w))
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"2.5", 2.5, true},
		{" 3 ", 3, true},
		{"01:30.50", 90.5, true},
		{"", 0, false},
		{"abc", 0, false},
		{"Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseOffset(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
