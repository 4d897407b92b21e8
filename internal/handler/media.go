package handler

import (
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/MikhailRaia/media-proxy/internal/handoff"
	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/MikhailRaia/media-proxy/internal/transcode"
	"github.com/rs/zerolog/log"
)

const (
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

const (
	msgNoFile            = "No file provided"
	msgNotMedia          = "Please upload an audio or video file"
	msgNotVideo          = "Please upload a video file"
	msgUploadTooLarge    = "File is too large. Max 500MB."
	msgInvalidRange      = "Invalid trim range"
	msgUnsupportedFormat = "Unsupported audio format"
	msgTrimFailed        = "Trimming failed. Try again."
	msgExtractFailed     = "Extraction failed. Try a different format."
	msgUnavailable       = "Media processing is unavailable"
	msgHandoffFull       = "Too many files waiting, try again later"
)

var errUploadTooLarge = errors.New("upload too large")

// handleHandoff parks an uploaded file for the caller's next trim or extract.
func (h *Handler) handleHandoff(w http.ResponseWriter, r *http.Request) {
	if h.opts.Handoff == nil {
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	file, ok := h.readUpload(w, r, false)
	if !ok {
		return
	}
	if _, isMedia := transcode.KindOf(file.ContentType); !isMedia {
		writeError(w, http.StatusBadRequest, msgNotMedia)
		return
	}

	if err := h.opts.Handoff.Put(clientID(r), file); err != nil {
		log.Warn().Err(err).Str("clientID", clientID(r)).Msg("Handoff rejected")
		writeError(w, http.StatusServiceUnavailable, msgHandoffFull)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleTrim cuts the [start, end] range out of the uploaded or handed-off file.
func (h *Handler) handleTrim(w http.ResponseWriter, r *http.Request) {
	if h.opts.Processor == nil {
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	file, ok := h.readUpload(w, r, true)
	if !ok {
		return
	}

	start, okStart := parseOffset(r.FormValue("start"))
	end, okEnd := parseOffset(r.FormValue("end"))
	if !okStart || !okEnd {
		writeError(w, http.StatusBadRequest, msgInvalidRange)
		return
	}

	out, err := h.opts.Processor.Trim(r.Context(), file, start, end)
	if err != nil {
		h.writeTranscodeError(w, err, msgTrimFailed)
		return
	}

	writeAttachment(w, out.ContentType, attachment(out.Name), out.Size(), out.Data)
}

// handleExtract drops the video stream and encodes the audio in the requested format.
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	if h.opts.Processor == nil {
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	file, ok := h.readUpload(w, r, true)
	if !ok {
		return
	}

	format, err := transcode.ParseAudioFormat(r.FormValue("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgUnsupportedFormat)
		return
	}

	out, err := h.opts.Processor.ExtractAudio(r.Context(), file, format)
	if err != nil {
		h.writeTranscodeError(w, err, msgExtractFailed)
		return
	}

	writeAttachment(w, out.ContentType, attachment(out.Name), out.Size(), out.Data)
}

// readUpload returns the multipart "file" part. Without one, and when
// allowHandoff is set, the caller's handed-off file is taken instead.
// On failure the response has been written.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, allowHandoff bool) (model.MediaFile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, transcode.MaxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return model.MediaFile{}, false
		}
		log.Debug().Err(err).Msg("Failed to parse upload")
		writeError(w, http.StatusBadRequest, msgNoFile)
		return model.MediaFile{}, false
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		if !allowHandoff || h.opts.Handoff == nil {
			writeError(w, http.StatusBadRequest, msgNoFile)
			return model.MediaFile{}, false
		}

		file, takeErr := h.opts.Handoff.Take(clientID(r))
		if takeErr != nil {
			if !errors.Is(takeErr, handoff.ErrEmpty) {
				log.Error().Err(takeErr).Msg("Failed to take handed-off file")
			}
			writeError(w, http.StatusBadRequest, msgNoFile)
			return model.MediaFile{}, false
		}
		return file, true
	}
	defer part.Close()

	data, err := readLimited(part, transcode.MaxUploadSize)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
		} else {
			log.Debug().Err(err).Msg("Failed to read upload")
			writeError(w, http.StatusBadRequest, msgNoFile)
		}
		return model.MediaFile{}, false
	}

	return model.MediaFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

func (h *Handler) writeTranscodeError(w http.ResponseWriter, err error, failure string) {
	switch {
	case errors.Is(err, transcode.ErrNotMedia):
		writeError(w, http.StatusBadRequest, msgNotMedia)
	case errors.Is(err, transcode.ErrNotVideo):
		writeError(w, http.StatusBadRequest, msgNotVideo)
	case errors.Is(err, transcode.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
	case errors.Is(err, transcode.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, msgInvalidRange)
	case errors.Is(err, transcode.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, msgUnsupportedFormat)
	default:
		log.Error().Err(err).Msg("Media processing failed")
		writeError(w, http.StatusInternalServerError, failure)
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errUploadTooLarge
	}
	return data, nil
}

// parseOffset accepts plain seconds ("12.5") or the MM:SS.cc display form.
func parseOffset(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ":") {
		return transcode.ParseTime(s), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func attachment(filename string) string {
	if d := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); d != "" {
		return d
	}
	return "attachment"
}
