package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikhailRaia/media-proxy/internal/fetcher"
	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/MikhailRaia/media-proxy/internal/service"
	"github.com/rs/zerolog/log"
)

// maxDownloadRequestBody bounds the JSON request, not the proxied payload.
const maxDownloadRequestBody = 64 << 10

// handleDownload proxies the URL named in {"url": "..."} and relays the payload.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req *model.FetchRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDownloadRequestBody)).Decode(&req)

	// A missing or non-string url is forwarded as empty and rejected by validation.
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		req = &model.FetchRequest{}
	case err != nil:
		log.Debug().Err(err).Msg("Failed to decode download request")
		writeError(w, http.StatusInternalServerError, fetcher.MsgUnknown)
		return
	case req == nil:
		writeError(w, http.StatusInternalServerError, fetcher.MsgUnknown)
		return
	}
	rawURL := req.URL

	result, err := h.fetchService.Download(r.Context(), clientID(r), rawURL)
	if err != nil {
		status, message := service.ErrorStatus(err)
		writeError(w, status, message)
		return
	}

	length := int64(-1)
	if result.HasContentLength() {
		length = int64(len(result.Data))
	}
	writeAttachment(w, result.ContentType, "attachment", length, result.Data)
}
