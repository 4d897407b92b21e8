package handler

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"
)

// handleUserFetches lists the caller's fetch attempts, newest first.
func (h *Handler) handleUserFetches(w http.ResponseWriter, r *http.Request) {
	id := clientID(r)
	if id == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	fetches, err := h.fetchService.History(r.Context(), id, h.opts.HistoryLimit)
	if err != nil {
		log.Error().Err(err).Str("clientID", id).Msg("Failed to load fetch history")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(fetches) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, fetches)
}

// handleStats reports audit totals to callers inside the trusted subnet.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if !h.trusted(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	stats, err := h.fetchService.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load stats")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) trusted(r *http.Request) bool {
	if !h.opts.TrustedSubnet.IsValid() {
		return false
	}

	ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP")))
	if err != nil {
		return false
	}

	return h.opts.TrustedSubnet.Contains(ip.Unmap())
}
