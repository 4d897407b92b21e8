package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/MikhailRaia/media-proxy/internal/pool"
	"github.com/rs/zerolog/log"
)

var bufferPool = pool.New(64, func() *bytes.Buffer { return new(bytes.Buffer) })

var compressibleTypes = []string{
	"application/json",
	"text/html",
	"text/plain",
}

func isCompressible(contentType string) bool {
	for _, t := range compressibleTypes {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

type bufferedWriter struct {
	http.ResponseWriter
	statusCode int
	buf        *bytes.Buffer
}

// WriteHeader captures the status code without immediately writing it.
func (w *bufferedWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
}

// Write appends to the pooled buffer.
func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

// GzipMiddleware compresses JSON and text responses when the client accepts gzip.
// Media payloads pass through untouched.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		buf := bufferPool.Get()
		defer bufferPool.Put(buf)

		bw := &bufferedWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			buf:            buf,
		}

		next.ServeHTTP(bw, r)

		if buf.Len() == 0 || !isCompressible(w.Header().Get("Content-Type")) {
			w.WriteHeader(bw.statusCode)
			w.Write(buf.Bytes())
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")
		w.WriteHeader(bw.statusCode)

		gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create gzip writer")
			return
		}
		if _, err := gz.Write(buf.Bytes()); err != nil {
			log.Debug().Err(err).Msg("Failed to write gzipped response")
		}
		if err := gz.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to flush gzipped response")
		}
	})
}

// GzipReader transparently decompresses gzipped request bodies.
func GzipReader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") != "gzip" {
			next.ServeHTTP(w, r)
			return
		}

		gzReader, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, "Failed to read gzipped request", http.StatusBadRequest)
			return
		}
		defer gzReader.Close()

		r.Body = io.NopCloser(gzReader)
		r.ContentLength = -1
		r.Header.Del("Content-Encoding")

		next.ServeHTTP(w, r)
	})
}
