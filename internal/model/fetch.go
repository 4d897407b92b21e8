package model

// DefaultContentType is reported when upstream does not declare a content type.
const DefaultContentType = "application/octet-stream"

// FetchRequest is the JSON body accepted by the download endpoint.
type FetchRequest struct {
	URL string `json:"url"`
}

// FetchResult holds a fully buffered upstream payload and its content metadata.
type FetchResult struct {
	Data        []byte
	ContentType string
	// ContentLength is the upstream declared length, -1 when it was not declared.
	ContentLength int64
}

// HasContentLength reports whether upstream declared a Content-Length.
func (r *FetchResult) HasContentLength() bool {
	return r.ContentLength >= 0
}

// ErrorResponse is the body of every JSON error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
