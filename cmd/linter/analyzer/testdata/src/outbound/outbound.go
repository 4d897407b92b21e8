package outbound

import (
	"net/http"
	"net/url"
	"strings"
)

func Download(raw string) (*http.Response, error) {
	return http.Get(raw) // want "http.Get bypasses the address guard, use the fetcher client"
}

func Probe(raw string) (*http.Response, error) {
	return http.Head(raw) // want "http.Head bypasses the address guard, use the fetcher client"
}

func Upload(raw string) (*http.Response, error) {
	return http.Post(raw, "text/plain", strings.NewReader("x")) // want "http.Post bypasses the address guard, use the fetcher client"
}

func Form(raw string) (*http.Response, error) {
	return http.PostForm(raw, url.Values{}) // want "http.PostForm bypasses the address guard, use the fetcher client"
}

func Shared(req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req) // want "http.DefaultClient bypasses the address guard, use the fetcher client"
}

func Transport() http.RoundTripper {
	return http.DefaultTransport // want "http.DefaultTransport bypasses the address guard, use the fetcher client"
}

func Guarded(client *http.Client, req *http.Request) (*http.Response, error) {
	return client.Do(req)
}
