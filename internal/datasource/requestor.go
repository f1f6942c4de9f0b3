package datasource

import (
	"io"
	"net/http"

	"github.com/gregjones/httpcache"
)

// Fetcher retrieves the raw datafile bytes for a single URL. The default implementation
// wraps an *http.Client's transport with httpcache so an unchanged datafile short-circuits
// to a cached response, the same technique the teacher's requestor uses for its polling
// endpoints.
type Fetcher struct {
	httpClient *http.Client
	url        string
}

// NewFetcher builds a Fetcher for url. A nil httpClient uses http.DefaultClient's transport
// as the base, decorated with an in-memory httpcache layer.
func NewFetcher(url string, httpClient *http.Client) *Fetcher {
	base := http.DefaultClient
	if httpClient != nil {
		base = httpClient
	}
	decorated := *base
	decorated.Transport = &httpcache.Transport{
		Cache:               httpcache.NewMemoryCache(),
		MarkCachedResponses: true,
		Transport:           decorated.Transport,
	}
	return &Fetcher{httpClient: &decorated, url: url}
}

// Fetch performs the GET request and returns the response body. cached reports whether the
// httpcache layer served the previous response unchanged (status 304) rather than a live
// body; callers should skip re-parsing in that case.
func (f *Fetcher) Fetch() (body []byte, cached bool, err error) {
	req, err := http.NewRequest(http.MethodGet, f.url, nil)
	if err != nil {
		return nil, false, err
	}

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	if err := checkForHTTPError(res.StatusCode, f.url); err != nil {
		return nil, false, err
	}

	fromCache := res.Header.Get(httpcache.XFromCache) != ""
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, false, err
	}
	return data, fromCache, nil
}
