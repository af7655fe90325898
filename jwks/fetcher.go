package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// maxKeySetBytes bounds the key set response body. Real key sets are a few KB.
const maxKeySetBytes = 1 * 1024 * 1024

// HTTPFetcher downloads a key set from a fixed URL.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
	Header http.Header // added to every request, e.g. the provider's apikey
}

// NewHTTPFetcher returns an HTTPFetcher with a 30s timeout client.
func NewHTTPFetcher(url string, header http.Header) *HTTPFetcher {
	return &HTTPFetcher{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
		Header: header,
	}
}

// FetchKeySet implements Fetcher.
func (f *HTTPFetcher) FetchKeySet(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range f.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	set, err := jwk.ParseReader(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse key set: %w", err)
	}
	return set, nil
}

// StatusError reports a non-200 key set response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("key set request returned status %d, expected 200", e.StatusCode)
}
