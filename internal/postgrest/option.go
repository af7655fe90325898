package postgrest

import (
	"errors"
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithTimeout sets the per-request timeout on a fresh HTTP client.
// If not specified, defaults to 20 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return errors.New("timeout must be positive")
		}
		c.httpClient = &http.Client{Timeout: timeout}
		return nil
	}
}
