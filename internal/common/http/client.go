// internal/common/http/client.go
package http

import (
	"net/http"
	"time"
)

// Client is the outbound HTTP client shared by the model adapter and the
// notification senders.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Standard exposes the underlying client for SDKs that take one.
func (c *Client) Standard() *http.Client {
	return c.httpClient
}
