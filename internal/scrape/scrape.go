// Package scrape ingests source images from external platforms and lands
// them in the blob store and the source tables.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const userAgent = "bot"

// Client fetches upstream resources with per-host circuit breaking.
type Client struct {
	http    *http.Client
	breaker *Breaker
}

func NewClient(httpClient *http.Client, breaker *Breaker) *Client {
	return &Client{http: httpClient, breaker: breaker}
}

// get fetches rawURL and returns the response body. Non-2xx statuses count
// as failures against the host's circuit.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %s: %w", rawURL, err)
	}

	var body []byte
	err = c.breaker.Do(u.Host, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
