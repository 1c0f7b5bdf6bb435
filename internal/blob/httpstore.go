package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPStore talks to the bucket through its HTTP front: plain
// GET/PUT/DELETE on <base>/<key>, authenticated with an x-secret header.
type HTTPStore struct {
	client     *http.Client
	base       string
	secret     string
	publicBase string
}

// NewHTTPStore creates a blob store backed by the bucket's HTTP front.
func NewHTTPStore(client *http.Client, base, secret, publicBase string) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPStore{
		client:     client,
		base:       base,
		secret:     secret,
		publicBase: publicBase,
	}
}

func (s *HTTPStore) do(ctx context.Context, method, key string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s/%s", s.base, key), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-secret", s.secret)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 400 {
		res.Body.Close()
		return nil, fmt.Errorf("blob store: %s %s: %s", method, key, res.Status)
	}
	return res, nil
}

func (s *HTTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.do(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

func (s *HTTPStore) Put(ctx context.Context, key string, value []byte) error {
	res, err := s.do(ctx, http.MethodPut, key, bytes.NewReader(value))
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

func (s *HTTPStore) Delete(ctx context.Context, key string) error {
	res, err := s.do(ctx, http.MethodDelete, key, nil)
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

func (s *HTTPStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", s.publicBase, key)
}
