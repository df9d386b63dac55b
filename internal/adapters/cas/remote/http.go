// Package remote implements optional remote cache backends for CacheStore.
// A remote miss always falls through to a local miss; a push failure is
// logged as a warning and never fails the task that produced it.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RemoteCache = (*HTTPCache)(nil)

// HTTPCache implements ports.RemoteCache over a plain HTTP GET/PUT
// contract: GET <base>/<key>.cache (200 = hit, 404 = miss), PUT
// <base>/<key>.cache (2xx = accepted). It uses
// hashicorp/go-retryablehttp so transient network failures are retried
// below the application-level miss/push-failure semantics.
type HTTPCache struct {
	base   string
	token  string
	client *retryablehttp.Client
}

// NewHTTPCache creates an HTTPCache rooted at baseURL. token, if non-empty,
// is sent as a bearer token on every request.
func NewHTTPCache(baseURL, token string) *HTTPCache {
	client := retryablehttp.NewClient()
	client.Logger = nil // the host's own logger records outcomes, not retryablehttp's internal retries
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 500 * time.Millisecond
	return &HTTPCache{
		base:   strings.TrimSuffix(baseURL, "/"),
		token:  token,
		client: client,
	}
}

// Pull fetches the cached payload for key, if the remote has one.
func (c *HTTPCache) Pull(ctx context.Context, key string) ([]byte, bool, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url(key), nil)
	if err != nil {
		return nil, false, zerr.Wrap(err, "failed to build remote cache GET request")
	}
	c.authorize(req.Request)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, zerr.With(zerr.Wrap(err, "remote cache GET failed"), "key", key)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, zerr.With(zerr.New("unexpected remote cache status"), "status", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, zerr.Wrap(err, "failed to read remote cache body")
	}
	return data, true, nil
}

// Push uploads the payload for key. Per the cache contract, callers must
// treat a non-nil error here as a warning, never a task failure.
func (c *HTTPCache) Push(ctx context.Context, key string, data []byte) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, c.url(key), bytes.NewReader(data))
	if err != nil {
		return zerr.Wrap(err, "failed to build remote cache PUT request")
	}
	c.authorize(req.Request)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "remote cache PUT failed"), "key", key)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zerr.With(zerr.New("unexpected remote cache status"), "status", resp.StatusCode)
	}
	return nil
}

func (c *HTTPCache) url(key string) string {
	return fmt.Sprintf("%s/%s.cache", c.base, key)
}

func (c *HTTPCache) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// NotImplementedCache is used for the reserved "gcs" and "azure" backend
// identifiers: the distilled spec names them as future backends but no
// component implements them yet.
type NotImplementedCache struct {
	Backend string
}

func (n NotImplementedCache) Pull(context.Context, string) ([]byte, bool, error) {
	return nil, false, zerr.With(domain.ErrCacheBackendNotImplemented, "backend", n.Backend)
}

func (n NotImplementedCache) Push(context.Context, string, []byte) error {
	return zerr.With(domain.ErrCacheBackendNotImplemented, "backend", n.Backend)
}

var _ ports.RemoteCache = NotImplementedCache{}
