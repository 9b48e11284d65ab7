package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrUnavailable is returned (wrapped) whenever the catalog cannot be fetched
// or decoded. Callers treat it as "no catalog information".
var ErrUnavailable = errors.New("catalog unavailable")

// maxCatalogBytes bounds how much of a catalog response is read.
const maxCatalogBytes = 32 << 20

// Client fetches the catalog over HTTP.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a Client for the catalog at url. timeout bounds the whole
// request; zero means no timeout.
func NewClient(url string, timeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		url:    url,
		client: &http.Client{Transport: tr, Timeout: timeout},
	}
}

// URL returns the catalog location.
func (c *Client) URL() string {
	return c.url
}

// FetchAll retrieves the full catalog. Every failure wraps ErrUnavailable.
func (c *Client) FetchAll(ctx context.Context) (Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d from %s", ErrUnavailable, resp.StatusCode, c.url)
	}

	var cat Catalog
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBytes)).Decode(&cat); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, c.url, err)
	}
	if cat == nil {
		cat = Catalog{}
	}
	return cat, nil
}
