package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"k8s.io/klog/v2"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	PhotosetID string
	HTTPClient *http.Client
}

// Client fetches one photoset. Each request carries its own callback token, so
// any number of clients can run side by side without sharing dispatch state.
type Client struct {
	base       string
	apiKey     string
	photosetID string
	httpClient *http.Client

	mu      sync.Mutex
	pending map[string]string // callback token -> method
}

// NewClient creates a new client.
func NewClient(o Options) *Client {
	base := o.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		base:       base,
		apiKey:     o.APIKey,
		photosetID: o.PhotosetID,
		httpClient: hc,
		pending:    map[string]string{},
	}
}

// PhotosetID returns the photoset this client is bound to.
func (c *Client) PhotosetID() string {
	return c.photosetID
}

// URL returns the request URL for method, asking for a JSONP response wrapped in token.
func (c *Client) URL(method, token string) string {
	return RequestURL(c.base, method, c.photosetID, c.apiKey) + "&format=json&jsoncallback=" + token
}

// FetchMetadata fetches the photoset title, description and update time.
// A response for a different photoset yields ErrMismatch.
func (c *Client) FetchMetadata(ctx context.Context) (*Photoset, error) {
	var r infoResponse
	if err := c.call(ctx, MethodGetInfo, &r); err != nil {
		return nil, err
	}

	if r.Photoset.ID != c.photosetID {
		klog.Warningf("ignoring %s response for photoset %q (want %q)", MethodGetInfo, r.Photoset.ID, c.photosetID)
		return nil, ErrMismatch
	}

	return &Photoset{
		ID:          r.Photoset.ID,
		Title:       r.Photoset.Title.Content,
		Description: r.Photoset.Description.Content,
		Updated:     int64(r.Photoset.DateUpdate),
	}, nil
}

// FetchPhotos fetches the photoset's photo descriptors in set order.
func (c *Client) FetchPhotos(ctx context.Context) ([]RawPhoto, error) {
	var r photosResponse
	if err := c.call(ctx, MethodGetPhotos, &r); err != nil {
		return nil, err
	}

	klog.V(1).Infof("%s returned %d photos for %s", MethodGetPhotos, len(r.Photoset.Photo), c.photosetID)
	return r.Photoset.Photo, nil
}

func (c *Client) call(ctx context.Context, method string, v any) error {
	token := newToken()
	c.register(token, method)
	defer c.release(token)

	u := c.URL(method, token)
	klog.V(2).Infof("GET %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status: %s", method, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", method, err)
	}

	name, payload, err := unwrapJSONP(body)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if !c.claim(name, method) {
		return fmt.Errorf("%s: %w: %q", method, ErrUnexpectedCallback, name)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	if env.Stat != "ok" {
		return &APIError{Code: env.Code, Message: env.Message}
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	return nil
}

func (c *Client) register(token, method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[token] = method
}

func (c *Client) release(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, token)
}

// claim reports whether token belongs to a pending request for method.
func (c *Client) claim(token, method string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[token] == method
}
