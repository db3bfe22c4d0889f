// Package flickrset binds a single Flickr photoset to observable view state.
package flickrset

import (
	"net/http"

	"github.com/tstromberg/flickrset/pkg/flickr"
)

// DefaultImageSize is the Flickr size suffix used for the photo grid ("m" = 240px).
var DefaultImageSize = "m"

// Config holds configuration for a viewer. It is supplied once at startup.
type Config struct {
	APIKey     string
	PhotosetID string
	ImageSize  string

	// Sorts are caller-supplied sort options, offered after the built-ins.
	Sorts []SortEntry

	BaseURL    string
	HTTPClient *http.Client
}

func (c *Config) size() string {
	if c.ImageSize == "" {
		return DefaultImageSize
	}
	return c.ImageSize
}

func (c *Config) client() *flickr.Client {
	return flickr.NewClient(flickr.Options{
		BaseURL:    c.BaseURL,
		APIKey:     c.APIKey,
		PhotosetID: c.PhotosetID,
		HTTPClient: c.HTTPClient,
	})
}
