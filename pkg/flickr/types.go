package flickr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMismatch is returned when a response describes a photoset other than the configured one.
var ErrMismatch = errors.New("photoset id mismatch")

// ErrUnexpectedCallback is returned when a response is wrapped in a callback no request is waiting on.
var ErrUnexpectedCallback = errors.New("unexpected jsonp callback")

// APIError is a "stat":"fail" response from Flickr.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flickr error %d: %s", e.Code, e.Message)
}

// Photoset is the metadata returned by flickr.photosets.getInfo.
type Photoset struct {
	ID          string
	Title       string
	Description string
	// Updated is the last update time in seconds since the Unix epoch.
	Updated int64
}

// RawPhoto is a photo descriptor as returned by flickr.photosets.getPhotos.
type RawPhoto struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
	Server string `json:"server"`
	Farm   int    `json:"farm"`
	Title  string `json:"title"`
}

type envelope struct {
	Stat    string `json:"stat"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type content struct {
	Content string `json:"_content"`
}

// epoch accepts both 1357000000 and "1357000000"; Flickr sends the latter.
type epoch int64

func (e *epoch) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("epoch %s: %w", b, err)
		}
		n = json.Number(s)
	}
	if n == "" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return fmt.Errorf("epoch %q: %w", n, err)
	}
	*e = epoch(v)
	return nil
}

type infoResponse struct {
	Photoset struct {
		ID          string  `json:"id"`
		Title       content `json:"title"`
		Description content `json:"description"`
		DateUpdate  epoch   `json:"date_update"`
	} `json:"photoset"`
}

type photosResponse struct {
	Photoset struct {
		ID    string     `json:"id"`
		Photo []RawPhoto `json:"photo"`
	} `json:"photoset"`
}
