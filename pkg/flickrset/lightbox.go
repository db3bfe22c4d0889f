package flickrset

import "strings"

// LightboxSize is the Flickr size suffix used for the enlarged view ("b" = 1024px).
var LightboxSize = "b"

// Lightbox is the enlarged-image overlay.
type Lightbox struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Visible bool   `json:"visible"`
}

// LargeURL swaps the size suffix of a static image URL for LightboxSize.
func LargeURL(u string) string {
	us := strings.LastIndex(u, "_")
	dot := strings.LastIndex(u, ".")
	if us < 0 || dot < us {
		return u
	}
	return u[:us+1] + LightboxSize + u[dot:]
}
