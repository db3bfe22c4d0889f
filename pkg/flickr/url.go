// Package flickr talks to the Flickr REST API for a single photoset.
package flickr

// DefaultBaseURL is the Flickr REST endpoint.
const DefaultBaseURL = "https://api.flickr.com/services/rest/"

// Photoset API methods.
const (
	MethodGetInfo   = "getInfo"
	MethodGetPhotos = "getPhotos"
)

// RequestURL builds a photoset request URL. Fields are concatenated in a fixed
// order and are not escaped; callers must pass URL-safe values.
func RequestURL(base, method, photosetID, apiKey string) string {
	return base + "?method=flickr.photosets." + method + "&photoset_id=" + photosetID + "&api_key=" + apiKey
}
