package flickrset

import (
	"fmt"
	"time"

	"github.com/tstromberg/flickrset/pkg/flickr"
	"k8s.io/klog/v2"
)

// Photo is a display-ready photo.
type Photo struct {
	ID    string
	URL   string
	Title string
	// OriginalIndex is the position the photo arrived in; it never changes.
	OriginalIndex int
}

// Metadata describes the photoset as a whole.
type Metadata struct {
	Title       string
	Description string
	LastUpdate  string

	// day, month and year are the UTC calendar date LastUpdate was formatted from.
	day, month, year int
}

// PhotoURL returns the static image URL for a raw photo at the given size suffix.
func PhotoURL(r flickr.RawPhoto, size string) string {
	return fmt.Sprintf("http://farm%d.staticflickr.com/%s/%s_%s_%s.jpg", r.Farm, r.Server, r.ID, r.Secret, size)
}

// Transform maps raw descriptors to photos, preserving order.
func Transform(raws []flickr.RawPhoto, size string) []*Photo {
	ps := make([]*Photo, 0, len(raws))
	for i, r := range raws {
		p := &Photo{
			ID:            r.ID,
			URL:           PhotoURL(r, size),
			Title:         r.Title,
			OriginalIndex: i,
		}
		klog.V(2).Infof("photo %d: %+v", i, p)
		ps = append(ps, p)
	}
	return ps
}

// NewMetadata converts a fetched photoset into view metadata. Dates are
// rendered as D/M/YYYY in UTC.
func NewMetadata(ps *flickr.Photoset) Metadata {
	t := time.Unix(ps.Updated, 0).UTC()
	m := Metadata{
		Title:       ps.Title,
		Description: ps.Description,
		day:         t.Day(),
		month:       int(t.Month()),
		year:        t.Year(),
	}
	m.LastUpdate = fmt.Sprintf("%d/%d/%d", m.day, m.month, m.year)
	return m
}
