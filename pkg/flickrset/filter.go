package flickrset

import (
	"slices"
	"strings"

	"k8s.io/klog/v2"
)

// filterState tracks the search term and the collection to restore when it is cleared.
type filterState struct {
	term string
	// saved is captured by the first filter pass over the full collection.
	saved []*Photo
	// savedSort is the sort saved was in.
	savedSort string
	// fullLen is the size of the collection as loaded.
	fullLen int
}

// reset forgets any snapshot and records the size of a freshly loaded collection.
func (f *filterState) reset(n int) {
	f.saved = nil
	f.savedSort = ""
	f.fullLen = n
}

// apply returns the collection to show for term, given the live one sorted by sortName.
// When a snapshot is restored, restored names the sort it was taken in.
//
// Clearing the term with no snapshot leaves the live collection as it is.
func (f *filterState) apply(term string, live []*Photo, sortName string) (out []*Photo, restored string) {
	f.term = term

	if term == "" {
		if f.saved == nil {
			klog.V(1).Infof("filter cleared with nothing to restore; keeping %d photos", len(live))
			return live, ""
		}
		klog.V(1).Infof("filter cleared; restoring %d photos sorted by %s", len(f.saved), f.savedSort)
		return slices.Clone(f.saved), f.savedSort
	}

	if len(live) == f.fullLen {
		f.saved = slices.Clone(live)
		f.savedSort = sortName
	}

	needle := strings.ToLower(term)
	out = []*Photo{}
	for _, p := range live {
		if strings.Contains(strings.ToLower(p.Title), needle) {
			out = append(out, p)
		}
	}
	klog.V(1).Infof("filter %q: %d of %d photos", term, len(out), len(live))
	return out, ""
}
