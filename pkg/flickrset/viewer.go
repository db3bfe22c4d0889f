package flickrset

import (
	"errors"
	"fmt"
	"sync"

	"k8s.io/klog/v2"
)

// ErrUnknownSort is returned when a sort is selected by a name that was never configured.
var ErrUnknownSort = errors.New("unknown sort")

// Viewer holds the observable state of one photoset.
//
// Every mutation recomputes derived values before it returns, then hands a
// Snapshot to each subscriber synchronously.
type Viewer struct {
	mu sync.Mutex
	// notifyMu orders deliveries so subscribers see snapshots in mutation order.
	notifyMu sync.Mutex
	seq      uint64

	sorts    []SortEntry
	sortName string

	meta      Metadata
	titleDate string

	photos   []*Photo
	filter   filterState
	lightbox Lightbox
	editing  *Photo

	loadErr error

	subs   map[int]func(Snapshot)
	nextID int
}

// NewViewer creates a viewer for c. The built-in sorts are offered first.
func NewViewer(c *Config) *Viewer {
	return &Viewer{
		sorts:    withBuiltins(c.Sorts),
		sortName: DefaultSort.Name,
		subs:     map[int]func(Snapshot){},
	}
}

// Subscribe registers fn to receive a snapshot after every change.
// fn may read the viewer but must not mutate it.
func (v *Viewer) Subscribe(fn func(Snapshot)) (cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
	}
}

// update runs fn under the lock, then notifies subscribers outside of it.
// Concurrent updates deliver their snapshots in the order they were taken.
func (v *Viewer) update(fn func()) {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	fn()
	v.seq++
	s := v.snapshot()
	subs := make([]func(Snapshot), 0, len(v.subs))
	for _, f := range v.subs {
		subs = append(subs, f)
	}
	v.mu.Unlock()

	for _, f := range subs {
		f(s)
	}
}

// SetMetadata replaces the photoset metadata.
func (v *Viewer) SetMetadata(m Metadata) {
	v.update(func() {
		v.meta = m
		v.titleDate = titleDate(m)
	})
}

// SetPhotos installs a freshly loaded collection. An active filter is re-applied.
func (v *Viewer) SetPhotos(ps []*Photo) {
	v.update(func() {
		klog.V(1).Infof("installing %d photos", len(ps))
		v.photos = ps
		v.filter.reset(len(ps))
		v.editing = nil
		if v.filter.term != "" {
			v.photos, _ = v.filter.apply(v.filter.term, v.photos, v.sortName)
		}
	})
}

// SetLoadError records a failed load. A nil error clears it.
func (v *Viewer) SetLoadError(err error) {
	v.update(func() {
		v.loadErr = err
	})
}

// SetFilter sets the search term and recomputes the visible collection.
// Restoring the unfiltered collection also restores the sort it was in.
func (v *Viewer) SetFilter(term string) {
	v.update(func() {
		var restored string
		v.photos, restored = v.filter.apply(term, v.photos, v.sortName)
		if restored != "" {
			v.sortName = restored
		}
	})
}

// SelectSort reorders the visible collection in place.
func (v *Viewer) SelectSort(e SortEntry) {
	v.update(func() {
		klog.V(1).Infof("sorting %d photos by %s", len(v.photos), e.Name)
		e.Sorter.Sort(v.photos)
		v.sortName = e.Name
	})
}

// SelectSortByName selects a configured sort by name.
func (v *Viewer) SelectSortByName(name string) error {
	for _, e := range v.Sorts() {
		if e.Name == name {
			v.SelectSort(e)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownSort, name)
}

// BeginEdit puts p into edit mode, ending any other edit.
func (v *Viewer) BeginEdit(p *Photo) {
	v.update(func() {
		v.editing = p
	})
}

// EndEdit leaves edit mode.
func (v *Viewer) EndEdit() {
	v.update(func() {
		v.editing = nil
	})
}

// SetPhotoTitle renames p. Subscribers see the change like any other.
func (v *Viewer) SetPhotoTitle(p *Photo, title string) {
	v.update(func() {
		p.Title = title
	})
}

// ShowLightbox opens the overlay on an enlarged copy of p.
func (v *Viewer) ShowLightbox(p *Photo) {
	v.update(func() {
		v.lightbox = Lightbox{Title: p.Title, URL: LargeURL(p.URL), Visible: true}
	})
}

// CloseLightbox hides the overlay.
func (v *Viewer) CloseLightbox() {
	v.update(func() {
		v.lightbox = Lightbox{}
	})
}

// PhotoByID returns the photo with id in the full collection, or nil.
func (v *Viewer) PhotoByID(id string) *Photo {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, set := range [][]*Photo{v.photos, v.filter.saved} {
		for _, p := range set {
			if p.ID == id {
				return p
			}
		}
	}
	return nil
}

// Title returns the photoset title.
func (v *Viewer) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.meta.Title
}

// Description returns the photoset description.
func (v *Viewer) Description() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.meta.Description
}

// LastUpdate returns the D/M/YYYY date the photoset was last updated.
func (v *Viewer) LastUpdate() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.meta.LastUpdate
}

// TitleDate returns the heading shown above the photos.
func (v *Viewer) TitleDate() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.titleDate
}

// Photos returns the visible collection. The photos are shared, not copied.
func (v *Viewer) Photos() []*Photo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*Photo(nil), v.photos...)
}

// Filter returns the current search term.
func (v *Viewer) Filter() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter.term
}

// Lightbox returns the overlay state.
func (v *Viewer) Lightbox() Lightbox {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lightbox
}

// Editing returns the photo in edit mode, or nil.
func (v *Viewer) Editing() *Photo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.editing
}

// Sorts returns the selectable sorts, built-ins first.
func (v *Viewer) Sorts() []SortEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]SortEntry(nil), v.sorts...)
}

// SortName returns the name of the last selected sort.
func (v *Viewer) SortName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sortName
}

// LoadFailed reports whether the last load failed.
func (v *Viewer) LoadFailed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr != nil
}

// Err returns the error from the last failed load.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}

func titleDate(m Metadata) string {
	if m.LastUpdate == "" {
		return m.Title
	}
	return fmt.Sprintf("%s (updated %s)", m.Title, m.LastUpdate)
}
