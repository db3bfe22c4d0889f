package flickrset

// PhotoView is the plain-data form of a Photo.
type PhotoView struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	OriginalIndex int    `json:"originalIndex"`
}

// Snapshot is the displayable state of a Viewer. It leaves out the sort list,
// the derived heading and the photo being edited.
type Snapshot struct {
	// Seq increases with every change; a higher Seq is a newer state.
	Seq         uint64      `json:"seq"`
	Title       string      `json:"title"`
	LastUpdate  string      `json:"lastUpdate"`
	Description string      `json:"description"`
	Photos      []PhotoView `json:"photos"`
	Filter      string      `json:"filter"`
	Lightbox    Lightbox    `json:"lightbox"`
	LoadFailed  bool        `json:"loadFailed"`
	Error       string      `json:"error,omitempty"`
}

// Serialize returns a snapshot of the current state.
func (v *Viewer) Serialize() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot()
}

// snapshot must be called with v.mu held.
func (v *Viewer) snapshot() Snapshot {
	s := Snapshot{
		Seq:         v.seq,
		Title:       v.meta.Title,
		LastUpdate:  v.meta.LastUpdate,
		Description: v.meta.Description,
		Photos:      make([]PhotoView, 0, len(v.photos)),
		Filter:      v.filter.term,
		Lightbox:    v.lightbox,
		LoadFailed:  v.loadErr != nil,
	}
	if v.loadErr != nil {
		s.Error = v.loadErr.Error()
	}
	for _, p := range v.photos {
		s.Photos = append(s.Photos, PhotoView{
			ID:            p.ID,
			URL:           p.URL,
			Title:         p.Title,
			OriginalIndex: p.OriginalIndex,
		})
	}
	return s
}
