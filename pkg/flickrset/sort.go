package flickrset

import (
	"sort"
)

// Sorter reorders a photo collection in place.
type Sorter interface {
	Sort(ps []*Photo)
}

// SorterFunc adapts a function to the Sorter interface.
type SorterFunc func(ps []*Photo)

// Sort calls f(ps).
func (f SorterFunc) Sort(ps []*Photo) {
	f(ps)
}

// SortEntry is a named, selectable sort option.
type SortEntry struct {
	Name   string
	Sorter Sorter
}

// DefaultSort restores arrival order.
var DefaultSort = SortEntry{
	Name: "default",
	Sorter: SorterFunc(func(ps []*Photo) {
		sort.SliceStable(ps, func(i, j int) bool {
			return ps[i].OriginalIndex < ps[j].OriginalIndex
		})
	}),
}

// TitleSort orders by title, comparing bytes.
var TitleSort = SortEntry{
	Name: "title",
	Sorter: SorterFunc(func(ps []*Photo) {
		sort.SliceStable(ps, func(i, j int) bool {
			return ps[i].Title < ps[j].Title
		})
	}),
}

// withBuiltins returns DefaultSort and TitleSort followed by extra.
func withBuiltins(extra []SortEntry) []SortEntry {
	ss := make([]SortEntry, 0, len(extra)+2)
	ss = append(ss, DefaultSort, TitleSort)
	return append(ss, extra...)
}
