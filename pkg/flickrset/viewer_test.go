package flickrset

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func titles(ps []*Photo) []string {
	out := []string{}
	for _, p := range ps {
		out = append(out, p.Title)
	}
	return out
}

func newLoadedViewer(t *testing.T, ts ...string) *Viewer {
	t.Helper()
	v := NewViewer(&Config{})
	ps := make([]*Photo, len(ts))
	for i, title := range ts {
		ps[i] = &Photo{
			ID:            string(rune('a' + i)),
			URL:           "http://farm1.staticflickr.com/1/" + string(rune('a'+i)) + "_s_m.jpg",
			Title:         title,
			OriginalIndex: i,
		}
	}
	v.SetPhotos(ps)
	return v
}

func TestFilter(t *testing.T) {
	v := newLoadedViewer(t, "Cat nap", "Dog run", "Catalog")
	v.SetFilter("cat")

	if diff := cmp.Diff([]string{"Cat nap", "Catalog"}, titles(v.Photos())); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
	if v.Filter() != "cat" {
		t.Errorf("Filter() = %q", v.Filter())
	}
}

func TestFilterRestoreKeepsEdits(t *testing.T) {
	v := newLoadedViewer(t, "Cat nap", "Dog run", "Catalog")
	v.SelectSort(TitleSort)
	before := v.Photos()

	v.SetFilter("cat")
	p := v.Photos()[1]
	v.BeginEdit(p)
	v.SetPhotoTitle(p, "Catalogue")
	v.EndEdit()

	v.SetFilter("")
	after := v.Photos()
	if len(after) != len(before) {
		t.Fatalf("restored %d photos, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("position %d: got %q, want %q", i, after[i].Title, before[i].Title)
		}
	}
	if diff := cmp.Diff([]string{"Cat nap", "Catalogue", "Dog run"}, titles(after)); diff != "" {
		t.Errorf("restore mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterNarrowingKeepsFirstSnapshot(t *testing.T) {
	v := newLoadedViewer(t, "Cat nap", "Dog run", "Catalog")
	v.SetFilter("cat")
	v.SetFilter("catal")
	if diff := cmp.Diff([]string{"Catalog"}, titles(v.Photos())); diff != "" {
		t.Errorf("narrowed filter mismatch (-want +got):\n%s", diff)
	}

	v.SetFilter("")
	if diff := cmp.Diff([]string{"Cat nap", "Dog run", "Catalog"}, titles(v.Photos())); diff != "" {
		t.Errorf("restore mismatch (-want +got):\n%s", diff)
	}
}

func TestClearFilterWithoutSnapshot(t *testing.T) {
	v := newLoadedViewer(t, "b", "a")
	v.SetFilter("")
	if diff := cmp.Diff([]string{"b", "a"}, titles(v.Photos())); diff != "" {
		t.Errorf("clear without snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSetPhotosReappliesFilter(t *testing.T) {
	v := NewViewer(&Config{})
	v.SetFilter("dog")
	v.SetPhotos([]*Photo{{Title: "Dog run"}, {Title: "Cat nap", OriginalIndex: 1}})
	if diff := cmp.Diff([]string{"Dog run"}, titles(v.Photos())); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	v.SetFilter("")
	if got := len(v.Photos()); got != 2 {
		t.Errorf("restored %d photos, want 2", got)
	}
}

func TestSelectSortByName(t *testing.T) {
	v := newLoadedViewer(t, "b", "c", "a")
	if err := v.SelectSortByName("title"); err != nil {
		t.Fatalf("SelectSortByName: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, titles(v.Photos())); diff != "" {
		t.Errorf("title sort mismatch (-want +got):\n%s", diff)
	}
	if err := v.SelectSortByName("default"); err != nil {
		t.Fatalf("SelectSortByName: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c", "a"}, titles(v.Photos())); diff != "" {
		t.Errorf("default sort mismatch (-want +got):\n%s", diff)
	}
	if v.SortName() != "default" {
		t.Errorf("SortName() = %q", v.SortName())
	}
	if err := v.SelectSortByName("nope"); err == nil {
		t.Error("expected error for unknown sort")
	}
}

func TestLightbox(t *testing.T) {
	v := newLoadedViewer(t, "Cat nap")
	p := v.Photos()[0]

	v.ShowLightbox(p)
	want := Lightbox{Title: "Cat nap", URL: "http://farm1.staticflickr.com/1/a_s_b.jpg", Visible: true}
	if diff := cmp.Diff(want, v.Lightbox()); diff != "" {
		t.Errorf("ShowLightbox mismatch (-want +got):\n%s", diff)
	}

	v.CloseLightbox()
	if diff := cmp.Diff(Lightbox{}, v.Lightbox()); diff != "" {
		t.Errorf("CloseLightbox mismatch (-want +got):\n%s", diff)
	}
}

func TestLargeURL(t *testing.T) {
	tests := map[string]string{
		"http://farm9.staticflickr.com/8356/8313_ab12_m.jpg": "http://farm9.staticflickr.com/8356/8313_ab12_b.jpg",
		"http://farm9.staticflickr.com/8356/8313_ab12_q.jpg": "http://farm9.staticflickr.com/8356/8313_ab12_b.jpg",
		"noextension": "noextension",
	}
	for in, want := range tests {
		if got := LargeURL(in); got != want {
			t.Errorf("LargeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEditing(t *testing.T) {
	v := newLoadedViewer(t, "a", "b")
	ps := v.Photos()
	v.BeginEdit(ps[0])
	v.BeginEdit(ps[1])
	if v.Editing() != ps[1] {
		t.Errorf("Editing() = %v, want %v", v.Editing(), ps[1])
	}
	v.EndEdit()
	if v.Editing() != nil {
		t.Errorf("Editing() = %v after EndEdit", v.Editing())
	}
}

func TestTitleDate(t *testing.T) {
	v := NewViewer(&Config{})
	v.SetMetadata(Metadata{Title: "Autumn", LastUpdate: "14/11/2023"})
	if got, want := v.TitleDate(), "Autumn (updated 14/11/2023)"; got != want {
		t.Errorf("TitleDate() = %q, want %q", got, want)
	}
	v.SetMetadata(Metadata{Title: "Winter", LastUpdate: "1/1/2013"})
	if got, want := v.TitleDate(), "Winter (updated 1/1/2013)"; got != want {
		t.Errorf("TitleDate() = %q, want %q", got, want)
	}
}

func TestSerializeOmitsDerivedFields(t *testing.T) {
	v := newLoadedViewer(t, "Cat nap", "Dog run")
	v.SetMetadata(Metadata{Title: "Pets", LastUpdate: "1/2/2020", Description: "mine"})
	v.BeginEdit(v.Photos()[0])
	v.SetFilter("dog")

	bs, err := json.Marshal(v.Serialize())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(bs)
	for _, bad := range []string{"sorts", "titleDate", "Pets (updated", "editing"} {
		if strings.Contains(out, bad) {
			t.Errorf("serialized state contains %q: %s", bad, out)
		}
	}

	s := v.Serialize()
	if s.Title != "Pets" || s.Filter != "dog" || len(s.Photos) != 1 || s.Photos[0].Title != "Dog run" {
		t.Errorf("unexpected snapshot: %+v", s)
	}
}

func TestSubscribe(t *testing.T) {
	v := newLoadedViewer(t, "Cat nap", "Dog run")

	var got []Snapshot
	cancel := v.Subscribe(func(s Snapshot) {
		got = append(got, s)
		// Subscribers may read the viewer.
		_ = v.TitleDate()
	})

	v.SetFilter("cat")
	if len(got) != 1 || len(got[0].Photos) != 1 {
		t.Fatalf("after SetFilter got %d snapshots: %+v", len(got), got)
	}

	p := v.Photos()[0]
	v.SetPhotoTitle(p, "Cat naps")
	if len(got) != 2 || got[1].Photos[0].Title != "Cat naps" {
		t.Fatalf("title edit not delivered: %+v", got)
	}

	cancel()
	v.CloseLightbox()
	if len(got) != 2 {
		t.Errorf("received %d snapshots after cancel, want 2", len(got))
	}
}

func TestPhotoByID(t *testing.T) {
	v := newLoadedViewer(t, "Cat nap", "Dog run")
	v.SetFilter("cat")
	if p := v.PhotoByID("b"); p == nil || p.Title != "Dog run" {
		t.Errorf("PhotoByID(b) = %+v, want the filtered-out photo", p)
	}
	if p := v.PhotoByID("zz"); p != nil {
		t.Errorf("PhotoByID(zz) = %+v, want nil", p)
	}
}

func TestClearFilterRestoresSort(t *testing.T) {
	v := newLoadedViewer(t, "Dog run", "Cat nap", "Catalog")
	v.SetFilter("cat")
	v.SelectSort(TitleSort)
	if v.SortName() != "title" {
		t.Fatalf("SortName() = %q", v.SortName())
	}

	v.SetFilter("")
	if diff := cmp.Diff([]string{"Dog run", "Cat nap", "Catalog"}, titles(v.Photos())); diff != "" {
		t.Errorf("restored mismatch (-want +got):\n%s", diff)
	}
	if v.SortName() != "default" {
		t.Errorf("SortName() = %q after restore, want default", v.SortName())
	}
}

func TestConcurrentUpdatesDeliverInOrder(t *testing.T) {
	for round := 0; round < 20; round++ {
		v := newLoadedViewer(t, "Cat nap", "Dog run")

		var mu sync.Mutex
		var last Snapshot
		var outOfOrder int
		v.Subscribe(func(s Snapshot) {
			// A slow subscriber widens the window between snapshot and delivery.
			time.Sleep(50 * time.Microsecond)
			mu.Lock()
			defer mu.Unlock()
			if s.Seq <= last.Seq {
				outOfOrder++
			}
			last = s
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v.SetFilter(fmt.Sprintf("t%d", i))
			}(i)
		}
		wg.Wait()

		mu.Lock()
		if outOfOrder > 0 {
			t.Errorf("round %d: %d snapshots delivered out of order", round, outOfOrder)
		}
		if last.Filter != v.Filter() || last.Seq != v.Serialize().Seq {
			t.Errorf("round %d: last delivered filter %q (seq %d), viewer has %q (seq %d)",
				round, last.Filter, last.Seq, v.Filter(), v.Serialize().Seq)
		}
		mu.Unlock()
	}
}
