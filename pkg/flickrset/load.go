package flickrset

import (
	"context"
	"errors"
	"fmt"

	"github.com/tstromberg/flickrset/pkg/flickr"
	"k8s.io/klog/v2"
)

// ErrNotLoaded is returned when the metadata response belonged to another photoset.
var ErrNotLoaded = errors.New("photoset not loaded")

// fetcher is the part of flickr.Client a load needs.
type fetcher interface {
	PhotosetID() string
	FetchMetadata(ctx context.Context) (*flickr.Photoset, error)
	FetchPhotos(ctx context.Context) ([]flickr.RawPhoto, error)
}

// Load fetches the configured photoset into v: metadata first, then, once a
// matching metadata response has resolved the gate, the photo list.
//
// Transport and API failures are recorded on v (see Viewer.LoadFailed) and returned.
func Load(ctx context.Context, c *Config, v *Viewer) error {
	return load(ctx, c.client(), c.size(), v, NewGate())
}

func load(ctx context.Context, f fetcher, size string, v *Viewer, gate *Gate) error {
	klog.Infof("loading photoset %s ...", f.PhotosetID())

	// A failed metadata fetch never resolves the gate, so it cancels the wait.
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	metaErr := make(chan error, 1)
	go func() {
		err := loadMetadata(ctx, f, v, gate)
		metaErr <- err
		if err != nil {
			cancel()
		}
	}()

	if err := gate.Wait(waitCtx); err != nil {
		select {
		case merr := <-metaErr:
			if merr != nil {
				return merr
			}
		default:
		}
		return err
	}

	raws, err := f.FetchPhotos(ctx)
	if err != nil {
		v.SetLoadError(err)
		return fmt.Errorf("fetch photos: %w", err)
	}

	v.SetPhotos(Transform(raws, size))
	v.SetLoadError(nil)
	klog.Infof("loaded %d photos for %s", len(raws), f.PhotosetID())
	return nil
}

// loadMetadata fetches metadata into v and resolves gate on a matching response.
// A response for another photoset leaves both untouched.
func loadMetadata(ctx context.Context, f fetcher, v *Viewer, gate *Gate) error {
	ps, err := f.FetchMetadata(ctx)
	if errors.Is(err, flickr.ErrMismatch) {
		return fmt.Errorf("%w: %w", ErrNotLoaded, err)
	}
	if err != nil {
		v.SetLoadError(err)
		return fmt.Errorf("fetch metadata: %w", err)
	}

	m := NewMetadata(ps)
	klog.Infof("photoset %q last updated %s", m.Title, m.LastUpdate)
	v.SetMetadata(m)
	gate.Resolve()
	return nil
}
