package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/tstromberg/flickrset/pkg/flickr"
	"github.com/tstromberg/flickrset/pkg/flickrset"
	"github.com/tstromberg/flickrset/pkg/manage"
	"github.com/tstromberg/flickrset/pkg/render"
)

var (
	apiKey     = flag.String("api-key", "", "Flickr API key")
	photosetID = flag.String("photoset", "", "ID of the photoset to show")
	size       = flag.String("size", flickrset.DefaultImageSize, "Flickr size suffix for grid images")
	baseURL    = flag.String("base-url", flickr.DefaultBaseURL, "Flickr REST endpoint")
	outDir     = flag.String("out", "", "export a static page to this directory")
	assetsDir  = flag.String("assets", "", "extra files to copy next to the exported page")
	exif       = flag.Bool("exif", false, "stamp photo titles into exported files (requires exiftool)")
	listen     = flag.Bool("listen", false, "serve the live viewer via HTTP")
	addr       = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	watchFlag  = flag.Bool("watch", false, "re-export when --assets changes")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *apiKey == "" {
		klog.Exitf("--api-key is a required flag")
	}

	if *photosetID == "" {
		klog.Exitf("--photoset is a required flag")
	}

	if *outDir == "" && !*listen {
		klog.Exitf("nothing to do: pass --out and/or --listen")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &flickrset.Config{
		APIKey:     *apiKey,
		PhotosetID: *photosetID,
		ImageSize:  *size,
		BaseURL:    *baseURL,
	}
	v := flickrset.NewViewer(c)

	if err := flickrset.Load(ctx, c, v); err != nil {
		klog.Exitf("load failed: %v", err)
	}
	klog.Infof("loaded %q: %d photos", v.Title(), len(v.Photos()))

	rc := &render.Config{
		OutDir:    *outDir,
		AssetsDir: *assetsDir,
		Exif:      *exif,
	}
	if *outDir != "" {
		if err := render.Render(ctx, rc, v); err != nil {
			klog.Exitf("render failed: %v", err)
		}
	}

	var wg sync.WaitGroup
	if *watchFlag {
		if *outDir == "" || *assetsDir == "" {
			klog.Exitf("--watch requires --out and --assets")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(ctx, rc, v); err != nil {
				klog.Errorf("watch: %v", err)
			}
		}()
	}

	if *listen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(ctx, v, *addr)
		}()
	}

	wg.Wait()
}

// serve binds the live viewer to addr until ctx is done.
func serve(ctx context.Context, v *flickrset.Viewer, addr string) {
	s := manage.New(v)
	defer s.Close()

	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			klog.Errorf("shutdown: %v", err)
		}
	}()

	klog.Infof("Listening on %s...", addr)
	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		klog.Exitf("listen failed: %v", err)
	}
}

// watch re-exports whenever the assets directory changes.
func watch(ctx context.Context, c *render.Config, v *flickrset.Viewer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(c.AssetsDir); err != nil {
		return fmt.Errorf("watch %s: %w", c.AssetsDir, err)
	}
	klog.Infof("watching %s ...", c.AssetsDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %v", event)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if err := render.Render(ctx, c, v); err != nil {
					klog.Errorf("render failed: %v", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}
