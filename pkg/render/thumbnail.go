package render

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "image/jpeg"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

// ThumbOpts are thumbnail options. A zero X or Y scales to keep the aspect ratio.
type ThumbOpts struct {
	X       int
	Y       int
	Quality int
}

// ThumbMeta describes a thumbnail.
type ThumbMeta struct {
	X       int
	Y       int
	RelPath string
	Path    string
}

var defaultThumbOpts = map[string]ThumbOpts{
	"Tiny": {Y: 180, Quality: 75},
}

// cacheDir is where downloaded photos and thumbnails live, relative to the output directory.
var cacheDir = "_"

// fetchPhoto downloads u into outDir, unless a copy is already there.
// Flickr static URLs embed a secret, so an existing file is never stale.
func fetchPhoto(ctx context.Context, hc *http.Client, u string, outDir string) (string, error) {
	rel := filepath.Join(cacheDir, photoBase(u))
	full := filepath.Join(outDir, rel)

	if st, err := os.Stat(full); err == nil && st.Size() > 0 {
		klog.V(1).Infof("%s exists (%d bytes)", full, st.Size())
		return rel, nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s: unexpected status: %s", u, resp.Status)
	}

	tmp := full + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close: %w", err)
	}

	klog.Infof("downloaded %s -> %s", u, full)
	return rel, os.Rename(tmp, full)
}

// photoBase returns the file name of a static image URL, e.g. 8313_ab12_m.jpg.
func photoBase(u string) string {
	if pu, err := url.Parse(u); err == nil && pu.Path != "" {
		return path.Base(pu.Path)
	}
	return path.Base(u)
}

// thumbnails returns the thumbnails of the downloaded photo id at rel, creating missing ones.
func thumbnails(outDir string, rel string, id string) (map[string]ThumbMeta, error) {
	var img image.Image
	thumbs := map[string]ThumbMeta{}

	for name, t := range defaultThumbOpts {
		relPath := thumbRelPath(rel, t)
		fullPath := filepath.Join(outDir, relPath)

		if tm, err := readThumb(fullPath); err == nil {
			tm.RelPath = relPath
			klog.V(1).Infof("photo %s: reusing %s thumb %dx%d", id, name, tm.X, tm.Y)
			thumbs[name] = *tm
			continue
		} else if !os.IsNotExist(err) {
			klog.Warningf("photo %s: recreating %s: %v", id, relPath, err)
		}

		if img == nil {
			var err error
			img, err = imgio.Open(filepath.Join(outDir, rel))
			if err != nil {
				return nil, fmt.Errorf("photo %s: open: %w", id, err)
			}
		}

		x, y, err := fitSize(img.Bounds(), t)
		if err != nil {
			return nil, fmt.Errorf("photo %s: %w", id, err)
		}
		klog.V(1).Infof("photo %s: creating %s thumb %dx%d from %dx%d", id, name, x, y, img.Bounds().Dx(), img.Bounds().Dy())

		thumb := transform.Resize(img, x, y, transform.Lanczos)
		if err := imgio.Save(fullPath, thumb, imgio.JPEGEncoder(t.Quality)); err != nil {
			return nil, fmt.Errorf("photo %s: save %s: %w", id, relPath, err)
		}
		thumbs[name] = ThumbMeta{X: thumb.Bounds().Dx(), Y: thumb.Bounds().Dy(), RelPath: relPath, Path: fullPath}
	}

	return thumbs, nil
}

// fitSize returns the thumbnail dimensions for an image with bounds b.
// A zero X or Y in t follows the image's aspect ratio.
func fitSize(b image.Rectangle, t ThumbOpts) (int, int, error) {
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("empty image (%dx%d)", w, h)
	}
	switch {
	case t.X == 0 && t.Y == 0:
		return w, h, nil
	case t.X == 0:
		return w * t.Y / h, t.Y, nil
	case t.Y == 0:
		return t.X, h * t.X / w, nil
	}
	return t.X, t.Y, nil
}

// readThumb returns the dimensions of an existing thumbnail. Truncated files are errors.
func readThumb(path string) (*ThumbMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ic, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if ic.Width == 0 || ic.Height == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return &ThumbMeta{X: ic.Width, Y: ic.Height, Path: path}, nil
}

// thumbRelPath returns the path of a thumbnail next to its source, e.g. _/8313_ab12_m@y180.jpg.
func thumbRelPath(rel string, t ThumbOpts) string {
	ext := filepath.Ext(rel)
	noExt := strings.TrimSuffix(rel, ext)

	dimensions := ""
	if t.X != 0 {
		dimensions = fmt.Sprintf("x%d", t.X)
	}
	if t.Y != 0 {
		dimensions = fmt.Sprintf("y%d", t.Y)
	}

	return fmt.Sprintf("%s@%s.jpg", noExt, dimensions)
}
