// Package render turns viewer state into HTML, either served live or exported as a static page.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"github.com/otiai10/copy"
	"github.com/tstromberg/flickrset/pkg/flickrset"
	"k8s.io/klog/v2"
)

//go:embed assets/page.tmpl
var pageTmpl string

//go:embed assets/style.css
var styleText string

// Config configures a static export.
type Config struct {
	OutDir string
	// AssetsDir holds extra png/css/jpg/gif files copied next to the page.
	AssetsDir string
	// Exif stamps each exported photo's title into its Headline tag.
	Exif       bool
	HTTPClient *http.Client
}

// Page is everything a page template needs.
type Page struct {
	Heading  string
	Sorts    []string
	Sort     string
	State    flickrset.Snapshot
	Thumbs   map[string]ThumbMeta
	Images   map[string]string
	Live     bool
	Style    template.CSS
	Exported bool
}

// NewPage builds a page for the viewer's current state.
func NewPage(v *flickrset.Viewer) *Page {
	p := &Page{
		Heading: v.TitleDate(),
		Sort:    v.SortName(),
		State:   v.Serialize(),
		Thumbs:  map[string]ThumbMeta{},
		Images:  map[string]string{},
		Style:   template.CSS(styleText),
	}
	for _, s := range v.Sorts() {
		p.Sorts = append(p.Sorts, s.Name)
	}
	return p
}

// Render exports the viewer's current state into c.OutDir.
func Render(ctx context.Context, c *Config, v *flickrset.Viewer) error {
	p := NewPage(v)
	p.Exported = true

	if err := os.MkdirAll(filepath.Join(c.OutDir, cacheDir), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	keep := map[string]bool{}
	copied, err := copyAssets(c.AssetsDir, c.OutDir)
	if err != nil {
		return fmt.Errorf("copyAssets: %w", err)
	}
	for _, rel := range copied {
		keep[rel] = true
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	titles := map[string]string{}
	for _, ph := range p.State.Photos {
		rel, err := fetchPhoto(ctx, hc, ph.URL, c.OutDir)
		if err != nil {
			return fmt.Errorf("fetch photo %s: %w", ph.ID, err)
		}
		keep[rel] = true
		p.Images[ph.ID] = rel
		titles[filepath.Join(c.OutDir, rel)] = ph.Title

		ts, err := thumbnails(c.OutDir, rel, ph.ID)
		if err != nil {
			return fmt.Errorf("thumbnails: %w", err)
		}
		for _, t := range ts {
			keep[t.RelPath] = true
		}
		p.Thumbs[ph.ID] = ts["Tiny"]
	}

	if c.Exif {
		if err := stampTitles(titles); err != nil {
			return fmt.Errorf("stamp titles: %w", err)
		}
	}

	if err := prune(c.OutDir, keep); err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	bs, err := p.HTML()
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	path := filepath.Join(c.OutDir, "index.html")
	klog.Infof("Writing %d photos to %s", len(p.State.Photos), path)
	return os.WriteFile(path, bs, 0o644)
}

// HTML executes the page template.
func (p *Page) HTML() ([]byte, error) {
	tmpl, err := template.New("page").Funcs(tmplFunctions()).Parse(pageTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	var tpl bytes.Buffer
	if err = tmpl.Execute(&tpl, p); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return tpl.Bytes(), nil
}

// copyAssets copies user assets into the cache directory, returning their relative paths.
func copyAssets(inDir string, outDir string) ([]string, error) {
	if inDir == "" {
		return nil, nil
	}

	var copied []string
	for _, ext := range []string{"png", "css", "jpg", "gif"} {
		src := fmt.Sprintf("%s/*.%s", inDir, ext)
		ms, err := filepath.Glob(src)
		klog.V(1).Infof("copying %d assets from %s", len(ms), src)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			rel := filepath.Join(cacheDir, filepath.Base(m))
			if err := copy.Copy(m, filepath.Join(outDir, rel)); err != nil {
				return nil, err
			}
			copied = append(copied, rel)
		}
	}
	return copied, nil
}

// prune removes files from the cache directory that the current page no longer uses.
func prune(outDir string, keep map[string]bool) error {
	root := filepath.Join(outDir, cacheDir)
	return godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(outDir, path)
			if err != nil {
				return err
			}
			if keep[rel] {
				return nil
			}
			klog.Infof("removing stale %s", path)
			return os.Remove(path)
		},
	})
}

// tmplFunctions are functions available to our templates.
func tmplFunctions() template.FuncMap {
	return template.FuncMap{
		"Large": flickrset.LargeURL,
		"Odd": func(i int) bool {
			return i%2 == 1
		},
	}
}
