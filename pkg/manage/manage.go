// Package manage serves a viewer over HTTP so a browser can bind to it.
package manage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tstromberg/flickrset/pkg/flickrset"
	"github.com/tstromberg/flickrset/pkg/render"
	"k8s.io/klog/v2"
)

// Server is a server for the photoset viewer.
type Server struct {
	v      *flickrset.Viewer
	hub    *Hub
	router chi.Router
	cancel func()
}

// New creates a new server bound to v. Close it to stop pushing updates.
func New(v *flickrset.Viewer) *Server {
	s := &Server{
		v:   v,
		hub: NewHub(),
	}
	go s.hub.Run()
	s.cancel = v.Subscribe(s.hub.Publish)
	s.hub.Publish(v.Serialize())
	s.setupRoutes()
	return s
}

// State is what GET /api/state returns: the snapshot plus view-only fields.
type State struct {
	flickrset.Snapshot
	TitleDate string   `json:"titleDate"`
	Sorts     []string `json:"sorts"`
	Sort      string   `json:"sort"`
	Editing   string   `json:"editing,omitempty"`
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.PageHandler())
	r.Get("/ws", s.WSHandler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.StateHandler())
		r.Post("/filter", s.FilterHandler())
		r.Post("/sort", s.SortHandler())
		r.Post("/edit/end", s.EndEditHandler())
		r.Delete("/lightbox", s.CloseLightboxHandler())

		r.Route("/photos/{id}", func(r chi.Router) {
			r.Post("/edit", s.BeginEditHandler())
			r.Put("/title", s.TitleHandler())
			r.Post("/lightbox", s.LightboxHandler())
		})
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close unsubscribes from the viewer and disconnects websocket clients.
func (s *Server) Close() {
	s.cancel()
	s.hub.Stop()
}

// PageHandler renders the live page.
func (s *Server) PageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		p := render.NewPage(s.v)
		p.Live = true
		bs, err := p.HTML()
		if err != nil {
			klog.Errorf("render page: %v", err)
			http.Error(w, "Render error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(bs)
	}
}

// WSHandler streams state snapshots, starting with the newest one.
func (s *Server) WSHandler() http.HandlerFunc {
	return s.hub.Serve
}

// StateHandler returns the current state.
func (s *Server) StateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.writeState(w)
	}
}

// FilterHandler sets the search term.
func (s *Server) FilterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Term string `json:"term"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		s.v.SetFilter(req.Term)
		s.writeState(w)
	}
}

// SortHandler selects a sort by name.
func (s *Server) SortHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err := s.v.SelectSortByName(req.Name); err != nil {
			if errors.Is(err, flickrset.ErrUnknownSort) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Sort failed", http.StatusInternalServerError)
			return
		}
		s.writeState(w)
	}
}

// BeginEditHandler puts a photo into edit mode.
func (s *Server) BeginEditHandler() http.HandlerFunc {
	return s.withPhoto(func(w http.ResponseWriter, _ *http.Request, p *flickrset.Photo) {
		s.v.BeginEdit(p)
		s.writeState(w)
	})
}

// EndEditHandler leaves edit mode.
func (s *Server) EndEditHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.v.EndEdit()
		s.writeState(w)
	}
}

// TitleHandler renames a photo.
func (s *Server) TitleHandler() http.HandlerFunc {
	return s.withPhoto(func(w http.ResponseWriter, r *http.Request, p *flickrset.Photo) {
		var req struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		s.v.SetPhotoTitle(p, req.Title)
		s.writeState(w)
	})
}

// LightboxHandler opens the lightbox on a photo.
func (s *Server) LightboxHandler() http.HandlerFunc {
	return s.withPhoto(func(w http.ResponseWriter, _ *http.Request, p *flickrset.Photo) {
		s.v.ShowLightbox(p)
		s.writeState(w)
	})
}

// CloseLightboxHandler closes the lightbox.
func (s *Server) CloseLightboxHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.v.CloseLightbox()
		s.writeState(w)
	}
}

func (s *Server) withPhoto(fn func(http.ResponseWriter, *http.Request, *flickrset.Photo)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p := s.v.PhotoByID(id)
		if p == nil {
			http.Error(w, "No such photo", http.StatusNotFound)
			return
		}
		fn(w, r, p)
	}
}

func (s *Server) state() State {
	st := State{
		Snapshot:  s.v.Serialize(),
		TitleDate: s.v.TitleDate(),
		Sort:      s.v.SortName(),
	}
	for _, e := range s.v.Sorts() {
		st.Sorts = append(st.Sorts, e.Name)
	}
	if p := s.v.Editing(); p != nil {
		st.Editing = p.ID
	}
	return st
}

func (s *Server) writeState(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.state()); err != nil {
		klog.Errorf("encode state: %v", err)
	}
}
