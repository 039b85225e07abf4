// Package server provides the local UI: HTML pages for the feed, poll
// detail and authoring screens, plus a small JSON and websocket API.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/bryan-buckman/sentio/internal/authoring"
	"github.com/bryan-buckman/sentio/internal/detail"
	"github.com/bryan-buckman/sentio/internal/feed"
	"github.com/bryan-buckman/sentio/internal/i18n"
	"github.com/bryan-buckman/sentio/internal/model"
	"github.com/bryan-buckman/sentio/internal/prefs"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options wires the server to the rest of the client.
type Options struct {
	Prefs    *prefs.Prefs
	Feed     *feed.Controller
	Poller   *feed.Poller
	Detail   *detail.Flow
	Composer *authoring.Composer
	Builder  *authoring.Builder
	Bundle   *i18n.Bundle

	AllowedOrigins []string
	ContactEmail   string
}

// Server is the main HTTP server.
type Server struct {
	prefs    *prefs.Prefs
	feed     *feed.Controller
	poller   *feed.Poller
	detail   *detail.Flow
	composer *authoring.Composer
	builder  *authoring.Builder
	bundle   *i18n.Bundle

	allowedOrigins []string
	contactEmail   string

	router    chi.Router
	templates *template.Template
	http      *http.Server
	now       func() time.Time
}

// New creates a new server.
func New(opts Options) (*Server, error) {
	s := &Server{
		prefs:          opts.Prefs,
		feed:           opts.Feed,
		poller:         opts.Poller,
		detail:         opts.Detail,
		composer:       opts.Composer,
		builder:        opts.Builder,
		bundle:         opts.Bundle,
		allowedOrigins: opts.AllowedOrigins,
		contactEmail:   opts.ContactEmail,
		now:            time.Now,
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"timeAgo":   humanize.Time,
		"dateLabel": func(t time.Time) string { return dateLabel(s.now(), t) },
		"percent":   percent,
		"voteCount": voteCount,
		"dict":      dict,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = tmpl

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Compliance gate.
	r.Get("/welcome", s.handleWelcome)
	r.Post("/welcome", s.handleAcceptWelcome)
	r.Get("/contact", s.handleContact)

	// Pages.
	r.Group(func(r chi.Router) {
		r.Use(s.requireCompliance)

		r.Get("/", s.handleHome)
		r.Post("/feed/refresh", s.handleRefresh)
		r.Post("/feed/accept", s.handleAccept)
		r.Post("/polls/{pollID}/hide", s.handleHide)
		r.Post("/polls/{pollID}/report", s.handleReport)
		r.Post("/users/{deviceID}/block", s.handleBlock)

		r.Get("/poll/{pollID}", s.handlePoll)
		r.Post("/poll/{pollID}/vote", s.handleVote)

		r.Get("/create", s.handleCreateForm)
		r.Post("/create", s.handleCreate)
		r.Get("/ai", s.handleAI)
		r.Post("/ai/use", s.handleAIUse)
	})

	// API.
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/feed", s.handleFeedJSON)
		r.Get("/feed/ws", s.handleFeedWS)
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start starts the poller and serves until Stop is called.
func (s *Server) Start(addr string) error {
	if s.poller != nil {
		s.poller.Start()
	}
	s.http = &http.Server{Addr: addr, Handler: s.router}
	log.Printf("Server starting on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down and stops background work.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if s.poller != nil {
		s.poller.Stop()
	}
	s.feed.Close()
	return err
}

// --- Helpers ---

func (s *Server) render(w http.ResponseWriter, status int, name string, data map[string]interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Template error: %v", err)
	}
}

// page returns the data every page template expects.
func (s *Server) page(r *http.Request, title string) map[string]interface{} {
	l := s.localizer(r)
	return map[string]interface{}{
		"Title":   title,
		"Toast":   s.bundle.Toast(l, r.URL.Query().Get("toast")),
		"Contact": "/contact",
		"Device":  s.feed.Device(),
	}
}

func (s *Server) localizer(r *http.Request) *goi18n.Localizer {
	return s.bundle.Localizer(r.Header.Get("Accept-Language"))
}

// redirect sends the browser to path with an optional toast.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, path string, toast *goi18n.Message) {
	if toast != nil {
		u, err := url.Parse(path)
		if err == nil {
			q := u.Query()
			q.Set("toast", toast.ID)
			u.RawQuery = q.Encode()
			path = u.String()
		}
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// backTo returns the local page the form was posted from, or "/".
func backTo(r *http.Request) string {
	if next := r.FormValue("next"); next != "" {
		if u, err := url.Parse(next); err == nil && u.Host == "" && u.Scheme == "" && len(u.Path) > 0 && u.Path[0] == '/' {
			return u.RequestURI()
		}
	}
	return "/"
}

func (s *Server) requireCompliance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := s.prefs.Compliance()
		if err != nil {
			log.Printf("Error reading compliance flags: %v", err)
		}
		if !c.Accepted() {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Compliance & contact ---

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Welcome")
	s.render(w, http.StatusOK, "welcome.html", data)
}

func (s *Server) handleAcceptWelcome(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("age") == "" || r.FormValue("terms") == "" {
		data := s.page(r, "Welcome")
		data["Error"] = "Please confirm your age and accept the terms to continue."
		s.render(w, http.StatusBadRequest, "welcome.html", data)
		return
	}
	if err := s.prefs.AcceptCompliance(); err != nil {
		log.Printf("Error saving compliance flags: %v", err)
		http.Error(w, "Failed to save", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, contactLink(s.contactEmail, s.feed.Device()), http.StatusFound)
}

func categoriesWithAll() []string {
	return append([]string{model.CategoryAll}, model.Categories...)
}
