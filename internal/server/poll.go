package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/bryan-buckman/sentio/internal/authoring"
	"github.com/bryan-buckman/sentio/internal/detail"
	"github.com/bryan-buckman/sentio/internal/gateway"
	"github.com/bryan-buckman/sentio/internal/i18n"
	"github.com/bryan-buckman/sentio/internal/model"
)

// --- Detail ---

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	screen := s.detail.Open(r.Context(), chi.URLParam(r, "pollID"))

	data := s.page(r, "Poll")
	data["Screen"] = screen
	status := http.StatusOK
	if screen.Poll == nil {
		status = http.StatusNotFound
	}
	s.render(w, status, "detail.html", data)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollID")

	var value bool
	switch r.FormValue("vote") {
	case "yes":
		value = true
	case "no":
		value = false
	default:
		http.Error(w, "vote must be yes or no", http.StatusBadRequest)
		return
	}

	screen := s.detail.Submit(r.Context(), pollID, value)
	if screen.State == detail.Failed {
		toast := i18n.MsgVoteFailed
		if gateway.IsNetworkError(screen.Err) {
			toast = i18n.MsgNetworkError
		}
		s.redirect(w, r, "/poll/"+url.PathEscape(pollID), toast)
		return
	}

	// Tallies changed; the feed picks them up on its next fetch.
	s.feed.RefreshInBackground()
	s.redirect(w, r, "/", i18n.MsgVoted)
}

// --- Authoring ---

// draftFromForm reads a draft from query or form values. Categories beyond
// the limit are dropped.
func draftFromForm(v url.Values) authoring.Draft {
	d := authoring.Draft{
		Question:    v.Get("question"),
		Description: v.Get("description"),
	}
	for _, c := range v["category"] {
		if !model.IsCategory(c) || c == model.CategoryAll || d.HasCategory(c) {
			continue
		}
		d.ToggleCategory(c)
	}
	return d
}

func (s *Server) renderCreate(w http.ResponseWriter, r *http.Request, status int, d authoring.Draft) {
	data := s.page(r, "Create Poll")
	data["Draft"] = d
	data["Categories"] = model.Categories
	data["MaxCategories"] = model.MaxPollCategories
	s.render(w, status, "create.html", data)
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	s.renderCreate(w, r, http.StatusOK, draftFromForm(r.URL.Query()))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	d := draftFromForm(r.PostForm)

	_, err := s.composer.Submit(r.Context(), d)
	switch {
	case errors.Is(err, authoring.ErrEmptyQuestion):
		s.renderCreate(w, r, http.StatusUnprocessableEntity, d)
		return
	case err != nil:
		toast := i18n.MsgCreateFailed
		if gateway.IsNetworkError(err) {
			toast = i18n.MsgNetworkError
		}
		r.URL.RawQuery = url.Values{"toast": {toast.ID}}.Encode()
		s.renderCreate(w, r, http.StatusBadGateway, d)
		return
	}

	s.feed.RefreshInBackground()
	s.redirect(w, r, "/", i18n.MsgPollCreated)
}

// --- AI wizard ---

func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wiz := s.builder.Step(r.Context(), q.Get("category"), q.Get("theme"))

	data := s.page(r, "AI Poll Builder")
	data["Wizard"] = wiz
	data["Categories"] = model.Categories
	s.render(w, http.StatusOK, "ai.html", data)
}

func (s *Server) handleAIUse(w http.ResponseWriter, r *http.Request) {
	d := authoring.Handoff(r.FormValue("category"), model.Suggestion{
		Question:    r.FormValue("question"),
		Description: r.FormValue("description"),
	})

	q := url.Values{}
	q.Set("question", d.Question)
	q.Set("description", d.Description)
	for _, c := range d.Categories {
		q.Add("category", c)
	}
	http.Redirect(w, r, "/create?"+q.Encode(), http.StatusSeeOther)
}
