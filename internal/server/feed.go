package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/bryan-buckman/sentio/internal/feed"
	"github.com/bryan-buckman/sentio/internal/gateway"
	"github.com/bryan-buckman/sentio/internal/i18n"
	"github.com/bryan-buckman/sentio/internal/model"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	if category == "" || !model.IsCategory(category) {
		category = s.feed.Category()
	}

	s.feed.Search(q.Get("q"))
	view := s.feed.Select(r.Context(), category)

	data := s.page(r, "Sentio")
	data["View"] = view
	data["Categories"] = categoriesWithAll()
	data["Banner"] = ""
	if view.HasPending {
		data["Banner"] = s.bundle.Localize(s.localizer(r), i18n.MsgNewPolls, map[string]interface{}{"Count": view.PendingCount})
	}
	s.render(w, http.StatusOK, "feed.html", data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.feed.Refresh(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	s.feed.AcceptPending()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHide(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollID")
	if err := s.feed.Hide(pollID); err != nil {
		log.Printf("Error hiding poll %s: %v", pollID, err)
		http.Error(w, "Failed to hide poll", http.StatusInternalServerError)
		return
	}
	s.redirect(w, r, backTo(r), i18n.MsgPollHidden)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollID")
	creator := model.DeviceID(r.FormValue("creator"))

	err := s.feed.Report(r.Context(), pollID, creator, r.FormValue("reason"))
	if err != nil {
		log.Printf("Error reporting poll %s: %v", pollID, err)
	}
	s.redirect(w, r, backTo(r), reportToast(err))
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	creator := model.DeviceID(chi.URLParam(r, "deviceID"))

	err := s.feed.Block(r.Context(), creator)
	if err != nil {
		log.Printf("Error blocking user %s: %v", creator, err)
	}
	s.redirect(w, r, backTo(r), blockToast(err))
}

func reportToast(err error) *goi18n.Message {
	switch {
	case err == nil:
		return i18n.MsgReported
	case errors.Is(err, feed.ErrOwnPoll):
		return i18n.MsgOwnPoll
	case errors.Is(err, gateway.ErrAlreadyReported):
		return i18n.MsgAlreadyReported
	case gateway.IsNetworkError(err):
		return i18n.MsgNetworkError
	default:
		return i18n.MsgReportFailed
	}
}

func blockToast(err error) *goi18n.Message {
	switch {
	case err == nil:
		return i18n.MsgUserBlocked
	case errors.Is(err, feed.ErrSelfBlock):
		return i18n.MsgSelfBlock
	case gateway.IsNetworkError(err):
		return i18n.MsgNetworkError
	default:
		return i18n.MsgBlockFailed
	}
}

type feedResponse struct {
	Category     string       `json:"category"`
	Polls        []model.Poll `json:"polls"`
	HasPending   bool         `json:"has_pending"`
	PendingCount int          `json:"pending_count"`
	Version      uint64       `json:"version"`
}

func (s *Server) handleFeedJSON(w http.ResponseWriter, r *http.Request) {
	v := s.feed.View()
	polls := v.Polls
	if polls == nil {
		polls = []model.Poll{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feedResponse{
		Category:     v.Category,
		Polls:        polls,
		HasPending:   v.HasPending,
		PendingCount: v.PendingCount,
		Version:      v.Version,
	})
}
