package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryan-buckman/sentio/internal/model"
)

// fakeAPI is an in-memory polling backend speaking the real wire format.
type fakeAPI struct {
	mu       sync.Mutex
	polls    []model.Poll
	votes    map[string]bool
	reports  map[string]bool
	blocks   []string
	created  []model.NewPoll
	failList bool
}

func newFakeAPI(polls ...model.Poll) *fakeAPI {
	return &fakeAPI{
		polls:   polls,
		votes:   make(map[string]bool),
		reports: make(map[string]bool),
	}
}

func (a *fakeAPI) setPolls(polls ...model.Poll) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.polls = polls
}

func (a *fakeAPI) find(id string) *model.Poll {
	for i := range a.polls {
		if a.polls[i].ID == id {
			return &a.polls[i]
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (a *fakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/polls/", func(w http.ResponseWriter, r *http.Request) {
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.failList {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
				return
			}
			writeJSON(w, http.StatusOK, a.polls)
		})
		r.Post("/polls/", func(w http.ResponseWriter, r *http.Request) {
			var p model.NewPoll
			json.NewDecoder(r.Body).Decode(&p)
			a.mu.Lock()
			defer a.mu.Unlock()
			a.created = append(a.created, p)
			writeJSON(w, http.StatusCreated, model.Poll{ID: fmt.Sprintf("new-%d", len(a.created)), Question: p.Question, IsActive: true})
		})
		r.Get("/polls/{id}/", func(w http.ResponseWriter, r *http.Request) {
			a.mu.Lock()
			defer a.mu.Unlock()
			p := a.find(chi.URLParam(r, "id"))
			if p == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
				return
			}
			writeJSON(w, http.StatusOK, p)
		})
		r.Post("/polls/{id}/vote/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				DeviceID  string `json:"device_id"`
				VoteValue *bool  `json:"vote_value"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			id := chi.URLParam(r, "id")
			key := id + "/" + body.DeviceID

			a.mu.Lock()
			defer a.mu.Unlock()
			v, voted := a.votes[key]
			if body.VoteValue == nil {
				if !voted {
					writeJSON(w, http.StatusOK, model.VoteStatus{})
					return
				}
				writeJSON(w, http.StatusOK, model.VoteStatus{HasVoted: true, VoteValue: &v})
				return
			}
			if voted {
				writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "already voted"})
				return
			}
			a.votes[key] = *body.VoteValue
			if p := a.find(id); p != nil {
				p.TotalVotes++
				if *body.VoteValue {
					p.YesVotes++
				} else {
					p.NoVotes++
				}
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/polls/{id}/report/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				DeviceID string `json:"device_id"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			key := chi.URLParam(r, "id") + "/" + body.DeviceID

			a.mu.Lock()
			defer a.mu.Unlock()
			if a.reports[key] {
				writeJSON(w, http.StatusConflict, map[string]string{"detail": "already reported"})
				return
			}
			a.reports[key] = true
			writeJSON(w, http.StatusCreated, map[string]string{"status": "reported"})
		})
		r.Post("/block-user/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Blocked string `json:"blocked_device_id"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			a.mu.Lock()
			defer a.mu.Unlock()
			a.blocks = append(a.blocks, body.Blocked)
			writeJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
		})
		r.Post("/ai/themes/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"themes": []model.Theme{{Theme: "Transfer Window", Description: "Big summer moves"}},
			})
		})
		r.Post("/ai/polls/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"polls": []model.Suggestion{{Question: "Was the record fee worth it?", Description: "Summer signing"}},
			})
		})
	})
	return r
}

func poll(id, question string, creator model.DeviceID) model.Poll {
	return model.Poll{
		ID:              id,
		Question:        question,
		IsActive:        true,
		CreatedAt:       time.Now().Add(-time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
		YesVotes:        1200,
		NoVotes:         300,
		TotalVotes:      1500,
		CreatorDeviceID: creator,
	}
}
