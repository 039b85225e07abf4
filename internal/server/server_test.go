package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/sentio/internal/authoring"
	"github.com/bryan-buckman/sentio/internal/database"
	"github.com/bryan-buckman/sentio/internal/detail"
	"github.com/bryan-buckman/sentio/internal/feed"
	"github.com/bryan-buckman/sentio/internal/gateway"
	"github.com/bryan-buckman/sentio/internal/i18n"
	"github.com/bryan-buckman/sentio/internal/model"
	"github.com/bryan-buckman/sentio/internal/prefs"
)

type testEnv struct {
	srv    *Server
	api    *fakeAPI
	prefs  *prefs.Prefs
	device model.DeviceID
}

func setupServer(t *testing.T, accepted bool, polls ...model.Poll) *testEnv {
	t.Helper()

	api := newFakeAPI(polls...)
	backend := httptest.NewServer(api.routes())
	t.Cleanup(backend.Close)

	db, err := database.New(filepath.Join(t.TempDir(), "sentio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p := prefs.New(db)
	device, err := p.DeviceID()
	require.NoError(t, err)
	if accepted {
		require.NoError(t, p.AcceptCompliance())
	}

	gw := gateway.NewClient(backend.URL+"/api", backend.Client())
	ctrl, err := feed.NewController(gw, p, device, nil, nil)
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)

	bundle, err := i18n.NewBundle()
	require.NoError(t, err)

	srv, err := New(Options{
		Prefs:          p,
		Feed:           ctrl,
		Detail:         detail.NewFlow(gw, device),
		Composer:       authoring.NewComposer(gw),
		Builder:        authoring.NewBuilder(gw),
		Bundle:         bundle,
		AllowedOrigins: []string{"http://localhost:8080"},
		ContactEmail:   "support@sentio.test",
	})
	require.NoError(t, err)

	return &testEnv{srv: srv, api: api, prefs: p, device: device}
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (e *testEnv) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func TestComplianceGate(t *testing.T) {
	env := setupServer(t, false, poll("p1", "Is remote work here to stay?", "dev-a"))

	rec := env.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))

	rec = env.get(t, "/welcome")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "18 years")

	rec = env.post(t, "/welcome", url.Values{"age": {"1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	c, err := env.prefs.Compliance()
	require.NoError(t, err)
	assert.False(t, c.Accepted())

	rec = env.post(t, "/welcome", url.Values{"age": {"1"}, "terms": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = env.get(t, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Is remote work here to stay?")
}

func TestFeedPage(t *testing.T) {
	env := setupServer(t, true,
		poll("p1", "Should cities ban cars downtown?", "dev-a"),
		poll("p2", "Is pineapple on pizza acceptable?", "dev-b"),
	)

	t.Run("lists polls with counts", func(t *testing.T) {
		rec := env.get(t, "/")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Should cities ban cars downtown?")
		assert.Contains(t, body, "1,500 votes")
		assert.Contains(t, body, "Today")
	})
	t.Run("search narrows the list", func(t *testing.T) {
		rec := env.get(t, "/?q=pizza")
		body := rec.Body.String()
		assert.Contains(t, body, "pineapple")
		assert.NotContains(t, body, "ban cars")

		rec = env.get(t, "/?q=")
		assert.Contains(t, rec.Body.String(), "ban cars")
	})
	t.Run("unknown category falls back", func(t *testing.T) {
		rec := env.get(t, "/?category=Gardening")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.CategoryAll, env.srv.feed.Category())
	})
}

func TestHide(t *testing.T) {
	env := setupServer(t, true,
		poll("p1", "Should cities ban cars downtown?", "dev-a"),
		poll("p2", "Is pineapple on pizza acceptable?", "dev-b"),
	)
	env.get(t, "/")

	rec := env.post(t, "/polls/p1/hide", url.Values{"next": {"/"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?toast="+i18n.MsgPollHidden.ID, rec.Header().Get("Location"))

	body := env.get(t, "/").Body.String()
	assert.NotContains(t, body, "ban cars")
	assert.Contains(t, body, "pineapple")

	hidden, err := env.prefs.HiddenPolls()
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, hidden)
}

func TestReport(t *testing.T) {
	env := setupServer(t, true, poll("p1", "Q1?", "dev-a"))
	env.get(t, "/")

	toast := func(rec *httptest.ResponseRecorder) string {
		u, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		return u.Query().Get("toast")
	}

	rec := env.post(t, "/polls/p1/report", url.Values{"creator": {"dev-a"}})
	assert.Equal(t, i18n.MsgReported.ID, toast(rec))

	rec = env.post(t, "/polls/p1/report", url.Values{"creator": {"dev-a"}})
	assert.Equal(t, i18n.MsgAlreadyReported.ID, toast(rec))

	rec = env.post(t, "/polls/p1/report", url.Values{"creator": {string(env.device)}})
	assert.Equal(t, i18n.MsgOwnPoll.ID, toast(rec))

	rec = env.get(t, "/?toast="+i18n.MsgAlreadyReported.ID)
	assert.Contains(t, rec.Body.String(), "You have already reported this poll.")
}

func TestBlock(t *testing.T) {
	env := setupServer(t, true,
		poll("p1", "From A one?", "dev-a"),
		poll("p2", "From B?", "dev-b"),
		poll("p3", "From A two?", "dev-a"),
	)
	env.get(t, "/")

	rec := env.post(t, "/users/"+string(env.device)+"/block", nil)
	assert.Contains(t, rec.Header().Get("Location"), i18n.MsgSelfBlock.ID)

	rec = env.post(t, "/users/dev-a/block", url.Values{"next": {"/poll/p2"}})
	assert.Equal(t, "/poll/p2?toast="+i18n.MsgUserBlocked.ID, rec.Header().Get("Location"))
	assert.Equal(t, []string{"dev-a"}, env.api.blocks)

	view := env.srv.feed.View()
	require.Len(t, view.Polls, 1)
	assert.Equal(t, "p2", view.Polls[0].ID)

	blocked, err := env.prefs.BlockedUsers()
	require.NoError(t, err)
	assert.Equal(t, []model.DeviceID{"dev-a"}, blocked)
}

func TestBackTo(t *testing.T) {
	for next, want := range map[string]string{
		"":                      "/",
		"/poll/p1":              "/poll/p1",
		"/?category=Sports":     "/?category=Sports",
		"https://evil.example/": "/",
		"//evil.example/":       "/",
		"poll/p1":               "/",
	} {
		t.Run(next, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"next": {next}}.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			assert.Equal(t, want, backTo(req))
		})
	}
}

func TestPollDetailAndVote(t *testing.T) {
	env := setupServer(t, true, poll("p1", "Four-day work week?", "dev-a"))

	rec := env.get(t, "/poll/p1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="yes"`)

	rec = env.post(t, "/poll/p1/vote", url.Values{"vote": {"maybe"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.post(t, "/poll/p1/vote", url.Values{"vote": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?toast="+i18n.MsgVoted.ID, rec.Header().Get("Location"))

	rec = env.get(t, "/poll/p1")
	body := rec.Body.String()
	assert.NotContains(t, body, `value="yes"`)
	assert.Contains(t, body, "already voted")
	assert.Contains(t, body, "80.0%")

	rec = env.post(t, "/poll/p1/vote", url.Values{"vote": {"no"}})
	assert.Equal(t, "/poll/p1?toast="+i18n.MsgVoteFailed.ID, rec.Header().Get("Location"))
}

func TestPollNotFound(t *testing.T) {
	env := setupServer(t, true)

	rec := env.get(t, "/poll/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Poll not found")
}

func TestCreate(t *testing.T) {
	env := setupServer(t, true)

	t.Run("prefilled form", func(t *testing.T) {
		rec := env.get(t, "/create?question=Tabs%3F&category=Technology")
		body := rec.Body.String()
		assert.Contains(t, body, `value="Tabs?"`)
		assert.Contains(t, body, `value="Technology" checked`)
	})
	t.Run("empty question", func(t *testing.T) {
		rec := env.post(t, "/create", url.Values{"question": {"  "}, "description": {"kept"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "kept")
		assert.Empty(t, env.api.created)
	})
	t.Run("publishes", func(t *testing.T) {
		rec := env.post(t, "/create", url.Values{
			"question":    {" Tabs or spaces? "},
			"description": {"The eternal debate"},
			"category":    {"Technology", "Lifestyle", "Science", "Business"},
		})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?toast="+i18n.MsgPollCreated.ID, rec.Header().Get("Location"))

		env.srv.feed.Wait()
		env.api.mu.Lock()
		defer env.api.mu.Unlock()
		require.Len(t, env.api.created, 1)
		assert.Equal(t, "Tabs or spaces?", env.api.created[0].Question)
		assert.Equal(t, []string{"Technology", "Lifestyle", "Science"}, env.api.created[0].Categories)
	})
}

func TestAIWizard(t *testing.T) {
	env := setupServer(t, true)

	rec := env.get(t, "/ai")
	assert.Contains(t, rec.Body.String(), "Pick a category")

	rec = env.get(t, "/ai?category=Sports")
	assert.Contains(t, rec.Body.String(), "Transfer Window")

	rec = env.get(t, "/ai?category=Sports&theme=Transfer+Window")
	assert.Contains(t, rec.Body.String(), "Was the record fee worth it?")

	rec = env.post(t, "/ai/use", url.Values{
		"category":    {"Sports"},
		"question":    {"Was the record fee worth it?"},
		"description": {"Summer signing"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/create", u.Path)
	assert.Equal(t, "Was the record fee worth it?", u.Query().Get("question"))
	assert.Equal(t, []string{"Sports"}, u.Query()["category"])
}

func TestContact(t *testing.T) {
	env := setupServer(t, false)

	rec := env.get(t, "/contact")
	assert.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "mailto:support@sentio.test?"))
	assert.Contains(t, loc, string(env.device))
	assert.NotContains(t, loc, "+")
}

func TestFeedJSON(t *testing.T) {
	env := setupServer(t, true, poll("p1", "Q1?", "dev-a"))
	env.get(t, "/")

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp feedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, model.CategoryAll, resp.Category)
	require.Len(t, resp.Polls, 1)
	assert.Equal(t, "p1", resp.Polls[0].ID)
	assert.False(t, resp.HasPending)
}

func TestFeedWebsocketPendingBanner(t *testing.T) {
	env := setupServer(t, true, poll("p1", "Q1?", "dev-a"))
	env.get(t, "/")

	ts := httptest.NewServer(env.srv)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/feed/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	env.api.setPolls(poll("p1", "Q1?", "dev-a"), poll("p2", "Q2?", "dev-b"))
	// The subscription is registered after the upgrade; keep refreshing
	// until the event arrives.
	deadline := time.Now().Add(5 * time.Second)
	got := make(chan wsEvent, 1)
	go func() {
		var e wsEvent
		if err := conn.ReadJSON(&e); err == nil {
			got <- e
		}
	}()
	for {
		env.srv.feed.Refresh(context.Background())
		select {
		case e := <-got:
			assert.Equal(t, feed.EventPending, e.Type)
			assert.Equal(t, 2, e.Count)
			assert.Equal(t, "2 new polls available", e.Message)

			body := env.get(t, "/").Body.String()
			assert.Contains(t, body, "2 new polls available")
			return
		case <-time.After(50 * time.Millisecond):
		}
		require.True(t, time.Now().Before(deadline), "no websocket event")
	}
}

func TestFormatting(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.Local)
	for name, tc := range map[string]struct {
		t    time.Time
		want string
	}{
		"same day":   {now.Add(-3 * time.Hour), "Today"},
		"yesterday":  {now.Add(-30 * time.Hour), "Yesterday"},
		"days ago":   {now.Add(-4 * 24 * time.Hour), "4 days ago"},
		"older":      {time.Date(2026, 9, 1, 12, 0, 0, 0, time.Local), "Sep 1, 2026"},
		"clock skew": {now.Add(2 * time.Hour), "Today"},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, dateLabel(now, tc.t))
		})
	}

	assert.Equal(t, "1,234,567", voteCount(1234567))
	assert.Equal(t, "0", voteCount(0))
	assert.Equal(t, "66.7%", percent(200.0/3))

	link := contactLink("help@example.com", "")
	assert.Contains(t, link, "Device%20ID%3A%20Unknown")

	_, err := dict("a")
	assert.Error(t, err)
	m, err := dict("a", 1, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "two"}, m)
}
