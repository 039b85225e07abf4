// Package gateway is the client's only path to the polling backend. It
// composes endpoint URLs against a configured API origin and wraps each
// backend call as a typed method.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bryan-buckman/sentio/internal/model"
)

// DefaultBaseURL is the production API origin.
const DefaultBaseURL = "https://sentio-backend.onrender.com/api"

// ErrAlreadyReported is returned by ReportPoll when the backend answers 409.
var ErrAlreadyReported = errors.New("poll already reported by this device")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// Detail is the backend's "detail" field, when the body carried one.
	Detail string
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsNetworkError reports whether err came from the transport rather than
// from a backend status code.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) || errors.Is(err, ErrAlreadyReported) {
		return false
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// Endpoint joins base and path, adding the leading slash path may lack.
func Endpoint(base, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Client talks to the polling backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the API at baseURL. A nil httpClient means
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoint composes path against the client's base URL.
func (c *Client) Endpoint(path string) string {
	return Endpoint(c.baseURL, path)
}

// ListPolls returns the feed for category, personalized for device. The
// category filter is omitted for model.CategoryAll or "".
func (c *Client) ListPolls(ctx context.Context, category string, device model.DeviceID) ([]model.Poll, error) {
	q := url.Values{}
	if category != "" && category != model.CategoryAll {
		q.Set("category", category)
	}
	if device != "" {
		q.Set("device_id", string(device))
	}
	path := "/polls/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var polls []model.Poll
	if err := c.do(ctx, http.MethodGet, path, nil, &polls); err != nil {
		return nil, err
	}
	if polls == nil {
		polls = []model.Poll{}
	}
	return polls, nil
}

// GetPoll fetches a single poll.
func (c *Client) GetPoll(ctx context.Context, id string) (*model.Poll, error) {
	var p model.Poll
	if err := c.do(ctx, http.MethodGet, "/polls/"+url.PathEscape(id)+"/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// VoteStatus asks whether device has already voted on poll id. The backend
// answers this on the vote endpoint when no vote_value is sent.
func (c *Client) VoteStatus(ctx context.Context, id string, device model.DeviceID) (model.VoteStatus, error) {
	body := struct {
		DeviceID model.DeviceID `json:"device_id"`
	}{device}

	var st model.VoteStatus
	if err := c.do(ctx, http.MethodPost, "/polls/"+url.PathEscape(id)+"/vote/", body, &st); err != nil {
		return model.VoteStatus{}, err
	}
	return st, nil
}

// Vote casts device's vote on poll id.
func (c *Client) Vote(ctx context.Context, id string, device model.DeviceID, value bool) error {
	body := struct {
		DeviceID  model.DeviceID `json:"device_id"`
		VoteValue bool           `json:"vote_value"`
	}{device, value}
	return c.do(ctx, http.MethodPost, "/polls/"+url.PathEscape(id)+"/vote/", body, nil)
}

// CreatePoll submits a new poll and returns the backend's copy of it.
func (c *Client) CreatePoll(ctx context.Context, p model.NewPoll) (*model.Poll, error) {
	var created model.Poll
	if err := c.do(ctx, http.MethodPost, "/polls/", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ReportPoll flags poll id on behalf of device. A duplicate report yields
// ErrAlreadyReported.
func (c *Client) ReportPoll(ctx context.Context, id string, device model.DeviceID, reason string) error {
	body := struct {
		DeviceID model.DeviceID `json:"device_id"`
		Reason   string         `json:"reason"`
	}{device, reason}

	err := c.do(ctx, http.MethodPost, "/polls/"+url.PathEscape(id)+"/report/", body, nil)
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
		return ErrAlreadyReported
	}
	return err
}

// BlockUser records on the backend that blocker no longer wants to see blocked.
func (c *Client) BlockUser(ctx context.Context, blocker, blocked model.DeviceID) error {
	body := struct {
		Blocker model.DeviceID `json:"blocker_device_id"`
		Blocked model.DeviceID `json:"blocked_device_id"`
	}{blocker, blocked}
	return c.do(ctx, http.MethodPost, "/block-user/", body, nil)
}

// Themes asks the backend for AI-suggested themes in category.
func (c *Client) Themes(ctx context.Context, category string) ([]model.Theme, error) {
	body := struct {
		Category string `json:"category"`
	}{category}

	var resp struct {
		Themes []model.Theme `json:"themes"`
	}
	if err := c.do(ctx, http.MethodPost, "/ai/themes/", body, &resp); err != nil {
		return nil, err
	}
	if resp.Themes == nil {
		resp.Themes = []model.Theme{}
	}
	return resp.Themes, nil
}

// Suggestions asks the backend for AI-generated polls for category and theme.
func (c *Client) Suggestions(ctx context.Context, category, theme string) ([]model.Suggestion, error) {
	body := struct {
		Category string `json:"category"`
		Theme    string `json:"theme"`
	}{category, theme}

	var resp struct {
		Polls []model.Suggestion `json:"polls"`
	}
	if err := c.do(ctx, http.MethodPost, "/ai/polls/", body, &resp); err != nil {
		return nil, err
	}
	if resp.Polls == nil {
		resp.Polls = []model.Suggestion{}
	}
	return resp.Polls, nil
}

// RegisterDevice associates a push token with device.
func (c *Client) RegisterDevice(ctx context.Context, device model.DeviceID, token, platform string) error {
	body := struct {
		DeviceID  model.DeviceID `json:"device_id"`
		PushToken string         `json:"push_token"`
		Platform  string         `json:"platform,omitempty"`
	}{device, token, platform}
	return c.do(ctx, http.MethodPost, "/register-device/", body, nil)
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	endpoint := c.Endpoint(path)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request for %s: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		se := &StatusError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(raw, &detail) == nil {
			se.Detail = detail.Detail
		}
		return se
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}
