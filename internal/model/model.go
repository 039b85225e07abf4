// Package model defines shared data structures.
package model

import "time"

// DeviceID is the locally generated pseudo-identity that stands in for a user
// account. It is created once per install and passed explicitly to every
// backend call that needs to know who is asking.
type DeviceID string

// String returns the raw identifier.
func (d DeviceID) String() string { return string(d) }

// Poll is a yes/no poll as returned by the backend. The client treats each
// fetched Poll as an immutable snapshot.
type Poll struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	Description     *string   `json:"description"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	YesVotes        int       `json:"yes_votes,omitempty"`
	NoVotes         int       `json:"no_votes,omitempty"`
	TotalVotes      int       `json:"total_votes,omitempty"`
	CreatorDeviceID DeviceID  `json:"creator_device_id,omitempty"`
}

// DescriptionText returns the description or "" when the backend sent null.
func (p Poll) DescriptionText() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// YesPercent returns the share of yes votes in [0, 100].
func (p Poll) YesPercent() float64 {
	if p.TotalVotes <= 0 {
		return 0
	}
	return float64(p.YesVotes) / float64(p.TotalVotes) * 100
}

// NoPercent returns the share of no votes in [0, 100].
func (p Poll) NoPercent() float64 {
	if p.TotalVotes <= 0 {
		return 0
	}
	return float64(p.NoVotes) / float64(p.TotalVotes) * 100
}

// Vote is a single ballot. Votes are server-owned; the client only ever sees
// the aggregate counters on Poll.
type Vote struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	VoteValue bool      `json:"vote_value"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteStatus is the answer to the vote-status probe for one poll and device.
type VoteStatus struct {
	HasVoted  bool  `json:"has_voted"`
	VoteValue *bool `json:"vote_value"`
}

// NewPoll is the payload for creating a poll.
type NewPoll struct {
	Question    string   `json:"question"`
	Description string   `json:"description"`
	Categories  []string `json:"categories,omitempty"`
}

// Theme is an AI-suggested theme within a category.
type Theme struct {
	Theme       string `json:"theme"`
	Description string `json:"description"`
}

// Suggestion is an AI-generated poll proposal.
type Suggestion struct {
	Question    string   `json:"question"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// CategoryAll is the pseudo-category that disables category filtering.
const CategoryAll = "All"

// MaxPollCategories bounds how many categories a new poll may carry.
const MaxPollCategories = 3

// Categories lists the poll categories in display order, without CategoryAll.
var Categories = []string{
	"Politics",
	"Technology",
	"Sports",
	"Entertainment",
	"Lifestyle",
	"Science",
	"Business",
	"Health",
}

// IsCategory reports whether name is a known category or CategoryAll.
func IsCategory(name string) bool {
	if name == CategoryAll {
		return true
	}
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Settings key constants.
const (
	SettingDeviceID      = "device_id"
	SettingAgeConfirmed  = "age_confirmed"
	SettingTermsAccepted = "terms_accepted"
	SettingHiddenPolls   = "hiddenPolls"
	SettingBlockedUsers  = "blockedUsers"
)

// Report reasons understood by the backend.
const (
	ReasonInappropriate = "inappropriate_content"
)
