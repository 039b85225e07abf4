package feed

import (
	"strings"

	"github.com/bryan-buckman/sentio/internal/model"
)

// Filter removes hidden polls and polls by blocked creators.
type Filter struct {
	hidden  map[string]struct{}
	blocked map[model.DeviceID]struct{}
}

// NewFilter builds a Filter from the persisted moderation lists.
func NewFilter(hidden []string, blocked []model.DeviceID) *Filter {
	f := &Filter{
		hidden:  make(map[string]struct{}, len(hidden)),
		blocked: make(map[model.DeviceID]struct{}, len(blocked)),
	}
	for _, id := range hidden {
		f.hidden[id] = struct{}{}
	}
	for _, id := range blocked {
		f.blocked[id] = struct{}{}
	}
	return f
}

// Hide adds a poll id.
func (f *Filter) Hide(pollID string) {
	f.hidden[pollID] = struct{}{}
}

// Block adds a creator id.
func (f *Filter) Block(creator model.DeviceID) {
	f.blocked[creator] = struct{}{}
}

// Allows reports whether p may be shown.
func (f *Filter) Allows(p model.Poll) bool {
	if _, ok := f.hidden[p.ID]; ok {
		return false
	}
	if p.CreatorDeviceID != "" {
		if _, ok := f.blocked[p.CreatorDeviceID]; ok {
			return false
		}
	}
	return true
}

// Apply returns the polls of list that pass the filter, in order. The input
// slice is not modified.
func (f *Filter) Apply(list []model.Poll) []model.Poll {
	out := make([]model.Poll, 0, len(list))
	for _, p := range list {
		if f.Allows(p) {
			out = append(out, p)
		}
	}
	return out
}

// Search keeps the polls whose question or description contains at least
// one of the whitespace-separated words of query, case-insensitively. An
// empty query keeps everything.
func Search(list []model.Poll, query string) []model.Poll {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return list
	}
	out := make([]model.Poll, 0, len(list))
	for _, p := range list {
		text := strings.ToLower(p.Question + " " + p.DescriptionText())
		for _, w := range words {
			if strings.Contains(text, w) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
