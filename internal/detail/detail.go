// Package detail implements the poll detail screen: loading one poll,
// probing whether this device already voted, and submitting a vote.
package detail

import (
	"context"
	"fmt"
	"log"

	"github.com/bryan-buckman/sentio/internal/model"
)

// State is the detail screen's lifecycle.
type State int

const (
	Loading State = iota
	Loaded
	Submitted
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Backend is the subset of the gateway the detail screen needs.
type Backend interface {
	GetPoll(ctx context.Context, id string) (*model.Poll, error)
	VoteStatus(ctx context.Context, id string, device model.DeviceID) (model.VoteStatus, error)
	Vote(ctx context.Context, id string, device model.DeviceID, value bool) error
}

// Screen is the render state of a poll detail.
type Screen struct {
	PollID string
	Poll   *model.Poll
	Status model.VoteStatus
	State  State
	Err    error
}

// CanVote reports whether the voting controls should be shown.
func (s Screen) CanVote() bool {
	return s.Poll != nil && s.Poll.IsActive && !s.Status.HasVoted && s.State != Submitted
}

// Flow drives the detail screen for one device.
type Flow struct {
	backend Backend
	device  model.DeviceID
}

// NewFlow returns a Flow voting as device.
func NewFlow(backend Backend, device model.DeviceID) *Flow {
	return &Flow{backend: backend, device: device}
}

// Open loads the poll and the vote-status probe. A failed poll fetch yields
// a Failed screen without a poll; a failed probe is logged and treated as
// not voted.
func (f *Flow) Open(ctx context.Context, pollID string) Screen {
	s := Screen{PollID: pollID, State: Loading}

	p, err := f.backend.GetPoll(ctx, pollID)
	if err != nil {
		log.Printf("Error fetching poll %s: %v", pollID, err)
		s.State = Failed
		s.Err = err
		return s
	}
	s.Poll = p

	st, err := f.backend.VoteStatus(ctx, pollID, f.device)
	if err != nil {
		log.Printf("Vote status probe for poll %s failed: %v", pollID, err)
	} else {
		s.Status = st
	}
	s.State = Loaded
	return s
}

// Submit casts the device's vote. On failure the error is logged and
// returned in a Failed screen so the user can retry.
func (f *Flow) Submit(ctx context.Context, pollID string, value bool) Screen {
	if err := f.backend.Vote(ctx, pollID, f.device, value); err != nil {
		log.Printf("Voting failed on poll %s: %v", pollID, err)
		s := f.Open(ctx, pollID)
		s.State = Failed
		s.Err = fmt.Errorf("vote on poll %s: %w", pollID, err)
		return s
	}
	return Screen{
		PollID: pollID,
		Status: model.VoteStatus{HasVoted: true, VoteValue: &value},
		State:  Submitted,
	}
}
