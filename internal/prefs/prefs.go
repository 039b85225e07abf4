// Package prefs keeps the small per-device state the client owns: its device
// identifier, the polls the user hid, the creators the user blocked and the
// compliance flags. Everything is stored as plain strings or JSON arrays under
// fixed keys, with no versioning.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bryan-buckman/sentio/internal/database"
	"github.com/bryan-buckman/sentio/internal/model"
)

// Prefs reads and writes preferences through a database.Store.
type Prefs struct {
	store database.Store
	newID func() string

	// mu serializes read-modify-write cycles so concurrent handlers
	// cannot mint two device ids or lose list appends.
	mu sync.Mutex
}

// New returns Prefs backed by store, generating device ids as version-4 UUIDs.
func New(store database.Store) *Prefs {
	return &Prefs{store: store, newID: uuid.NewString}
}

// DeviceID returns the persisted device identifier, creating and persisting
// one on first use.
func (p *Prefs) DeviceID() (model.DeviceID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := p.store.GetSetting(model.SettingDeviceID)
	if err == nil && id != "" {
		return model.DeviceID(id), nil
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id = p.newID()
	if err := p.store.SetSetting(model.SettingDeviceID, id); err != nil {
		return "", fmt.Errorf("save device id: %w", err)
	}
	return model.DeviceID(id), nil
}

// HiddenPolls returns the ids of polls the user removed from the feed.
func (p *Prefs) HiddenPolls() ([]string, error) {
	return p.getList(model.SettingHiddenPolls)
}

// SetHiddenPolls replaces the hidden poll list.
func (p *Prefs) SetHiddenPolls(ids []string) error {
	return p.setList(model.SettingHiddenPolls, ids)
}

// HidePoll appends pollID to the hidden list unless it is already there.
func (p *Prefs) HidePoll(pollID string) error {
	return p.appendList(model.SettingHiddenPolls, pollID)
}

// BlockedUsers returns the creator device ids the user blocked.
func (p *Prefs) BlockedUsers() ([]model.DeviceID, error) {
	ids, err := p.getList(model.SettingBlockedUsers)
	if err != nil {
		return nil, err
	}
	out := make([]model.DeviceID, len(ids))
	for i, id := range ids {
		out[i] = model.DeviceID(id)
	}
	return out, nil
}

// SetBlockedUsers replaces the blocked creator list.
func (p *Prefs) SetBlockedUsers(ids []model.DeviceID) error {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	return p.setList(model.SettingBlockedUsers, raw)
}

// BlockUser appends creator to the blocked list unless it is already there.
func (p *Prefs) BlockUser(creator model.DeviceID) error {
	return p.appendList(model.SettingBlockedUsers, string(creator))
}

// Compliance holds the flags set by the age and terms gate.
type Compliance struct {
	AgeConfirmed  bool
	TermsAccepted bool
}

// Accepted reports whether both flags are set.
func (c Compliance) Accepted() bool {
	return c.AgeConfirmed && c.TermsAccepted
}

// Compliance returns the current gate flags. Absent keys read as false.
func (p *Prefs) Compliance() (Compliance, error) {
	age, err := p.getFlag(model.SettingAgeConfirmed)
	if err != nil {
		return Compliance{}, err
	}
	terms, err := p.getFlag(model.SettingTermsAccepted)
	if err != nil {
		return Compliance{}, err
	}
	return Compliance{AgeConfirmed: age, TermsAccepted: terms}, nil
}

// AcceptCompliance records that the user confirmed their age and accepted the terms.
func (p *Prefs) AcceptCompliance() error {
	if err := p.store.SetSetting(model.SettingAgeConfirmed, "true"); err != nil {
		return fmt.Errorf("save %s: %w", model.SettingAgeConfirmed, err)
	}
	if err := p.store.SetSetting(model.SettingTermsAccepted, "true"); err != nil {
		return fmt.Errorf("save %s: %w", model.SettingTermsAccepted, err)
	}
	return nil
}

func (p *Prefs) getFlag(key string) (bool, error) {
	val, err := p.store.GetSetting(key)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return val == "true", nil
}

func (p *Prefs) getList(key string) ([]string, error) {
	raw, err := p.store.GetSetting(key)
	if errors.Is(err, database.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if raw == "" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (p *Prefs) setList(key string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := p.store.SetSetting(key, string(b)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (p *Prefs) appendList(key, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids, err := p.getList(key)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return p.setList(key, append(ids, id))
}
