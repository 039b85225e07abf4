// Package i18n localizes the toasts and banners shown by the local UI.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/active.*.json
var localeFS embed.FS

// Toast messages, keyed by the ID carried in redirects.
var (
	MsgAlreadyReported = &i18n.Message{ID: "toast.already_reported", Other: "You have already reported this poll."}
	MsgReported        = &i18n.Message{ID: "toast.reported", Other: "Thanks. The poll was reported for review."}
	MsgReportFailed    = &i18n.Message{ID: "toast.report_failed", Other: "Failed to report the poll."}
	MsgNetworkError    = &i18n.Message{ID: "toast.network_error", Other: "Network error. Please check your connection."}
	MsgUserBlocked     = &i18n.Message{ID: "toast.user_blocked", Other: "User blocked. You won't see their polls anymore."}
	MsgBlockFailed     = &i18n.Message{ID: "toast.block_failed", Other: "Failed to block the user."}
	MsgSelfBlock       = &i18n.Message{ID: "toast.self_block", Other: "You can't block yourself."}
	MsgOwnPoll         = &i18n.Message{ID: "toast.own_poll", Other: "You can't report your own poll."}
	MsgPollHidden      = &i18n.Message{ID: "toast.poll_hidden", Other: "Poll hidden."}
	MsgVoted           = &i18n.Message{ID: "toast.voted", Other: "Your vote was counted."}
	MsgVoteFailed      = &i18n.Message{ID: "toast.vote_failed", Other: "Your vote could not be submitted. Please try again."}
	MsgPollCreated     = &i18n.Message{ID: "toast.poll_created", Other: "Your poll has been published and is now live for voting."}
	MsgCreateFailed    = &i18n.Message{ID: "toast.create_failed", Other: "Failed to create the poll. Please try again."}

	// MsgNewPolls is pluralized on the number of staged polls.
	MsgNewPolls = &i18n.Message{ID: "banner.new_polls", One: "{{.Count}} new poll available", Other: "{{.Count}} new polls available"}
)

var toasts = map[string]*i18n.Message{}

func init() {
	for _, m := range []*i18n.Message{
		MsgAlreadyReported, MsgReported, MsgReportFailed, MsgNetworkError,
		MsgUserBlocked, MsgBlockFailed, MsgSelfBlock, MsgOwnPoll, MsgPollHidden,
		MsgVoted, MsgVoteFailed, MsgPollCreated, MsgCreateFailed,
	} {
		toasts[m.ID] = m
	}
}

// Bundle holds the default English messages and every embedded translation.
type Bundle struct {
	*i18n.Bundle
}

// NewBundle loads the embedded translations. English comes from the
// message defaults.
func NewBundle() (*Bundle, error) {
	b := &Bundle{Bundle: i18n.NewBundle(language.English)}
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, f := range files {
		if f.Name() == "active.en.json" {
			continue
		}
		p := path.Join("locales", f.Name())
		buf, err := localeFS.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read message file %s: %w", f.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(buf, p); err != nil {
			return nil, fmt.Errorf("load message file %s: %w", f.Name(), err)
		}
	}
	return b, nil
}

// Localizer returns a localizer for the given language preferences, such
// as the raw Accept-Language header.
func (b *Bundle) Localizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(b.Bundle, langs...)
}

// Localize renders m, falling back to its English default.
func (b *Bundle) Localize(l *i18n.Localizer, m *i18n.Message, data map[string]interface{}) string {
	lc := &i18n.LocalizeConfig{DefaultMessage: m, TemplateData: data}
	if n, ok := data["Count"].(int); ok {
		lc.PluralCount = n
	}
	s, err := l.Localize(lc)
	var notFound *i18n.MessageNotFoundErr
	if err != nil && !errors.As(err, &notFound) {
		log.Printf("Failed to localize %s: %v", m.ID, err)
	}
	return s
}

// Toast renders the toast with the given ID. Unknown IDs render as "".
func (b *Bundle) Toast(l *i18n.Localizer, id string) string {
	m, ok := toasts[id]
	if !ok {
		return ""
	}
	return b.Localize(l, m, nil)
}

// IsToast reports whether id names a known toast.
func IsToast(id string) bool {
	_, ok := toasts[id]
	return ok
}
