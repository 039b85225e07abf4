package server

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bryan-buckman/sentio/internal/model"
)

// dateLabel renders a creation date the way the feed cards show it.
func dateLabel(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = -d
	}
	days := int(d / (24 * time.Hour))
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}

func voteCount(n int) string {
	return humanize.Comma(int64(n))
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// contactLink builds the support mailto link, carrying the device id so
// support can find the reporter.
func contactLink(email string, device model.DeviceID) string {
	id := string(device)
	if id == "" {
		id = "Unknown"
	}
	q := url.Values{}
	q.Set("subject", "Sentio App - User Support")
	q.Set("body", "Hello Sentio Team,\n\nDevice ID: "+id+"\n\nPlease describe your issue below:\n\n")
	// Mail clients do not decode '+' as a space.
	return "mailto:" + email + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

// dict builds a map from alternating keys and values so templates can pass
// several values to a sub-template.
func dict(kv ...interface{}) (map[string]interface{}, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}
