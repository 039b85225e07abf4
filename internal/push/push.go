// Package push registers this device's push token with the backend.
package push

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bryan-buckman/sentio/internal/model"
)

// ErrUnavailable means no token can be obtained: not a physical device, or
// permission was denied. Registration is skipped without error.
var ErrUnavailable = errors.New("push token unavailable")

// DefaultPlatform is reported when the token source names none.
const DefaultPlatform = "web"

// Token is a push token and the platform it was issued for.
type Token struct {
	Value    string
	Platform string
}

// TokenSource obtains the device's push token.
type TokenSource interface {
	Token(ctx context.Context) (Token, error)
}

// Static is a TokenSource returning a fixed, configured token.
type Static Token

// Token implements TokenSource. An empty value is ErrUnavailable.
func (s Static) Token(context.Context) (Token, error) {
	if strings.TrimSpace(s.Value) == "" {
		return Token{}, ErrUnavailable
	}
	t := Token(s)
	if t.Platform == "" {
		t.Platform = DefaultPlatform
	}
	return t, nil
}

// Registrar is the backend call that stores the token.
type Registrar interface {
	RegisterDevice(ctx context.Context, device model.DeviceID, token, platform string) error
}

// Register obtains a token from src and posts it for device. It returns
// (false, nil) when src reports ErrUnavailable.
func Register(ctx context.Context, src TokenSource, reg Registrar, device model.DeviceID) (bool, error) {
	tok, err := src.Token(ctx)
	if errors.Is(err, ErrUnavailable) {
		log.Printf("Push: no token available, skipping registration")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get push token: %w", err)
	}

	if err := reg.RegisterDevice(ctx, device, tok.Value, tok.Platform); err != nil {
		return false, fmt.Errorf("register device %s: %w", device, err)
	}
	log.Printf("Push: registered device %s (%s)", device, tok.Platform)
	return true, nil
}
