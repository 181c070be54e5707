// internal/common/livekit/token.go

// Package livekit adapts LiveKit rooms, tokens and webhooks to the agent host.
package livekit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"rehmat-agent/internal/common/config"
)

// ErrMisconfigured is returned when LiveKit credentials are missing.
var ErrMisconfigured = errors.New("Server misconfigured")

// TokenResponse is what the web client needs to join a fresh call room.
type TokenResponse struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	RoomName string `json:"roomName"`
}

// TokenIssuer mints join tokens for customers.
type TokenIssuer struct {
	url        string
	apiKey     string
	apiSecret  string
	roomPrefix string
	ttl        time.Duration
	newSuffix  func() string
}

func NewTokenIssuer(cfg config.LiveKitConfig) *TokenIssuer {
	return &TokenIssuer{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		roomPrefix: cfg.RoomPrefix,
		ttl:        config.GetDuration(cfg.TokenTTL),
		newSuffix:  randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// CustomerToken creates a new call room name and a token that lets a
// customer join, publish and subscribe in it.
func (t *TokenIssuer) CustomerToken() (*TokenResponse, error) {
	if t.url == "" || t.apiKey == "" || t.apiSecret == "" {
		return nil, ErrMisconfigured
	}

	room := t.roomPrefix + t.newSuffix()
	identity := "customer-" + t.newSuffix()

	canPublish, canSubscribe := true, true
	at := auth.NewAccessToken(t.apiKey, t.apiSecret).
		SetVideoGrant(&auth.VideoGrant{
			RoomJoin:     true,
			Room:         room,
			CanPublish:   &canPublish,
			CanSubscribe: &canSubscribe,
		}).
		SetIdentity(identity).
		SetName(identity)
	if t.ttl > 0 {
		at.SetValidFor(t.ttl)
	}

	jwt, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResponse{Token: jwt, URL: t.url, RoomName: room}, nil
}
