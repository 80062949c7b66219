// Package session tracks MCP sessions created by initialize.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/protocol"
	"github.com/google/uuid"
)

// DefaultTTL is how long an idle session lives.
const DefaultTTL = time.Hour

var ErrNotFound = errors.New("session not found")

// Session is the state kept between requests. Bearer is the credential
// presented at initialize and may be empty.
type Session struct {
	ID              string                  `json:"id"`
	Bearer          string                  `json:"bearer,omitempty"`
	ProtocolVersion string                  `json:"protocolVersion"`
	ClientInfo      protocol.Implementation `json:"clientInfo"`
	CreatedAt       time.Time               `json:"createdAt"`
	LastSeen        time.Time               `json:"lastSeen"`
}

// New returns an unsaved session with a fresh random id.
func New(bearer string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Bearer:    bearer,
		CreatedAt: now,
		LastSeen:  now,
	}
}

// Store persists sessions. Expired sessions behave as missing.
type Store interface {
	Create(ctx context.Context, s *Session) error
	// Get returns ErrNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*Session, error)
	// Touch marks the session used and slides its expiry.
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Close() error
}
