// Package session keeps per-operator dialogue state: the current step and
// the content queued for the next relay.
package session

import (
	"context"
	"time"

	"github.com/edgard/relaybot/internal/relay"
)

// Step is a position in the private dialogue.
type Step string

const (
	// StepAwaitingPassword is entered by /start and left by the password.
	StepAwaitingPassword Step = "awaiting_password"
	// StepMenu is the authenticated main menu; content sent here is relayed.
	StepMenu Step = "menu"
)

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	return s == StepAwaitingPassword || s == StepMenu
}

// Session is the state of one operator's conversation.
type Session struct {
	OperatorID int64
	Step       Step
	Pending    []relay.Item
	UpdatedAt  time.Time
}

// Store persists sessions. Get returns (nil, nil) when the operator has no
// session.
type Store interface {
	Get(ctx context.Context, operatorID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context, operatorID int64) error
	// Expire drops sessions untouched since before and returns how many.
	Expire(ctx context.Context, before time.Time) (int64, error)
}
