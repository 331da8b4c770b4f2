package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/relay"
)

// ErrNoOperator is returned when saving a session without an operator id.
var ErrNoOperator = errors.New("session needs an operator id")

// SQLStore persists sessions in the database so an in-progress dialogue
// survives a restart.
type SQLStore struct {
	store database.Store
}

// NewSQLStore wraps a database store.
func NewSQLStore(store database.Store) *SQLStore {
	return &SQLStore{store: store}
}

func (s *SQLStore) Get(ctx context.Context, operatorID int64) (*Session, error) {
	rec, err := s.store.GetSession(ctx, operatorID)
	if err != nil || rec == nil {
		return nil, err
	}

	var pending []relay.Item
	if rec.Pending != "" {
		if err := json.Unmarshal([]byte(rec.Pending), &pending); err != nil {
			return nil, fmt.Errorf("failed to decode pending items for operator %d: %w", operatorID, err)
		}
	}
	return &Session{
		OperatorID: rec.OperatorID,
		Step:       Step(rec.Step),
		Pending:    pending,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func (s *SQLStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.OperatorID == 0 {
		return ErrNoOperator
	}

	pending := sess.Pending
	if pending == nil {
		pending = []relay.Item{}
	}
	raw, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending items: %w", err)
	}

	rec := &database.SessionRecord{
		OperatorID: sess.OperatorID,
		Step:       string(sess.Step),
		Pending:    string(raw),
	}
	if err := s.store.SaveSession(ctx, rec); err != nil {
		return err
	}
	sess.UpdatedAt = rec.UpdatedAt
	return nil
}

func (s *SQLStore) Clear(ctx context.Context, operatorID int64) error {
	return s.store.DeleteSession(ctx, operatorID)
}

func (s *SQLStore) Expire(ctx context.Context, before time.Time) (int64, error) {
	return s.store.DeleteSessionsBefore(ctx, before)
}
