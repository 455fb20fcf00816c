package services

import (
	"context"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/auth"
	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/queue"
	"github.com/anbuneel/zenote-sub001/internal/logging"
)

// Session is the per-user handle of a signed-in client. It owns the local
// store; nothing in it is shared with other sessions.
type Session struct {
	UserID      string
	AccessToken string

	Store *localstore.Store
	Queue *queue.Queue
	Notes NoteService
	Tags  TagService
}

// StartSession opens the local store of the user the access token belongs
// to. The token is not verified here; it works offline.
func StartSession(ctx context.Context, accessToken, dataDir string, log logging.Logger) (*Session, error) {
	userID, err := auth.UserIDUnverified(accessToken)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	store, err := localstore.Open(ctx, dataDir, userID, log)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	s := NewSession(store, log)
	s.AccessToken = accessToken
	return s, nil
}

// NewSession wires services around an open store.
func NewSession(store *localstore.Store, log logging.Logger) *Session {
	q := queue.New(store, log)
	return &Session{
		UserID: store.UserID(),
		Store:  store,
		Queue:  q,
		Notes:  NewNoteService(store, q, log),
		Tags:   NewTagService(store, q, log),
	}
}

// Close releases the local store. The session is unusable afterwards.
func (s *Session) Close() error {
	return s.Store.Close()
}
