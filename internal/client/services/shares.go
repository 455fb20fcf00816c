package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/shares"
)

// ShareService issues share links for the session user's notes. Unlike
// note and tag writes it needs the remote store; the shares it sees are
// cached locally so they can be listed offline.
type ShareService interface {
	Create(ctx context.Context, noteID string, expiresInDays *int) (*models.NoteShare, error)
	Get(ctx context.Context, noteID string) (*models.NoteShare, error)
	UpdateExpiration(ctx context.Context, noteID string, expiresInDays *int) (*models.NoteShare, error)
	Revoke(ctx context.Context, noteID string) error
	Cached(ctx context.Context) ([]models.NoteShare, error)
	URL(share *models.NoteShare) string
}

type shareService struct {
	store  *localstore.Store
	issuer *shares.Issuer
	log    logging.Logger
}

func NewShareService(store *localstore.Store, issuer *shares.Issuer, log logging.Logger) ShareService {
	if log == nil {
		log = logging.Nop()
	}
	return &shareService{store: store, issuer: issuer, log: log.With("module", "shares")}
}

func (s *shareService) cache(ctx context.Context, sh *models.NoteShare) {
	if err := s.store.Repos().Shares.Upsert(ctx, sh); err != nil {
		s.log.Warn(ctx, "failed to cache share", "note", sh.NoteID, "error", err)
	}
}

func (s *shareService) Create(ctx context.Context, noteID string, expiresInDays *int) (*models.NoteShare, error) {
	note, err := s.store.Repos().Notes.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note.Faded() {
		return nil, &common.ValidationError{Field: "note", Reason: "a faded note cannot be shared"}
	}

	sh, err := s.issuer.CreateShare(ctx, noteID, s.store.UserID(), expiresInDays)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, &common.ValidationError{Field: "note", Reason: "not synced yet", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}
	s.cache(ctx, sh)
	return sh, nil
}

// Get asks the remote store and falls back to the cache when it is
// unreachable.
func (s *shareService) Get(ctx context.Context, noteID string) (*models.NoteShare, error) {
	sh, err := s.issuer.GetShare(ctx, noteID)
	var ne *common.NetworkError
	switch {
	case errors.As(err, &ne):
		return s.store.Repos().Shares.GetByNote(ctx, noteID)
	case errors.Is(err, common.ErrorNotFound):
		if err := s.store.Repos().Shares.DeleteByNote(ctx, noteID); err != nil {
			s.log.Warn(ctx, "failed to drop cached share", "note", noteID, "error", err)
		}
		return nil, err
	case err != nil:
		return nil, err
	}
	s.cache(ctx, sh)
	return sh, nil
}

func (s *shareService) UpdateExpiration(ctx context.Context, noteID string, expiresInDays *int) (*models.NoteShare, error) {
	sh, err := s.issuer.UpdateExpiration(ctx, noteID, expiresInDays)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, sh)
	return sh, nil
}

func (s *shareService) Revoke(ctx context.Context, noteID string) error {
	if err := s.issuer.Revoke(ctx, noteID); err != nil {
		return err
	}
	return s.store.Repos().Shares.DeleteByNote(ctx, noteID)
}

func (s *shareService) Cached(ctx context.Context) ([]models.NoteShare, error) {
	return s.store.Repos().Shares.List(ctx)
}

func (s *shareService) URL(share *models.NoteShare) string {
	return s.issuer.URL(share.ShareToken)
}
