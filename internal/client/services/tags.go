package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/client/queue"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/google/uuid"
)

// TagService manages the user's tags. Names are trimmed, 1 to 20
// characters long and unique ignoring case. Deleting a tag removes its
// associations in the same transaction.
type TagService interface {
	Create(ctx context.Context, name string, color models.TagColor) (*models.Tag, error)
	Rename(ctx context.Context, id, name string) (*models.Tag, error)
	SetColor(ctx context.Context, id string, color models.TagColor) (*models.Tag, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
}

type tagService struct {
	store *localstore.Store
	queue *queue.Queue
	log   logging.Logger
	now   func() time.Time
	newID func() string
}

func NewTagService(store *localstore.Store, q *queue.Queue, log logging.Logger) TagService {
	if log == nil {
		log = logging.Nop()
	}
	return &tagService{
		store: store,
		queue: q,
		log:   log.With("module", "tags"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// checkNameFree fails when another tag already uses name.
func checkNameFree(ctx context.Context, r localstore.Repositories, name, selfID string) error {
	other, err := r.Tags.GetByName(ctx, name)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case err != nil:
		return err
	case other.ID == selfID:
		return nil
	}
	return &common.ValidationError{Field: "tag name", Reason: fmt.Sprintf("%q already exists", other.Name), Err: common.ErrDuplicateTag}
}

// Create adds a tag. An empty color picks the first palette color.
func (s *tagService) Create(ctx context.Context, name string, color models.TagColor) (*models.Tag, error) {
	name, err := normalizeTagName(name)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = models.Palette[0]
	}
	if color, err = validateColor(color); err != nil {
		return nil, err
	}

	now := s.now()
	t := &models.Tag{ID: s.newID(), UserID: s.store.UserID(), Name: name, Color: color, CreatedAt: now}
	t.Touch(now)

	err = s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		if err := checkNameFree(ctx, r, name, ""); err != nil {
			return err
		}
		if err := r.Tags.Upsert(ctx, t); err != nil {
			return err
		}
		_, err := s.queue.EnqueueTx(ctx, r, t.UserID, models.OpCreate, models.EntityTag, t.ID, t.Payload())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "tag created", "id", t.ID, "name", t.Name)
	return t, nil
}

func (s *tagService) mutate(ctx context.Context, id string, fn func(ctx context.Context, r localstore.Repositories, t *models.Tag) error) (*models.Tag, error) {
	var out *models.Tag
	err := s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		t, err := r.Tags.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, r, t); err != nil {
			return err
		}
		t.Touch(s.now())
		if err := r.Tags.Upsert(ctx, t); err != nil {
			return err
		}
		if _, err := s.queue.EnqueueTx(ctx, r, t.UserID, models.OpUpdate, models.EntityTag, t.ID, t.Payload()); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

func (s *tagService) Rename(ctx context.Context, id, name string) (*models.Tag, error) {
	name, err := normalizeTagName(name)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(ctx context.Context, r localstore.Repositories, t *models.Tag) error {
		if err := checkNameFree(ctx, r, name, t.ID); err != nil {
			return err
		}
		t.Name = name
		return nil
	})
}

func (s *tagService) SetColor(ctx context.Context, id string, color models.TagColor) (*models.Tag, error) {
	color, err := validateColor(color)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(_ context.Context, _ localstore.Repositories, t *models.Tag) error {
		t.Color = color
		return nil
	})
}

func (s *tagService) Delete(ctx context.Context, id string) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		if _, err := r.Tags.Get(ctx, id); err != nil {
			return err
		}
		if _, err := r.Queue.DeleteNoteTagsOf(ctx, models.EntityTag, id); err != nil {
			return err
		}
		if err := r.Delete(ctx, models.EntityTag, id); err != nil {
			return err
		}
		_, err := s.queue.EnqueueTx(ctx, r, r.UserID, models.OpDelete, models.EntityTag, id, nil)
		return err
	})
}

func (s *tagService) Get(ctx context.Context, id string) (*models.Tag, error) {
	return s.store.Repos().Tags.Get(ctx, id)
}

func (s *tagService) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	return s.store.Repos().Tags.GetByName(ctx, name)
}

func (s *tagService) List(ctx context.Context) ([]models.Tag, error) {
	return s.store.Repos().Tags.List(ctx)
}
