// Package retention permanently removes notes that stayed soft-deleted
// longer than the recovery window.
package retention

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/metadata"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/anbuneel/zenote-sub001/internal/retry"
	"github.com/google/uuid"
)

// Reporter receives sweep failures. The sweep itself never fails.
type Reporter interface {
	Report(ctx context.Context, err error)
}

type logReporter struct {
	log logging.Logger
}

func (r logReporter) Report(ctx context.Context, err error) {
	r.log.Error(ctx, "retention sweep failed", "error", err)
}

type Sweeper struct {
	store    *localstore.Store
	remote   remote.Store
	reporter Reporter
	retry    retry.Options
	log      logging.Logger
	now      func() time.Time
	newID    func() string
}

// NewSweeper builds a Sweeper. A nil reporter logs failures.
func NewSweeper(store *localstore.Store, rs remote.Store, reporter Reporter, opts retry.Options, log logging.Logger) *Sweeper {
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("module", "retention")
	if reporter == nil {
		reporter = logReporter{log: log}
	}
	return &Sweeper{
		store:    store,
		remote:   rs,
		reporter: reporter,
		retry:    opts,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SweepExpired purges every note whose deleted_at is older than
// retentionDays (30 when not positive) and returns how many were purged.
//
// Expired notes are deleted from the remote store first, each with a fresh
// mutation id; only when all of those succeed are they purged locally with
// their associations and queued mutations. On any failure the error goes
// to the Reporter and 0 is returned.
func (s *Sweeper) SweepExpired(ctx context.Context, retentionDays int) int {
	if retentionDays <= 0 {
		retentionDays = common.DefaultRetentionDays
	}
	now := s.now()
	cutoff := now.AddDate(0, 0, -retentionDays)

	n, err := s.sweep(ctx, cutoff)
	if err != nil {
		s.reporter.Report(ctx, err)
		return 0
	}
	if err := s.store.Repos().Metadata.SetTime(ctx, metadata.KeyLastRetentionSweep, now); err != nil {
		s.log.Warn(ctx, "failed to record retention sweep", "error", err)
	}
	if n > 0 {
		s.log.Info(ctx, "purged expired notes", "count", n, "cutoff", cutoff)
	}
	return n
}

func (s *Sweeper) sweep(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.expired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		mutationID := s.newID()
		err := retry.DoErr(ctx, func(ctx context.Context) error {
			return s.remote.Delete(ctx, remote.TableNotes, id, mutationID)
		}, s.retry)
		if err != nil {
			return 0, fmt.Errorf("delete note %s: %w", id, err)
		}
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, r localstore.Repositories) error {
		for _, id := range ids {
			if _, err := r.Queue.DeleteByEntity(ctx, models.EntityNote, id); err != nil {
				return err
			}
			if _, err := r.Queue.DeleteNoteTagsOf(ctx, models.EntityNote, id); err != nil {
				return err
			}
			if err := r.Delete(ctx, models.EntityNote, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge local notes: %w", err)
	}
	return len(ids), nil
}

// expired unions the remote and local notes deleted before cutoff. A local
// soft delete may not have reached the remote store yet.
func (s *Sweeper) expired(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := retry.Do(ctx, func(ctx context.Context) ([]remote.Row, error) {
		return s.remote.Select(ctx, remote.TableNotes,
			remote.Filter{remote.Lt("deleted_at", remote.FormatTime(cutoff))}, nil)
	}, s.retry)
	if err != nil {
		return nil, fmt.Errorf("select expired notes: %w", err)
	}
	local, err := s.store.Repos().Notes.ListDeletedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired local notes: %w", err)
	}

	seen := make(map[string]struct{}, len(rows)+len(local))
	for _, r := range rows {
		if id := r.ID(); id != "" {
			seen[id] = struct{}{}
		}
	}
	for _, n := range local {
		seen[n.ID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
