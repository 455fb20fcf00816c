// Package syncer replays the mutation queue against the remote store.
//
// A drain pass groups the queue into one lane per entity. Entries of a lane
// are applied strictly in queue order; lanes run concurrently. Notes and
// tags drain before associations so an association never reaches the
// remote store ahead of its endpoints.
package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/client/queue"
	"github.com/anbuneel/zenote-sub001/internal/client/repositories/metadata"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/anbuneel/zenote-sub001/internal/retry"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Pinger reports whether the remote store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Retry retry.Options
	// Concurrency bounds the lanes applied at once.
	Concurrency int
	// Interval between periodic drains in Run; zero disables the ticker.
	Interval time.Duration
	// OnlineCheckInterval between pings in Run; zero disables the watcher.
	OnlineCheckInterval time.Duration
}

// StatusChange tells the UI that an entity's sync status moved.
type StatusChange struct {
	Kind   models.EntityType
	ID     string
	Status models.SyncStatus
	Err    error
}

// Result counts the entries of one drain pass. Skipped entries stayed in
// the queue because an earlier entry they depend on failed.
type Result struct {
	Applied int
	Failed  int
	Skipped int
}

type Syncer struct {
	store  *localstore.Store
	queue  *queue.Queue
	remote remote.Store
	pinger Pinger
	opts   Options
	log    logging.Logger
	now    func() time.Time

	drainMu sync.Mutex
	kick    chan struct{}
	online  atomic.Bool

	subsMu sync.Mutex
	subs   []chan StatusChange
}

func New(store *localstore.Store, q *queue.Queue, rs remote.Store, pinger Pinger, opts Options, log logging.Logger) *Syncer {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Syncer{
		store:  store,
		queue:  q,
		remote: rs,
		pinger: pinger,
		opts:   opts,
		log:    log.With("module", "syncer"),
		now:    time.Now,
		kick:   make(chan struct{}, 1),
	}
}

// Subscribe returns a channel of status changes. Slow readers miss
// changes rather than block the drain.
func (s *Syncer) Subscribe() <-chan StatusChange {
	ch := make(chan StatusChange, 64)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	return ch
}

func (s *Syncer) Unsubscribe(ch <-chan StatusChange) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for i, c := range s.subs {
		if c == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(c)
			return
		}
	}
}

func (s *Syncer) notify(c StatusChange) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Kick asks Run for a drain pass soon.
func (s *Syncer) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Online reports the last result of the connectivity watcher.
func (s *Syncer) Online() bool { return s.online.Load() }

type lane struct {
	key     string
	kind    models.EntityType
	entries []models.SyncQueueEntry
}

func lanes(entries []models.SyncQueueEntry) []*lane {
	var out []*lane
	byKey := make(map[string]*lane)
	for _, e := range entries {
		l, ok := byKey[e.Key()]
		if !ok {
			l = &lane{key: e.Key(), kind: e.EntityType}
			byKey[e.Key()] = l
			out = append(out, l)
		}
		l.entries = append(l.entries, e)
	}
	return out
}

// Drain applies every queued entry once. Only one pass runs at a time.
func (s *Syncer) Drain(ctx context.Context) (Result, error) {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	entries, err := s.queue.DrainOrder(ctx, s.store.UserID())
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		return Result{}, nil
	}

	var (
		res    Result
		resMu  sync.Mutex
		failed sync.Map
	)
	count := func(applied, failedN, skipped int) {
		resMu.Lock()
		res.Applied += applied
		res.Failed += failedN
		res.Skipped += skipped
		resMu.Unlock()
	}

	all := lanes(entries)
	phases := [][]*lane{{}, {}}
	for _, l := range all {
		if l.kind == models.EntityNoteTag {
			phases[1] = append(phases[1], l)
		} else {
			phases[0] = append(phases[0], l)
		}
	}

	for _, phase := range phases {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Concurrency)
		for _, l := range phase {
			g.Go(func() error {
				if l.kind == models.EntityNoteTag && s.endpointFailed(&failed, l.entries[0].EntityID) {
					count(0, 0, len(l.entries))
					return nil
				}
				applied, ok, err := s.drainLane(gctx, l)
				if err != nil {
					return err
				}
				if !ok {
					failed.Store(l.key, true)
					count(applied, 1, len(l.entries)-applied-1)
					return nil
				}
				count(applied, 0, 0)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return res, err
		}
	}

	if err := s.store.Repos().Metadata.SetTime(ctx, metadata.KeyLastDrain, s.now()); err != nil {
		s.log.Warn(ctx, "failed to record drain time", "error", err)
	}
	s.log.Info(ctx, "drain finished", "applied", res.Applied, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func (s *Syncer) endpointFailed(failed *sync.Map, noteTagID string) bool {
	noteID, tagID, ok := models.SplitNoteTagID(noteTagID)
	if !ok {
		return false
	}
	_, noteFailed := failed.Load(string(models.EntityNote) + "/" + noteID)
	_, tagFailed := failed.Load(string(models.EntityTag) + "/" + tagID)
	return noteFailed || tagFailed
}

// drainLane applies the lane in order and stops at the first failure. The
// returned error is reserved for local store failures and cancellation.
func (s *Syncer) drainLane(ctx context.Context, l *lane) (applied int, ok bool, err error) {
	for _, e := range l.entries {
		if err := ctx.Err(); err != nil {
			return applied, false, err
		}

		done, err := s.applyEntry(ctx, e)
		if err != nil || !done {
			return applied, false, err
		}
		applied++
	}
	return applied, true, nil
}

// applyEntry sends one entry and settles the queue. The entry stays claimed
// until its outcome is recorded, so a delete enqueued meanwhile cannot
// cancel a create that may already have reached the remote store.
func (s *Syncer) applyEntry(ctx context.Context, e models.SyncQueueEntry) (bool, error) {
	s.queue.Claim(e.ClientMutationID)
	defer s.queue.Release(e.ClientMutationID)

	row, applyErr := retry.Do(ctx, func(ctx context.Context) (remote.Row, error) {
		return s.apply(ctx, e)
	}, s.retryOptions(e))

	if applyErr != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		s.log.Warn(ctx, "mutation failed", "op", e.Operation, "kind", e.EntityType, "id", e.EntityID, "error", applyErr)
		if err := s.queue.MarkFailed(ctx, e.ClientMutationID, applyErr); err != nil {
			return false, err
		}
		if err := s.markError(ctx, e, applyErr); err != nil {
			return false, err
		}
		return false, nil
	}

	// A newer local write may have replaced the entry while it was in flight.
	if err := s.queue.Remove(ctx, e.ClientMutationID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}
	if err := s.markSynced(ctx, e, row); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Syncer) retryOptions(e models.SyncQueueEntry) retry.Options {
	opts := s.opts.Retry
	onRetry := opts.OnRetry
	opts.OnRetry = func(attempt int, err error) {
		s.log.Debug(context.Background(), "retrying mutation", "id", e.ClientMutationID, "attempt", attempt, "error", err)
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	onRateLimit := opts.OnRateLimit
	opts.OnRateLimit = func(waitSeconds int) {
		s.log.Info(context.Background(), "rate limited, waiting", "id", e.ClientMutationID, "seconds", waitSeconds)
		if onRateLimit != nil {
			onRateLimit(waitSeconds)
		}
	}
	return opts
}

// markSynced stamps the entity once no newer local write is still queued
// for it.
func (s *Syncer) markSynced(ctx context.Context, e models.SyncQueueEntry, row remote.Row) error {
	pending, err := s.queue.Pending(ctx, e.EntityType, e.EntityID)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return nil
	}
	if e.EntityType == models.EntityNoteTag || e.Operation == models.OpDelete {
		s.notify(StatusChange{Kind: e.EntityType, ID: e.EntityID, Status: models.StatusSynced})
		return nil
	}

	now := s.now()
	serverAt := models.ServerTime(row, now)
	err = s.updateMeta(ctx, e, func(m *models.SyncMeta) { m.MarkSynced(&serverAt, now) })
	if err != nil {
		return err
	}
	s.notify(StatusChange{Kind: e.EntityType, ID: e.EntityID, Status: models.StatusSynced})
	return nil
}

func (s *Syncer) markError(ctx context.Context, e models.SyncQueueEntry, cause error) error {
	if e.EntityType != models.EntityNoteTag && e.Operation != models.OpDelete {
		err := s.updateMeta(ctx, e, func(m *models.SyncMeta) { m.SyncStatus = models.StatusError })
		if err != nil {
			return err
		}
	}
	s.notify(StatusChange{Kind: e.EntityType, ID: e.EntityID, Status: models.StatusError, Err: cause})
	return nil
}

// updateMeta rewrites the sync columns of a note or tag. Entities removed
// locally in the meantime are ignored.
func (s *Syncer) updateMeta(ctx context.Context, e models.SyncQueueEntry, fn func(m *models.SyncMeta)) error {
	r := s.store.Repos()
	ent, err := r.Get(ctx, e.EntityType, e.EntityID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	synced, ok := ent.(models.Synced)
	if !ok {
		return nil
	}
	m := synced.Meta()
	fn(m)

	switch e.EntityType {
	case models.EntityNote:
		err = r.Notes.UpdateSyncMeta(ctx, e.EntityID, *m)
	case models.EntityTag:
		err = r.Tags.UpdateSyncMeta(ctx, e.EntityID, *m)
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}
