package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/client"
	"github.com/anbuneel/zenote-sub001/internal/client/config"
	"github.com/anbuneel/zenote-sub001/internal/client/export"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/client/realtime"
	"github.com/anbuneel/zenote-sub001/internal/client/retention"
	"github.com/anbuneel/zenote-sub001/internal/client/services"
	"github.com/anbuneel/zenote-sub001/internal/client/syncer"
	"github.com/anbuneel/zenote-sub001/internal/filex"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/anbuneel/zenote-sub001/internal/retry"
	"github.com/anbuneel/zenote-sub001/internal/shares"
)

// Remote is the part of the server connection the client uses.
type Remote interface {
	remote.Store
	Ping(ctx context.Context) error
	PresignExport(ctx context.Context) (*client.PresignedExport, error)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	session *services.Session
	remote  Remote
	closer  io.Closer

	syncer     *syncer.Syncer
	merger     *realtime.Merger
	subscriber *realtime.Subscriber
	sweeper    *retention.Sweeper
	shares     services.ShareService
	exporter   *export.Exporter

	in          *bufio.Reader
	out         *syncWriter
	interactive bool
	now         func() time.Time
}

// NewApp opens the session of the configured access token and connects
// the engine to the server. Nothing talks to the network until Run.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.AccessToken == "" {
		return nil, errors.New("an access token is required (-t)")
	}
	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	session, err := services.StartSession(ctx, c.AccessToken, dir, logger)
	if err != nil {
		return nil, err
	}

	rc, err := client.NewGRPCClient(c.ServerEndpointAddr, c.AccessToken)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("grpc client init error: %w", err)
	}

	a := newApp(c, session, rc, logger, os.Stdin, os.Stdout, isTerminal(int(os.Stdin.Fd())))
	a.closer = rc
	if c.RealtimeURL != "" {
		a.subscriber = realtime.NewSubscriber(c.RealtimeURL, c.AccessToken, a.merger, logger)
		a.subscriber.OnConnect = a.reload
	}
	return a, nil
}

func newApp(c *config.Config, s *services.Session, rc Remote, logger logging.Logger, in io.Reader, out io.Writer, interactive bool) *App {
	if logger == nil {
		logger = logging.Nop()
	}
	opts := retry.Options{MaxAttempts: c.RetryMaxAttempts, InitialDelay: c.RetryInitialDelay}

	a := &App{
		config:      c,
		logger:      logger.With("module", "cli"),
		session:     s,
		remote:      rc,
		in:          bufio.NewReader(in),
		out:         &syncWriter{w: out},
		interactive: interactive,
		now:         time.Now,
	}
	a.syncer = syncer.New(s.Store, s.Queue, rc, rc, syncer.Options{
		Retry:               opts,
		Interval:            c.SyncInterval,
		OnlineCheckInterval: c.OnlineCheckInterval,
	}, logger)
	a.merger = realtime.NewMerger(s.Store, realtime.Options{OnNavigateAway: a.navigatedAway}, logger)
	a.sweeper = retention.NewSweeper(s.Store, rc, sweepReporter{a: a}, opts, logger)
	a.shares = services.NewShareService(s.Store, shares.NewIssuer(rc, c.ShareBaseURL, logger), logger)
	a.exporter = export.New(s.Notes, rc, opts, logger)
	return a
}

// Run sweeps expired notes, loads the working set, starts background sync
// and blocks in the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	a.println("Welcome to Zenote (type 'help' for commands)")

	if n := a.sweeper.SweepExpired(ctx, a.config.RetentionDays); n > 0 {
		a.printf("Released %d faded notes past the retention window\n", n)
	}
	if err := a.merger.Load(ctx); err != nil {
		return fmt.Errorf("load notes: %w", err)
	}

	var wg sync.WaitGroup
	a.startBackground(ctx, &wg)

	runREPL(ctx, a, a.prompt, a.in, a.out)

	cancel()
	wg.Wait()
	return nil
}

func (a *App) startBackground(ctx context.Context, wg *sync.WaitGroup) {
	changes := a.syncer.Subscribe()

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer a.syncer.Unsubscribe(changes)
		a.watchStatus(ctx, changes)
	}()
	go func() {
		defer wg.Done()
		if err := a.syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error(ctx, "sync loop stopped", "error", err)
		}
	}()

	if a.subscriber != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error(ctx, "realtime stopped", "error", err)
			}
		}()
	}
}

// Close releases the server connection and the local store.
func (a *App) Close() {
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.logger.Warn(context.Background(), "failed to close connection", "error", err)
		}
	}
	if err := a.session.Close(); err != nil {
		a.logger.Warn(context.Background(), "failed to close local store", "error", err)
	}
}

// reload rebuilds the working set; run after local writes and reconnects.
func (a *App) reload(ctx context.Context) {
	if err := a.merger.Load(ctx); err != nil {
		a.logger.Warn(ctx, "failed to reload notes", "error", err)
	}
}

// changed runs after every local write.
func (a *App) changed(ctx context.Context) {
	a.reload(ctx)
	a.syncer.Kick()
}

func (a *App) watchStatus(ctx context.Context, changes <-chan syncer.StatusChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if c.Status == models.StatusError {
				a.printf("\nSync failed for %s %s: %s\n", c.Kind, shortID(c.ID), describe(c.Err))
			}
		}
	}
}

func (a *App) navigatedAway(noteID string) {
	a.printf("\nNote %s was deleted on another device; closed it\n", shortID(noteID))
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// syncWriter lets background notices interleave with REPL output.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type sweepReporter struct {
	a *App
}

func (r sweepReporter) Report(ctx context.Context, err error) {
	r.a.logger.Warn(ctx, "retention sweep failed", "error", err)
	r.a.printf("Could not release expired notes: %s\n", describe(err))
}
