package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sethvargo/go-retry"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
	readLimit        = 4 << 20
)

// Applier consumes pushed events; *Merger implements it.
type Applier interface {
	Apply(ctx context.Context, ev remote.ChangeEvent) error
}

// Subscriber keeps a websocket to the realtime endpoint open and feeds its
// events to an Applier, reconnecting with capped exponential backoff.
type Subscriber struct {
	endpoint string
	token    string
	applier  Applier
	log      logging.Logger

	// OnConnect runs after every successful (re)connect, before events are
	// read. Events missed while disconnected are not replayed.
	OnConnect func(ctx context.Context)

	BaseDelay time.Duration
	MaxDelay  time.Duration

	pause func(ctx context.Context, d time.Duration) error
}

func NewSubscriber(endpoint, accessToken string, applier Applier, log logging.Logger) *Subscriber {
	if log == nil {
		log = logging.Nop()
	}
	return &Subscriber{
		endpoint:  endpoint,
		token:     accessToken,
		applier:   applier,
		log:       log.With("module", "realtime"),
		BaseDelay: defaultBaseDelay,
		MaxDelay:  defaultMaxDelay,
		pause:     pause,
	}
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Subscriber) backoff() retry.Backoff {
	b := retry.NewExponential(s.BaseDelay)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(s.MaxDelay, b)
}

// Run returns when ctx is done. A connection that was established and
// later dropped is redialled after BaseDelay, restarting the backoff.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
			connected, err := s.session(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if connected {
				s.log.Warn(ctx, "realtime connection lost", "error", err)
				return nil
			}
			s.log.Debug(ctx, "realtime connect failed", "error", err)
			return retry.RetryableError(err)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return err
		}
		if err := s.pause(ctx, s.BaseDelay); err != nil {
			return err
		}
	}
}

func (s *Subscriber) dialURL() (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("realtime url: %w", err)
	}
	q := u.Query()
	q.Set(common.AccessTokenHeaderName, s.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// session runs one connection until it fails. connected reports whether
// the handshake succeeded.
func (s *Subscriber) session(ctx context.Context) (connected bool, err error) {
	target, err := s.dialURL()
	if err != nil {
		return false, err
	}
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	s.log.Info(ctx, "realtime connected")
	if s.OnConnect != nil {
		s.OnConnect(ctx)
	}

	for {
		var ev remote.ChangeEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusNormalClosure {
				return true, errors.New("closed by server")
			}
			return true, err
		}
		if err := s.applier.Apply(ctx, ev); err != nil {
			s.log.Error(ctx, "failed to merge pushed change", "table", ev.Table, "event", ev.Event, "error", err)
		}
	}
}
