package syncer

import (
	"context"
	"time"
)

// Run drains once, then again on every Kick, on every tick of
// Options.Interval and whenever the remote store becomes reachable after
// being unreachable. It returns when ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	s.drainLogged(ctx)

	var tick <-chan time.Time
	if s.opts.Interval > 0 {
		t := time.NewTicker(s.opts.Interval)
		defer t.Stop()
		tick = t.C
	}

	var restored <-chan struct{}
	if s.pinger != nil && s.opts.OnlineCheckInterval > 0 {
		restored = s.watchOnline(ctx, s.opts.OnlineCheckInterval)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.kick:
		case <-tick:
		case <-restored:
			s.log.Info(ctx, "remote store reachable again")
		}
		s.drainLogged(ctx)
	}
}

func (s *Syncer) drainLogged(ctx context.Context) {
	if _, err := s.Drain(ctx); err != nil && ctx.Err() == nil {
		s.log.Error(ctx, "drain failed", "error", err)
	}
}

// watchOnline pings the remote store every interval and signals each
// transition from unreachable to reachable.
func (s *Syncer) watchOnline(ctx context.Context, interval time.Duration) <-chan struct{} {
	restored := make(chan struct{}, 1)
	s.online.Store(s.ping(ctx))

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			up := s.ping(ctx)
			if was := s.online.Swap(up); !was && up {
				select {
				case restored <- struct{}{}:
				default:
				}
			}
		}
	}()
	return restored
}

func (s *Syncer) ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.pinger.Ping(ctx) == nil
}
