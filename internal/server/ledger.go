package server

import (
	"context"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/logging"
)

type ledgerPurger interface {
	PurgeLedger(ctx context.Context, cutoff time.Time) (int64, error)
}

// runLedgerPurge forgets applied mutation ids older than retention every
// interval until ctx is done.
func runLedgerPurge(ctx context.Context, p ledgerPurger, retention, interval time.Duration, now func() time.Time, log logging.Logger) {
	if retention <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := p.PurgeLedger(ctx, now().Add(-retention))
			if err != nil {
				log.Error(ctx, "purge mutation ledger", "error", err)
			} else if n > 0 {
				log.Info(ctx, "purged mutation ledger", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
