package cli

import (
	"context"

	"github.com/anbuneel/zenote-sub001/internal/client/repositories/metadata"
)

// Sync drains the mutation queue now and reports the outcome.
func (a *App) Sync(ctx context.Context) error {
	res, err := a.syncer.Drain(ctx)
	if err != nil {
		return err
	}
	a.printf("Synced: %d applied, %d failed, %d waiting\n", res.Applied, res.Failed, res.Skipped)
	if err := a.merger.Load(ctx); err != nil {
		return err
	}
	return nil
}

func (a *App) Status(ctx context.Context) error {
	pending, err := a.session.Queue.Len(ctx)
	if err != nil {
		return err
	}
	meta := a.session.Store.Repos().Metadata
	lastDrain, err := meta.GetTime(ctx, metadata.KeyLastDrain)
	if err != nil {
		return err
	}
	lastSweep, err := meta.GetTime(ctx, metadata.KeyLastRetentionSweep)
	if err != nil {
		return err
	}

	state := "offline"
	if a.syncer.Online() {
		state = "online"
	}
	v := a.merger.View()

	a.printf("user:        %s\n", a.session.UserID)
	a.printf("server:      %s (%s)\n", a.config.ServerEndpointAddr, state)
	a.printf("notes:       %d active, %d faded\n", len(v.Active), v.FadedCount)
	a.printf("pending:     %d\n", pending)
	a.printf("last sync:   %s\n", formatTime(lastDrain))
	a.printf("last sweep:  %s\n", formatTime(lastSweep))
	if v.OpenNoteID != "" {
		a.printf("open note:   %s\n", shortID(v.OpenNoteID))
	}
	return nil
}

// Export uploads a zip of the active notes and prints where to fetch it.
func (a *App) Export(ctx context.Context) error {
	res, err := a.exporter.Export(ctx)
	if err != nil {
		return err
	}
	a.printf("Exported %d notes (%d bytes)\n", res.Notes, res.Bytes)
	a.printf("Download: %s\n", res.DownloadURL)
	return nil
}
