package cli

import (
	"context"
	"errors"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
)

// Share prints a link to a note, creating one when the note has none. An
// existing share gets the new expiry when days are given.
func (a *App) Share(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usage("share <id> [days|never]")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	days, err := parseDays(args[1:])
	if err != nil {
		return err
	}

	sh, err := a.shares.Get(ctx, n.ID)
	switch {
	case errors.Is(err, common.ErrorNotFound) || (err == nil && sh.Expired(a.now())):
		sh, err = a.shares.Create(ctx, n.ID, days)
	case err == nil && len(args) == 2:
		sh, err = a.shares.UpdateExpiration(ctx, n.ID, days)
	}
	if err != nil {
		return err
	}
	a.printShare(sh)
	return nil
}

func (a *App) Unshare(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("unshare <id>")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.shares.Revoke(ctx, n.ID); err != nil {
		return err
	}
	a.printf("Revoked the share of %s\n", shortID(n.ID))
	return nil
}

// Shares lists the shares seen by this client; it works offline.
func (a *App) Shares(ctx context.Context) error {
	list, err := a.shares.Cached(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No shared notes.")
		return nil
	}
	for i := range list {
		a.printShare(&list[i])
	}
	return nil
}

func (a *App) printShare(sh *models.NoteShare) {
	state := "never expires"
	switch {
	case sh.Expired(a.now()):
		state = "expired " + formatTime(sh.ExpiresAt)
	case sh.ExpiresAt != nil:
		state = "expires " + formatTime(sh.ExpiresAt)
	}
	a.printf("%s  %s  (%s)\n", shortID(sh.NoteID), a.shares.URL(sh), state)
}
