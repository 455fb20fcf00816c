package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func tagNames(tags []models.Tag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

// noteLine renders one note of a listing:
//
//	* 1a2b3c4d  Groceries [home, weekly] (pending)
func noteLine(n models.Note) string {
	var b strings.Builder
	if n.Pinned {
		b.WriteString("* ")
	} else {
		b.WriteString("  ")
	}
	b.WriteString(shortID(n.ID))
	b.WriteString("  ")
	b.WriteString(displayTitle(n.Title))
	if len(n.Tags) > 0 {
		fmt.Fprintf(&b, " [%s]", tagNames(n.Tags))
	}
	if n.SyncStatus != "" && n.SyncStatus != models.StatusSynced {
		fmt.Fprintf(&b, " (%s)", n.SyncStatus)
	}
	return b.String()
}

// daysLeft is how many started days a faded note has before the sweep
// releases it; never negative.
func daysLeft(n models.Note, retentionDays int, now time.Time) int {
	if n.DeletedAt == nil {
		return retentionDays
	}
	if retentionDays <= 0 {
		retentionDays = common.DefaultRetentionDays
	}
	left := n.DeletedAt.AddDate(0, 0, retentionDays).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// describe turns an error of the taxonomy into a line for the user.
func describe(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *common.ValidationError
		ne *common.NetworkError
		rl *common.RateLimitError
		ce *common.ClientError
		se *common.ServerError
	)
	switch {
	case errors.As(err, &ve):
		return fmt.Sprintf("%s: %s", ve.Field, ve.Reason)
	case errors.Is(err, common.ErrorNotFound):
		return "not found"
	case errors.Is(err, common.ErrTokenExpired):
		return "access token expired; start again with a fresh token"
	case errors.As(err, &rl):
		return fmt.Sprintf("rate limited, try again in %ds", rl.WaitSeconds)
	case errors.As(err, &ne):
		return "server unreachable, try again later"
	case errors.As(err, &ce):
		if ce.Message != "" {
			return ce.Message
		}
		return ce.Error()
	case errors.As(err, &se):
		return "server error, try again later"
	}
	return err.Error()
}

func usage(text string) error {
	return &common.ValidationError{Field: "usage", Reason: text}
}

// findNote resolves a full id or a unique id prefix among the active and
// faded notes of the session. The note comes with its tags.
func (a *App) findNote(ctx context.Context, ref string) (*models.Note, error) {
	if ref == "" {
		return nil, usage("a note id is required")
	}
	active, err := a.session.Notes.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	faded, err := a.session.Notes.ListFaded(ctx)
	if err != nil {
		return nil, err
	}

	var found *models.Note
	for _, list := range [][]models.Note{active, faded} {
		for i := range list {
			if list[i].ID == ref {
				return &list[i], nil
			}
			if !strings.HasPrefix(list[i].ID, ref) {
				continue
			}
			if found != nil {
				return nil, &common.ValidationError{Field: "id", Reason: fmt.Sprintf("%q matches more than one note", ref)}
			}
			found = &list[i]
		}
	}
	if found == nil {
		return nil, common.ErrorNotFound
	}
	return found, nil
}

// findTag resolves a tag by name or by id.
func (a *App) findTag(ctx context.Context, ref string) (*models.Tag, error) {
	t, err := a.session.Tags.GetByName(ctx, ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	return a.session.Tags.Get(ctx, ref)
}

func parseColor(s string) (models.TagColor, error) {
	c, ok := models.ParseTagColor(s)
	if !ok {
		names := make([]string, 0, len(models.Palette))
		for _, p := range models.Palette {
			names = append(names, string(p))
		}
		return "", &common.ValidationError{Field: "tag color", Reason: "pick one of " + strings.Join(names, ", ")}
	}
	return c, nil
}

// parseDays reads an optional expiry in days; "never" or no argument means
// the share does not expire.
func parseDays(args []string) (*int, error) {
	if len(args) == 0 || args[0] == "never" {
		return nil, nil
	}
	d, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, &common.ValidationError{Field: "expiration", Reason: "days must be a number", Err: err}
	}
	return &d, nil
}
