package cli

import (
	"context"
	"strings"
)

// List prints the active notes of the working set, pinned first.
func (a *App) List(ctx context.Context) error {
	v := a.merger.View()
	if len(v.Active) == 0 {
		a.println("No notes yet. Type 'add' to write one.")
	}
	for _, n := range v.Active {
		a.println(noteLine(n))
	}
	if v.FadedCount > 0 {
		a.printf("(%d faded; type 'faded' to see them)\n", v.FadedCount)
	}
	return nil
}

// Faded prints soft-deleted notes with the days left before release.
func (a *App) Faded(ctx context.Context) error {
	list := a.merger.View().Faded
	if len(list) == 0 {
		a.println("Nothing has faded.")
		return nil
	}
	now := a.now()
	for _, n := range list {
		a.printf("%s  %d days left\n", noteLine(n), daysLeft(n, a.config.RetentionDays, now))
	}
	return nil
}

// Show prints a note and makes it the open note.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("show <id>")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	a.merger.Open(n.ID)

	a.printf("# %s\n", displayTitle(n.Title))
	a.printf("id:      %s\n", n.ID)
	if len(n.Tags) > 0 {
		a.printf("tags:    %s\n", tagNames(n.Tags))
	}
	a.printf("pinned:  %t\n", n.Pinned)
	a.printf("status:  %s\n", n.SyncStatus)
	a.printf("created: %s\n", formatTime(&n.CreatedAt))
	a.printf("updated: %s\n", formatTime(&n.LocalUpdatedAt))
	if n.Faded() {
		a.printf("faded:   %s (%d days left)\n", formatTime(n.DeletedAt), daysLeft(*n, a.config.RetentionDays, a.now()))
	}
	a.println()
	a.println(n.Content)
	return nil
}

// CloseNote forgets the open note.
func (a *App) CloseNote(ctx context.Context) error {
	a.merger.Close()
	return nil
}

// readContent reads a note body: prompted lines on a terminal, everything
// up to a lone "." when stdin is piped.
func (a *App) readContent(prompt string) (string, error) {
	if a.interactive {
		return GetMultiline(a.in, prompt, a.out)
	}
	return GetPiped(a.in)
}

// Add creates a note. The title comes from the arguments or a prompt.
func (a *App) Add(ctx context.Context, args []string) error {
	title := strings.Join(args, " ")
	if title == "" && a.interactive {
		t, err := GetSimpleText(a.in, "Title", a.out)
		if err != nil {
			return err
		}
		title = t
	}
	content, err := a.readContent("Content")
	if err != nil {
		return err
	}

	n, err := a.session.Notes.Create(ctx, title, content)
	if err != nil {
		return err
	}
	a.changed(ctx)
	a.printf("Added %s  %s\n", shortID(n.ID), displayTitle(n.Title))
	return nil
}

// Edit replaces a note's content, and its title when one is given. An
// empty body keeps the current content.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("edit <id> [title]")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	title := n.Title
	if len(args) > 1 {
		title = strings.Join(args[1:], " ")
	}
	content, err := a.readContent("New content (empty keeps the current one)")
	if err != nil {
		return err
	}
	if content == "" {
		content = n.Content
	}

	if _, err := a.session.Notes.Update(ctx, n.ID, title, content); err != nil {
		return err
	}
	a.changed(ctx)
	a.printf("Saved %s\n", shortID(n.ID))
	return nil
}

func (a *App) Pin(ctx context.Context, args []string, pinned bool) error {
	if len(args) != 1 {
		if pinned {
			return usage("pin <id>")
		}
		return usage("unpin <id>")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	if _, err := a.session.Notes.SetPinned(ctx, n.ID, pinned); err != nil {
		return err
	}
	a.changed(ctx)
	return nil
}

// Delete fades a note. It stays restorable for the retention window.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("delete <id>")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	faded, err := a.session.Notes.SoftDelete(ctx, n.ID)
	if err != nil {
		return err
	}
	if a.merger.View().OpenNoteID == n.ID {
		a.merger.Close()
	}
	a.changed(ctx)
	a.printf("Faded %s; restorable for %d days\n", shortID(n.ID), daysLeft(*faded, a.config.RetentionDays, a.now()))
	return nil
}

func (a *App) Restore(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("restore <id>")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	if !n.Faded() {
		a.printf("%s is not faded\n", shortID(n.ID))
		return nil
	}
	if _, err := a.session.Notes.Restore(ctx, n.ID); err != nil {
		return err
	}
	a.changed(ctx)
	a.printf("Restored %s\n", shortID(n.ID))
	return nil
}

// Purge deletes a note for good, without waiting for the sweep.
func (a *App) Purge(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("purge <id>")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.session.Notes.PermanentDelete(ctx, n.ID); err != nil {
		return err
	}
	if a.merger.View().OpenNoteID == n.ID {
		a.merger.Close()
	}
	a.changed(ctx)
	a.printf("Purged %s\n", shortID(n.ID))
	return nil
}
