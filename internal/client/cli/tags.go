package cli

import (
	"context"
	"strings"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
)

func (a *App) Tags(ctx context.Context) error {
	list, err := a.session.Tags.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No tags yet. Type 'tag-add <name> [color]' to create one.")
		return nil
	}
	for _, t := range list {
		a.printf("  %-20s %-10s %s\n", t.Name, t.Color, shortID(t.ID))
	}
	return nil
}

// TagAdd creates a tag; the color defaults to the first of the palette.
func (a *App) TagAdd(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usage("tag-add <name> [color]")
	}
	color := string(models.Palette[0])
	if len(args) == 2 {
		color = args[1]
	}
	c, err := parseColor(color)
	if err != nil {
		return err
	}
	t, err := a.session.Tags.Create(ctx, args[0], c)
	if err != nil {
		return err
	}
	a.changed(ctx)
	a.printf("Created tag %s (%s)\n", t.Name, t.Color)
	return nil
}

func (a *App) TagRename(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("tag-rename <name> <new name>")
	}
	t, err := a.findTag(ctx, args[0])
	if err != nil {
		return err
	}
	renamed, err := a.session.Tags.Rename(ctx, t.ID, args[1])
	if err != nil {
		return err
	}
	a.changed(ctx)
	a.printf("Renamed %s to %s\n", t.Name, renamed.Name)
	return nil
}

func (a *App) TagColor(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("tag-color <name> <color>")
	}
	t, err := a.findTag(ctx, args[0])
	if err != nil {
		return err
	}
	c, err := parseColor(args[1])
	if err != nil {
		return err
	}
	if _, err := a.session.Tags.SetColor(ctx, t.ID, c); err != nil {
		return err
	}
	a.changed(ctx)
	return nil
}

// TagDelete removes a tag and detaches it from every note.
func (a *App) TagDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("tag-delete <name>")
	}
	t, err := a.findTag(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.session.Tags.Delete(ctx, t.ID); err != nil {
		return err
	}
	a.changed(ctx)
	a.printf("Deleted tag %s\n", t.Name)
	return nil
}

// Tag attaches a tag to a note.
func (a *App) Tag(ctx context.Context, args []string) error {
	return a.tagNote(ctx, args, true)
}

// Untag detaches a tag from a note.
func (a *App) Untag(ctx context.Context, args []string) error {
	return a.tagNote(ctx, args, false)
}

func (a *App) tagNote(ctx context.Context, args []string, attach bool) error {
	if len(args) < 2 {
		if attach {
			return usage("tag <note id> <tag name>")
		}
		return usage("untag <note id> <tag name>")
	}
	n, err := a.findNote(ctx, args[0])
	if err != nil {
		return err
	}
	t, err := a.findTag(ctx, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	if attach {
		err = a.session.Notes.AddTag(ctx, n.ID, t.ID)
	} else {
		err = a.session.Notes.RemoveTag(ctx, n.ID, t.ID)
	}
	if err != nil {
		return err
	}
	a.changed(ctx)
	return nil
}
