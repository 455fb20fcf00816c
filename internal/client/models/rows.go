package models

import (
	"fmt"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/remote"
)

// Table maps an entity kind to its remote table.
func (t EntityType) Table() (string, error) {
	switch t {
	case EntityNote:
		return remote.TableNotes, nil
	case EntityTag:
		return remote.TableTags, nil
	case EntityNoteTag:
		return remote.TableNoteTags, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, t)
}

// Row is the remote row written by a create or update of the note.
// updated_at is stamped by the remote store.
func (p NotePayload) Row(id string) remote.Row {
	return remote.Row{
		"id":         id,
		"title":      p.Title,
		"content":    p.Content,
		"pinned":     p.Pinned,
		"deleted_at": remote.FormatTimePtr(p.DeletedAt),
		"created_at": remote.FormatTime(p.CreatedAt),
	}
}

func (p TagPayload) Row(id string) remote.Row {
	return remote.Row{
		"id":         id,
		"name":       p.Name,
		"color":      p.Color,
		"created_at": remote.FormatTime(p.CreatedAt),
	}
}

func (p NoteTagPayload) Row(id string) remote.Row {
	return remote.Row{
		"id":         id,
		"note_id":    p.NoteID,
		"tag_id":     p.TagID,
		"created_at": remote.FormatTime(p.CreatedAt),
	}
}

// NoteFromRow decodes a remote note row. Tags are never part of it.
func NoteFromRow(r remote.Row) (*Note, error) {
	n := &Note{
		ID:      r.ID(),
		UserID:  r.String("user_id"),
		Title:   r.String("title"),
		Content: r.String("content"),
		Pinned:  r.Bool("pinned"),
	}
	if n.ID == "" {
		return nil, fmt.Errorf("note row without id")
	}
	var err error
	if n.DeletedAt, err = r.TimePtr("deleted_at"); err != nil {
		return nil, err
	}
	if n.CreatedAt, err = r.Time("created_at"); err != nil {
		return nil, err
	}
	if n.ServerUpdatedAt, err = r.TimePtr("updated_at"); err != nil {
		return nil, err
	}
	return n, nil
}

func TagFromRow(r remote.Row) (*Tag, error) {
	t := &Tag{
		ID:     r.ID(),
		UserID: r.String("user_id"),
		Name:   r.String("name"),
		Color:  TagColor(r.String("color")),
	}
	if t.ID == "" {
		return nil, fmt.Errorf("tag row without id")
	}
	var err error
	if t.CreatedAt, err = r.Time("created_at"); err != nil {
		return nil, err
	}
	if t.ServerUpdatedAt, err = r.TimePtr("updated_at"); err != nil {
		return nil, err
	}
	return t, nil
}

// NoteTagFromRow accepts rows that carry note_id and tag_id, or only the
// composite id (delete events).
func NoteTagFromRow(r remote.Row) (*NoteTag, error) {
	a := &NoteTag{
		NoteID: r.String("note_id"),
		TagID:  r.String("tag_id"),
		UserID: r.String("user_id"),
	}
	if a.NoteID == "" || a.TagID == "" {
		noteID, tagID, ok := SplitNoteTagID(r.ID())
		if !ok {
			return nil, fmt.Errorf("note tag row without ids")
		}
		a.NoteID, a.TagID = noteID, tagID
	}
	var err error
	if a.CreatedAt, err = r.Time("created_at"); err != nil {
		return nil, err
	}
	return a, nil
}

// ShareFromRow decodes a remote note_shares row.
func ShareFromRow(r remote.Row) (*NoteShare, error) {
	s := &NoteShare{
		ID:          r.ID(),
		NoteID:      r.String("note_id"),
		OwnerUserID: r.String("user_id"),
		ShareToken:  r.String("share_token"),
	}
	var err error
	if s.ExpiresAt, err = r.TimePtr("expires_at"); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = r.Time("created_at"); err != nil {
		return nil, err
	}
	return s, nil
}

// ServerTime returns the updated_at the remote store stamped on a row, or
// fallback when the row has none.
func ServerTime(r remote.Row, fallback time.Time) time.Time {
	if t, err := r.TimePtr("updated_at"); err == nil && t != nil {
		return *t
	}
	return fallback
}
