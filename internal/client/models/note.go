package models

import "time"

// Note is a user's note. DeletedAt != nil marks it soft-deleted ("faded").
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Pinned    bool
	DeletedAt *time.Time
	CreatedAt time.Time

	// Tags is assembled from the note_tags table; it is never carried by a
	// realtime note payload.
	Tags []Tag

	SyncMeta
}

func (n *Note) Kind() EntityType { return EntityNote }
func (n *Note) EntityID() string { return n.ID }
func (n *Note) OwnerID() string  { return n.UserID }
func (n *Note) Meta() *SyncMeta  { return &n.SyncMeta }

// Faded reports whether the note is soft-deleted.
func (n *Note) Faded() bool { return n.DeletedAt != nil }

// HasTag reports whether tagID is among the note's tags.
func (n *Note) HasTag(tagID string) bool {
	for _, t := range n.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}

// Payload snapshots the mutable fields for the mutation queue.
func (n *Note) Payload() NotePayload {
	return NotePayload{
		Title:     n.Title,
		Content:   n.Content,
		Pinned:    n.Pinned,
		DeletedAt: n.DeletedAt,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.LocalUpdatedAt,
	}
}
