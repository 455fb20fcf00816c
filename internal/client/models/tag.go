package models

import (
	"strings"
	"time"
)

// TagColor is one of the fixed palette colors.
type TagColor string

const (
	ColorTerracotta TagColor = "terracotta"
	ColorForest     TagColor = "forest"
	ColorOcean      TagColor = "ocean"
	ColorPlum       TagColor = "plum"
	ColorAmber      TagColor = "amber"
	ColorSlate      TagColor = "slate"
	ColorRose       TagColor = "rose"
	ColorSage       TagColor = "sage"
)

// Palette is the full set of tag colors in display order.
var Palette = []TagColor{
	ColorTerracotta, ColorForest, ColorOcean, ColorPlum,
	ColorAmber, ColorSlate, ColorRose, ColorSage,
}

// ParseTagColor accepts a palette color name in any case.
func ParseTagColor(s string) (TagColor, bool) {
	c := TagColor(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Palette {
		if p == c {
			return c, true
		}
	}
	return "", false
}

// Tag is a named, colored label. Names are unique per user ignoring case.
type Tag struct {
	ID        string
	UserID    string
	Name      string
	Color     TagColor
	CreatedAt time.Time

	SyncMeta
}

func (t *Tag) Kind() EntityType { return EntityTag }
func (t *Tag) EntityID() string { return t.ID }
func (t *Tag) OwnerID() string  { return t.UserID }
func (t *Tag) Meta() *SyncMeta  { return &t.SyncMeta }

func (t *Tag) Payload() TagPayload {
	return TagPayload{Name: t.Name, Color: string(t.Color), CreatedAt: t.CreatedAt, UpdatedAt: t.LocalUpdatedAt}
}

// NoteTag associates a note with a tag. It lives and dies with its
// endpoints.
type NoteTag struct {
	NoteID    string
	TagID     string
	UserID    string
	CreatedAt time.Time
}

func (a *NoteTag) Kind() EntityType { return EntityNoteTag }
func (a *NoteTag) EntityID() string { return NoteTagID(a.NoteID, a.TagID) }
func (a *NoteTag) OwnerID() string  { return a.UserID }

func (a *NoteTag) Payload() NoteTagPayload {
	return NoteTagPayload{NoteID: a.NoteID, TagID: a.TagID, CreatedAt: a.CreatedAt}
}
