package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the per-kind body of a queued mutation. The set of
// implementations is closed: NotePayload, TagPayload, NoteTagPayload.
type Payload interface {
	PayloadType() EntityType
}

// NotePayload is a full snapshot of a note's mutable fields. FadeChanged
// marks a snapshot that soft-deletes or restores the note; it is local
// bookkeeping and never sent.
type NotePayload struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Pinned      bool       `json:"pinned"`
	DeletedAt   *time.Time `json:"deletedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	FadeChanged bool       `json:"fadeChanged,omitempty"`
}

func (NotePayload) PayloadType() EntityType { return EntityNote }

type TagPayload struct {
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (TagPayload) PayloadType() EntityType { return EntityTag }

type NoteTagPayload struct {
	NoteID    string    `json:"noteId"`
	TagID     string    `json:"tagId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (NoteTagPayload) PayloadType() EntityType { return EntityNoteTag }

// SyncQueueEntry is one pending remote write. Seq is the insertion order.
type SyncQueueEntry struct {
	Seq              int64
	ClientMutationID string
	UserID           string
	Operation        Operation
	EntityType       EntityType
	EntityID         string
	Payload          json.RawMessage
	CreatedAt        time.Time
	RetryCount       int
	LastError        string
}

// WrapPayload encodes p for storage.
func WrapPayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(p)
}

// Unwrap decodes the payload according to EntityType.
func (e SyncQueueEntry) Unwrap() (Payload, error) {
	raw := e.Payload
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	var (
		p   Payload
		err error
	)
	switch e.EntityType {
	case EntityNote:
		var v NotePayload
		err = json.Unmarshal(raw, &v)
		p = v
	case EntityTag:
		var v TagPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case EntityNoteTag:
		var v NoteTagPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, e.EntityType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.EntityType, err)
	}
	return p, nil
}

// Key groups entries of the same entity.
func (e SyncQueueEntry) Key() string {
	return string(e.EntityType) + "/" + e.EntityID
}
