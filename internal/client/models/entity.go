// Package models defines the client-side data model: notes, tags, their
// associations, share links and the queued mutations that replay them to the
// remote store.
package models

import (
	"errors"
	"strings"
	"time"
)

// EntityType is the closed set of kinds the mutation queue can carry.
type EntityType string

const (
	EntityNote    EntityType = "note"
	EntityTag     EntityType = "tag"
	EntityNoteTag EntityType = "noteTag"
)

// EntityTypes lists every kind, in dependency order.
var EntityTypes = []EntityType{EntityNote, EntityTag, EntityNoteTag}

var ErrUnknownEntityType = errors.New("unknown entity type")

func (t EntityType) Valid() bool {
	switch t {
	case EntityNote, EntityTag, EntityNoteTag:
		return true
	}
	return false
}

// Operation is a queued mutation verb.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// SyncStatus tells the UI whether the remote store has confirmed the latest
// local write of an entity.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSynced  SyncStatus = "synced"
	StatusError   SyncStatus = "error"
)

// SyncMeta is embedded by every synced entity.
type SyncMeta struct {
	SyncStatus      SyncStatus
	LocalUpdatedAt  time.Time
	ServerUpdatedAt *time.Time
	LastSyncedAt    *time.Time
}

// Touch marks a local mutation at now.
func (m *SyncMeta) Touch(now time.Time) {
	m.SyncStatus = StatusPending
	m.LocalUpdatedAt = now
}

// MarkSynced records a confirmed remote write.
func (m *SyncMeta) MarkSynced(serverUpdatedAt *time.Time, now time.Time) {
	m.SyncStatus = StatusSynced
	if serverUpdatedAt != nil {
		m.ServerUpdatedAt = serverUpdatedAt
	}
	m.LastSyncedAt = &now
}

// Entity is implemented by *Note, *Tag and *NoteTag.
type Entity interface {
	Kind() EntityType
	EntityID() string
	OwnerID() string
}

// Synced is an Entity that tracks its sync state.
type Synced interface {
	Entity
	Meta() *SyncMeta
}

// NoteTagID is the entity id of the (noteID, tagID) association.
func NoteTagID(noteID, tagID string) string {
	return noteID + ":" + tagID
}

// SplitNoteTagID reverses NoteTagID.
func SplitNoteTagID(id string) (noteID, tagID string, ok bool) {
	noteID, tagID, ok = strings.Cut(id, ":")
	if !ok || noteID == "" || tagID == "" {
		return "", "", false
	}
	return noteID, tagID, true
}
