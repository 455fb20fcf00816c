package models

import "time"

// NoteShare grants read-only access to a note through an unguessable token.
// ExpiresAt nil means the share never expires.
type NoteShare struct {
	ID          string
	NoteID      string
	OwnerUserID string
	ShareToken  string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// Expired reports whether the share is past its expiry at now.
func (s *NoteShare) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}
