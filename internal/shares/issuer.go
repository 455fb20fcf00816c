// Package shares issues and resolves read-only share links for notes.
//
// A share is a note_shares row holding an unguessable token. Shares are
// never soft-deleted: revoking removes the row.
package shares

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/google/uuid"
)

// TokenBytes is the amount of randomness in a share token. Tokens are hex
// encoded, so twice as long.
const TokenBytes = 32

// publicColumns are the note columns a share reveals.
var publicColumns = []string{"id", "title", "content", "created_at", "updated_at"}

type Issuer struct {
	store    remote.Store
	baseURL  string
	log      logging.Logger
	now      func() time.Time
	newID    func() string
	newToken func() (string, error)
}

// NewIssuer builds an Issuer over store. baseURL is the host share links
// point to, such as https://zenote.app.
func NewIssuer(store remote.Store, baseURL string, log logging.Logger) *Issuer {
	if log == nil {
		log = logging.Nop()
	}
	return &Issuer{
		store:    store,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log.With("module", "shares"),
		now:      time.Now,
		newID:    uuid.NewString,
		newToken: randomToken,
	}
}

func randomToken() (string, error) {
	return common.MakeRandHexString(TokenBytes)
}

// URL returns the public link for token.
func (i *Issuer) URL(token string) string {
	return i.baseURL + "/?s=" + url.QueryEscape(token)
}

func (i *Issuer) expiry(expiresInDays *int) (*time.Time, error) {
	if expiresInDays == nil {
		return nil, nil
	}
	if *expiresInDays <= 0 {
		return nil, &common.ValidationError{Field: "expiration", Reason: "must be at least one day"}
	}
	t := i.now().AddDate(0, 0, *expiresInDays)
	return &t, nil
}

// CreateShare issues a new token for noteID. A note has at most one share;
// an existing one is replaced, which invalidates its token.
func (i *Issuer) CreateShare(ctx context.Context, noteID, ownerID string, expiresInDays *int) (*models.NoteShare, error) {
	expiresAt, err := i.expiry(expiresInDays)
	if err != nil {
		return nil, err
	}
	note, err := i.note(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note["deleted_at"] != nil {
		return nil, &common.ValidationError{Field: "note", Reason: "a faded note cannot be shared"}
	}
	if err := i.Revoke(ctx, noteID); err != nil {
		return nil, err
	}

	token, err := i.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}
	row := remote.Row{
		"id":          i.newID(),
		"note_id":     noteID,
		"user_id":     ownerID,
		"share_token": token,
		"expires_at":  remote.FormatTimePtr(expiresAt),
		"created_at":  remote.FormatTime(i.now()),
	}
	rows, err := i.store.Insert(ctx, remote.TableShares, []remote.Row{row}, i.newID())
	if err != nil {
		return nil, fmt.Errorf("insert share: %w", err)
	}
	if len(rows) == 1 {
		row = rows[0]
	}
	return models.ShareFromRow(row)
}

func (i *Issuer) note(ctx context.Context, noteID string) (remote.Row, error) {
	rows, err := i.store.Select(ctx, remote.TableNotes, remote.Filter{remote.Eq("id", noteID)}, nil)
	if err != nil {
		return nil, fmt.Errorf("select note: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.ErrorNotFound
	}
	return rows[0], nil
}

func (i *Issuer) shareRows(ctx context.Context, column, value string) ([]remote.Row, error) {
	rows, err := i.store.Select(ctx, remote.TableShares, remote.Filter{remote.Eq(column, value)},
		[]remote.Order{{Column: "created_at", Desc: true}})
	if err != nil {
		return nil, fmt.Errorf("select shares: %w", err)
	}
	return rows, nil
}

// GetShare returns the share of noteID, or common.ErrorNotFound.
func (i *Issuer) GetShare(ctx context.Context, noteID string) (*models.NoteShare, error) {
	rows, err := i.shareRows(ctx, "note_id", noteID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.ErrorNotFound
	}
	return models.ShareFromRow(rows[0])
}

// UpdateExpiration moves the expiry of noteID's share; nil means never.
func (i *Issuer) UpdateExpiration(ctx context.Context, noteID string, expiresInDays *int) (*models.NoteShare, error) {
	expiresAt, err := i.expiry(expiresInDays)
	if err != nil {
		return nil, err
	}
	current, err := i.GetShare(ctx, noteID)
	if err != nil {
		return nil, err
	}
	row, err := i.store.Update(ctx, remote.TableShares, current.ID,
		remote.Row{"expires_at": remote.FormatTimePtr(expiresAt)}, i.newID())
	if err != nil {
		return nil, fmt.Errorf("update share: %w", err)
	}
	return models.ShareFromRow(row)
}

// Revoke removes every share of noteID. Revoking an unshared note is not
// an error.
func (i *Issuer) Revoke(ctx context.Context, noteID string) error {
	rows, err := i.shareRows(ctx, "note_id", noteID)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := i.store.Delete(ctx, remote.TableShares, r.ID(), i.newID()); err != nil {
			return fmt.Errorf("delete share %s: %w", r.ID(), err)
		}
	}
	return nil
}

func validToken(token string) bool {
	if len(token) != 2*TokenBytes {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// ResolveShare returns the public columns of the note behind token. A
// token that is unknown or expired, or whose note is gone or faded, yields
// common.ErrShareUnavailable and nothing else. Other errors are transport
// failures.
func (i *Issuer) ResolveShare(ctx context.Context, token string) (remote.Row, error) {
	if !validToken(token) {
		return nil, common.ErrShareUnavailable
	}
	rows, err := i.shareRows(ctx, "share_token", token)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.ErrShareUnavailable
	}
	share, err := models.ShareFromRow(rows[0])
	if err != nil {
		i.log.Warn(ctx, "malformed share row", "error", err)
		return nil, common.ErrShareUnavailable
	}
	if share.Expired(i.now()) {
		if err := i.store.Delete(ctx, remote.TableShares, share.ID, i.newID()); err != nil {
			i.log.Warn(ctx, "failed to retire expired share", "error", err)
		}
		return nil, common.ErrShareUnavailable
	}

	note, err := i.note(ctx, share.NoteID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrShareUnavailable
	}
	if err != nil {
		return nil, err
	}
	if note["deleted_at"] != nil {
		return nil, common.ErrShareUnavailable
	}

	out := make(remote.Row, len(publicColumns))
	for _, c := range publicColumns {
		if note.Has(c) {
			out[c] = note[c]
		}
	}
	return out, nil
}
