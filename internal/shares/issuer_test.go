package shares

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/remote"
	"github.com/anbuneel/zenote-sub001/internal/remote/remotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	remote *remotetest.Memory
	issuer *Issuer
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{remote: remotetest.NewMemory("owner"), clock: t0}
	f.issuer = NewIssuer(f.remote, "https://zenote.app/", logging.Nop())
	f.issuer.now = func() time.Time { return f.clock }
	f.remote.Seed(remote.TableNotes,
		remote.Row{"id": "n1", "user_id": "owner", "title": "shared", "content": "body", "deleted_at": nil},
		remote.Row{"id": "faded", "user_id": "owner", "title": "gone", "deleted_at": remote.FormatTime(t0)},
	)
	return f
}

func days(n int) *int { return &n }

func TestCreateShare(t *testing.T) {
	f := newFixture(t)

	s, err := f.issuer.CreateShare(context.Background(), "n1", "owner", days(7))
	require.NoError(t, err)

	assert.Len(t, s.ShareToken, 2*TokenBytes)
	assert.True(t, validToken(s.ShareToken))
	assert.Equal(t, "n1", s.NoteID)
	assert.Equal(t, "owner", s.OwnerUserID)
	require.NotNil(t, s.ExpiresAt)
	assert.True(t, t0.AddDate(0, 0, 7).Equal(*s.ExpiresAt))
	assert.Equal(t, "https://zenote.app/?s="+s.ShareToken, f.issuer.URL(s.ShareToken))
	assert.Equal(t, 1, f.remote.Len(remote.TableShares))
}

func TestCreateShare_NeverExpires(t *testing.T) {
	f := newFixture(t)
	s, err := f.issuer.CreateShare(context.Background(), "n1", "owner", nil)
	require.NoError(t, err)
	assert.Nil(t, s.ExpiresAt)
}

func TestCreateShare_TokensAreNotRepeated(t *testing.T) {
	f := newFixture(t)
	seen := map[string]bool{}
	for range 20 {
		s, err := f.issuer.CreateShare(context.Background(), "n1", "owner", nil)
		require.NoError(t, err)
		assert.False(t, seen[s.ShareToken])
		seen[s.ShareToken] = true
	}
}

func TestCreateShare_ReplacesExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.issuer.CreateShare(ctx, "n1", "owner", nil)
	require.NoError(t, err)
	second, err := f.issuer.CreateShare(ctx, "n1", "owner", days(1))
	require.NoError(t, err)

	assert.NotEqual(t, first.ShareToken, second.ShareToken)
	assert.Equal(t, 1, f.remote.Len(remote.TableShares))
	_, err = f.issuer.ResolveShare(ctx, first.ShareToken)
	assert.ErrorIs(t, err, common.ErrShareUnavailable)
}

func TestCreateShare_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.issuer.CreateShare(ctx, "missing", "owner", nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	var ve *common.ValidationError
	_, err = f.issuer.CreateShare(ctx, "faded", "owner", nil)
	assert.ErrorAs(t, err, &ve)

	_, err = f.issuer.CreateShare(ctx, "n1", "owner", days(0))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "expiration", ve.Field)
	assert.Zero(t, f.remote.Len(remote.TableShares))
}

func TestResolveShare_ReturnsPublicColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.issuer.CreateShare(ctx, "n1", "owner", days(3))
	require.NoError(t, err)

	row, err := f.issuer.ResolveShare(ctx, s.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, "shared", row.String("title"))
	assert.Equal(t, "body", row.String("content"))
	assert.False(t, row.Has("user_id"))
	assert.False(t, row.Has("deleted_at"))
}

func TestResolveShare_UniformlyUnavailable(t *testing.T) {
	ctx := context.Background()

	cases := map[string]func(t *testing.T, f *fixture) string{
		"unknown token": func(t *testing.T, f *fixture) string {
			return strings.Repeat("ab", TokenBytes)
		},
		"malformed token": func(t *testing.T, f *fixture) string {
			return "../../etc/passwd"
		},
		"expired": func(t *testing.T, f *fixture) string {
			s, err := f.issuer.CreateShare(ctx, "n1", "owner", days(1))
			require.NoError(t, err)
			f.clock = f.clock.AddDate(0, 0, 2)
			return s.ShareToken
		},
		"note soft-deleted": func(t *testing.T, f *fixture) string {
			s, err := f.issuer.CreateShare(ctx, "n1", "owner", nil)
			require.NoError(t, err)
			_, err = f.remote.Update(ctx, remote.TableNotes, "n1", remote.Row{"deleted_at": remote.FormatTime(t0)}, "m-del")
			require.NoError(t, err)
			return s.ShareToken
		},
		"note purged": func(t *testing.T, f *fixture) string {
			s, err := f.issuer.CreateShare(ctx, "n1", "owner", nil)
			require.NoError(t, err)
			require.NoError(t, f.remote.Delete(ctx, remote.TableNotes, "n1", "m-purge"))
			return s.ShareToken
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			token := setup(t, f)

			row, err := f.issuer.ResolveShare(ctx, token)
			assert.Nil(t, row)
			assert.Equal(t, common.ErrShareUnavailable, err)
		})
	}
}

func TestResolveShare_RetiresExpiredRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.issuer.CreateShare(ctx, "n1", "owner", days(1))
	require.NoError(t, err)

	f.clock = f.clock.AddDate(0, 0, 1)
	_, err = f.issuer.ResolveShare(ctx, s.ShareToken)
	assert.ErrorIs(t, err, common.ErrShareUnavailable)
	assert.Zero(t, f.remote.Len(remote.TableShares))
}

func TestResolveShare_TransportErrorsPassThrough(t *testing.T) {
	f := newFixture(t)
	f.remote.Fail = func(string, string) error { return &common.NetworkError{Op: "select", Err: context.DeadlineExceeded} }

	_, err := f.issuer.ResolveShare(context.Background(), strings.Repeat("0", 2*TokenBytes))
	var ne *common.NetworkError
	assert.ErrorAs(t, err, &ne)
}

func TestUpdateExpiration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.issuer.CreateShare(ctx, "n1", "owner", days(1))
	require.NoError(t, err)

	f.clock = f.clock.Add(12 * time.Hour)
	updated, err := f.issuer.UpdateExpiration(ctx, "n1", days(30))
	require.NoError(t, err)
	assert.Equal(t, s.ShareToken, updated.ShareToken)
	require.NotNil(t, updated.ExpiresAt)
	assert.True(t, f.clock.AddDate(0, 0, 30).Equal(*updated.ExpiresAt))

	f.clock = f.clock.AddDate(0, 0, 5)
	_, err = f.issuer.ResolveShare(ctx, s.ShareToken)
	assert.NoError(t, err)

	updated, err = f.issuer.UpdateExpiration(ctx, "n1", nil)
	require.NoError(t, err)
	assert.Nil(t, updated.ExpiresAt)

	_, err = f.issuer.UpdateExpiration(ctx, "missing", nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.issuer.CreateShare(ctx, "n1", "owner", nil)
	require.NoError(t, err)

	require.NoError(t, f.issuer.Revoke(ctx, "n1"))
	_, err = f.issuer.ResolveShare(ctx, s.ShareToken)
	assert.ErrorIs(t, err, common.ErrShareUnavailable)
	_, err = f.issuer.GetShare(ctx, "n1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.NoError(t, f.issuer.Revoke(ctx, "n1"))
}
