// Package storetest opens in-memory local stores for tests.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/anbuneel/zenote-sub001/internal/client/localstore"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated in-memory store of userID, private to tb.
func Open(tb testing.TB, userID string) *localstore.Store {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name()) + "_" + userID
	s, err := localstore.OpenDSN(context.Background(), "file:"+name+"?mode=memory&cache=shared", userID, logging.Nop())
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = s.Close() })
	return s
}
