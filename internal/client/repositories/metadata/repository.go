// Package metadata keeps small key/value facts about the local store, such as
// when maintenance last ran.
package metadata

import (
	"context"
	"time"
)

const (
	KeyLastRetentionSweep = "last_retention_sweep"
	KeyLastDrain          = "last_drain"
)

type Repository interface {
	// Get returns (nil, nil) for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
