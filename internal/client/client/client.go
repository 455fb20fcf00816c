package client

import (
	"context"

	"github.com/anbuneel/zenote-sub001/internal/remote"
)

// Client is the client's view of the remote store server.
type Client interface {
	remote.Store
	Ping(ctx context.Context) error
	ResolveShare(ctx context.Context, token string) (remote.Row, error)
	PresignExport(ctx context.Context) (*PresignedExport, error)
	SetAccessToken(token string)
	Close() error
}

// PresignedExport is where an export archive is uploaded and later read.
type PresignedExport struct {
	Key         string
	UploadURL   string
	DownloadURL string
}
