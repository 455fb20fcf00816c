package export

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/client"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/netx"
	"github.com/anbuneel/zenote-sub001/internal/retry"
)

type NoteLister interface {
	ListActive(ctx context.Context) ([]models.Note, error)
}

type Presigner interface {
	PresignExport(ctx context.Context) (*client.PresignedExport, error)
}

// Result describes a finished export.
type Result struct {
	Key         string
	DownloadURL string
	Notes       int
	Bytes       int
}

type Exporter struct {
	notes      NoteLister
	presigner  Presigner
	httpClient *http.Client
	retry      retry.Options
	log        logging.Logger
	now        func() time.Time
}

func New(notes NoteLister, presigner Presigner, opts retry.Options, log logging.Logger) *Exporter {
	if log == nil {
		log = logging.Nop()
	}
	return &Exporter{
		notes:      notes,
		presigner:  presigner,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		retry:      opts,
		log:        log.With("module", "export"),
		now:        time.Now,
	}
}

// Export archives the active notes and uploads them. It needs the server;
// presign and upload failures are retried with the shared policy.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	notes, err := e.notes.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	data, err := Archive(notes, e.now())
	if err != nil {
		return nil, err
	}

	target, err := retry.Do(ctx, e.presigner.PresignExport, e.retry)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}

	err = retry.DoErr(ctx, func(ctx context.Context) error {
		return netx.UploadToPresignedURL(ctx, e.httpClient, target.UploadURL, data)
	}, e.retry)
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	e.log.Info(ctx, "notes exported", "key", target.Key, "notes", len(notes), "bytes", len(data))
	return &Result{Key: target.Key, DownloadURL: target.DownloadURL, Notes: len(notes), Bytes: len(data)}, nil
}
