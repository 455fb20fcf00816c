package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/client/client"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var created = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func sampleNote() models.Note {
	n := models.Note{
		ID:        "n1",
		Title:     "Café Notes: Q3 plan!",
		Content:   "line one\nline two",
		Pinned:    true,
		CreatedAt: created,
		Tags:      []models.Tag{{Name: "work"}, {Name: "ideas"}},
	}
	n.LocalUpdatedAt = created.Add(time.Hour)
	return n
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Café Notes: Q3 plan!": "cafe-notes-q3-plan",
		"   ":                  "untitled",
		"":                     "untitled",
		"日本語":                  "untitled",
		"a  --  b":             "a-b",
		"Ünïcödé":              "unicode",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), in)
	}

	long := Slug(strings.Repeat("word ", 30))
	assert.LessOrEqual(t, len(long), maxSlugLen)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "cafe-notes-q3-plan-n1.md", FileName(sampleNote()))
}

func TestDocument(t *testing.T) {
	doc, err := Document(sampleNote())
	require.NoError(t, err)

	parts := strings.SplitN(string(doc), "---\n", 3)
	require.Len(t, parts, 3)
	assert.Empty(t, parts[0])
	assert.Equal(t, "\nline one\nline two\n", parts[2])

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))
	assert.Equal(t, frontMatter{
		ID:        "n1",
		Title:     "Café Notes: Q3 plan!",
		Tags:      []string{"work", "ideas"},
		Pinned:    true,
		CreatedAt: "2026-05-01T09:30:00Z",
		UpdatedAt: "2026-05-01T10:30:00Z",
	}, fm)
}

func TestArchive(t *testing.T) {
	other := models.Note{ID: "n2", Title: "", Content: "x\n", CreatedAt: created}
	data, err := Archive([]models.Note{sampleNote(), other}, created)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "cafe-notes-q3-plan-n1.md", zr.File[0].Name)
	assert.Equal(t, "untitled-n2.md", zr.File[1].Name)

	f, err := zr.File[1].Open()
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(body), "\n\nx\n"))
}

func TestArchive_Empty(t *testing.T) {
	data, err := Archive(nil, created)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

type staticNotes struct {
	notes []models.Note
	err   error
}

func (s staticNotes) ListActive(context.Context) ([]models.Note, error) { return s.notes, s.err }

type fakePresigner struct {
	url   string
	calls int
	err   error
}

func (f *fakePresigner) PresignExport(context.Context) (*client.PresignedExport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &client.PresignedExport{Key: "exports/u1/a.zip", UploadURL: f.url + "/put", DownloadURL: f.url + "/get"}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestExporter_UploadsArchive(t *testing.T) {
	var attempts atomic.Int32
	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := &fakePresigner{url: srv.URL}
	e := New(staticNotes{notes: []models.Note{sampleNote()}}, p, retry.Options{Sleep: noSleep}, logging.Nop())
	e.now = func() time.Time { return created }

	res, err := e.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "exports/u1/a.zip", res.Key)
	assert.Equal(t, srv.URL+"/get", res.DownloadURL)
	assert.Equal(t, 1, res.Notes)
	assert.Equal(t, len(uploaded), res.Bytes)
	assert.Equal(t, int32(2), attempts.Load())

	_, err = zip.NewReader(bytes.NewReader(uploaded), int64(len(uploaded)))
	require.NoError(t, err)
}

func TestExporter_PresignFailure(t *testing.T) {
	p := &fakePresigner{err: &common.ClientError{StatusCode: 401, Message: "expired", Err: common.ErrTokenExpired}}
	e := New(staticNotes{}, p, retry.Options{Sleep: noSleep}, logging.Nop())

	_, err := e.Export(context.Background())
	require.ErrorIs(t, err, common.ErrTokenExpired)
	assert.Equal(t, 1, p.calls)
}

func TestExporter_ListFailure(t *testing.T) {
	boom := errors.New("disk")
	p := &fakePresigner{}
	e := New(staticNotes{err: boom}, p, retry.Options{Sleep: noSleep}, logging.Nop())

	_, err := e.Export(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, p.calls)
}
