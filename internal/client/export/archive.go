// Package export packs the active notes into a zip of Markdown files and
// uploads it to object storage through a presigned URL.
package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

const maxSlugLen = 40

// frontMatter is the YAML header of every exported note.
type frontMatter struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Tags      []string `yaml:"tags,omitempty"`
	Pinned    bool     `yaml:"pinned,omitempty"`
	CreatedAt string   `yaml:"created_at"`
	UpdatedAt string   `yaml:"updated_at"`
}

// Slug turns a title into a lowercase ASCII file name stem. Accents are
// dropped; other runs of non-alphanumerics become one dash.
func Slug(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}

	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// FileName is the archive entry name of n.
func FileName(n models.Note) string {
	return fmt.Sprintf("%s-%s.md", Slug(n.Title), n.ID)
}

// Document renders n as Markdown with a YAML front matter block.
func Document(n models.Note) ([]byte, error) {
	fm := frontMatter{
		ID:        n.ID,
		Title:     n.Title,
		Pinned:    n.Pinned,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: n.LocalUpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, t := range n.Tags {
		fm.Tags = append(fm.Tags, t.Name)
	}

	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("front matter of %s: %w", n.ID, err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n\n")
	buf.WriteString(n.Content)
	if !strings.HasSuffix(n.Content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Archive zips one document per note, stamped with now.
func Archive(notes []models.Note, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, n := range notes {
		doc, err := Document(n)
		if err != nil {
			return nil, err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     FileName(n),
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", n.ID, err)
		}
		if _, err := w.Write(doc); err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", n.ID, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
