package services

import (
	"strings"
	"unicode/utf8"

	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/common"
)

const (
	MaxTitleRunes   = 200
	MaxContentBytes = 1 << 20
	MaxTagNameRunes = 20
)

func invalid(field, reason string) error {
	return &common.ValidationError{Field: field, Reason: reason}
}

func validateNote(title, content string) error {
	if !utf8.ValidString(title) {
		return invalid("title", "not valid UTF-8")
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleRunes {
		return invalid("title", "longer than 200 characters")
	}
	if len(content) > MaxContentBytes {
		return invalid("content", "larger than 1 MiB")
	}
	return nil
}

// normalizeTagName trims name and checks its length.
func normalizeTagName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !utf8.ValidString(name) {
		return "", invalid("tag name", "not valid UTF-8")
	}
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "", invalid("tag name", "empty")
	case n > MaxTagNameRunes:
		return "", invalid("tag name", "longer than 20 characters")
	}
	return name, nil
}

func validateColor(c models.TagColor) (models.TagColor, error) {
	color, ok := models.ParseTagColor(string(c))
	if !ok {
		return "", invalid("tag color", "not in the palette")
	}
	return color, nil
}
