package docs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrUnsupportedType = errors.New("unsupported document type")

// TextExtractor handles the plain-text family of uploads. Binary formats
// are rejected with ErrUnsupportedType so the caller can surface a
// readable message instead of indexing garbage.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(ctx context.Context, data []byte, mime string) (string, error) {
	base := mime
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(strings.ToLower(base))

	switch base {
	case "text/plain", "text/markdown", "text/csv", "application/json", "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid utf-8", ErrUnsupportedType)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("document contains no text")
	}
	return text, nil
}
