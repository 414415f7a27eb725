package docs

import (
	"context"
	"io"
)

// Extractor turns uploaded file bytes into plain text. Unsupported or
// corrupt input is reported as an error.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mime string) (string, error)
}

// SimilarityIndex is the vector-search collaborator.
type SimilarityIndex interface {
	Upsert(ctx context.Context, userID uint64, ref string, chunks []string) error
	Query(ctx context.Context, userID uint64, text string, k int) ([]string, error)
	Delete(ctx context.Context, userID uint64, ref string) error
}

// ObjectStore holds the raw uploaded bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}
