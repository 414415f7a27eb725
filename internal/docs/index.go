package docs

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Chunk is one indexed slice of a document's extracted text.
type Chunk struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;index:idx_doc_chunk_user_ref,priority:1"`
	Ref       string    `gorm:"type:varchar(64);not null;index:idx_doc_chunk_user_ref,priority:2"`
	Seq       int       `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (Chunk) TableName() string { return "doc_chunks" }

// LexicalIndex ranks chunks by term overlap with the query. It stands in
// for an embedding index behind the same interface; swapping in a vector
// backend is a drop-in change for callers.
type LexicalIndex struct {
	db *gorm.DB
}

func NewLexicalIndex(db *gorm.DB) *LexicalIndex {
	return &LexicalIndex{db: db}
}

func (x *LexicalIndex) Upsert(ctx context.Context, userID uint64, ref string, chunks []string) error {
	tx := x.db.WithContext(ctx)
	if err := tx.Where("user_id = ? AND ref = ?", userID, ref).Delete(&Chunk{}).Error; err != nil {
		return err
	}
	for i, content := range chunks {
		if strings.TrimSpace(content) == "" {
			continue
		}
		row := Chunk{UserID: userID, Ref: ref, Seq: i, Content: content}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (x *LexicalIndex) Query(ctx context.Context, userID uint64, text string, k int) ([]string, error) {
	terms := tokenize(text)
	if len(terms) == 0 {
		return nil, nil
	}

	var rows []Chunk
	if err := x.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}

	type scored struct {
		chunk Chunk
		score int
	}
	var hits []scored
	for _, row := range rows {
		s := overlap(terms, tokenize(row.Content))
		if s > 0 {
			hits = append(hits, scored{chunk: row, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if k <= 0 {
		k = 5
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.chunk.Content)
	}
	return out, nil
}

func (x *LexicalIndex) Delete(ctx context.Context, userID uint64, ref string) error {
	return x.db.WithContext(ctx).
		Where("user_id = ? AND ref = ?", userID, ref).
		Delete(&Chunk{}).Error
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?()[]{}\"'")
		if len(f) >= 3 {
			out[f] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}
