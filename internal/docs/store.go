package docs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store persists document rows and keeps the object store and similarity
// index in step with them. Documents have a lifecycle independent from
// the resume.
type Store struct {
	db      *gorm.DB
	objects ObjectStore
	index   SimilarityIndex
}

func NewStore(db *gorm.DB, objects ObjectStore, index SimilarityIndex) *Store {
	return &Store{db: db, objects: objects, index: index}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx, objects: s.objects, index: s.index}
}

// Save stores the uploaded bytes, the extracted text row and the index
// chunks for one document.
func (s *Store) Save(ctx context.Context, userID uint64, fileName, mime string, data []byte, text string) (*Document, error) {
	key := fmt.Sprintf("u%d/%s", userID, uuid.NewString())
	if s.objects != nil {
		if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
			return nil, fmt.Errorf("store object: %w", err)
		}
	}

	doc := Document{
		UserID:        userID,
		FileName:      fileName,
		MimeType:      mime,
		SizeBytes:     int64(len(data)),
		ObjectKey:     key,
		ExtractedText: text,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if s.index != nil && text != "" {
		ref := fmt.Sprintf("doc-%d", doc.ID)
		if err := s.index.Upsert(ctx, userID, ref, chunkText(text, 800)); err != nil {
			return nil, fmt.Errorf("index document: %w", err)
		}
		doc.IndexRef = ref
		if err := s.db.WithContext(ctx).Model(&doc).Update("index_ref", ref).Error; err != nil {
			return nil, fmt.Errorf("save index ref: %w", err)
		}
	}
	return &doc, nil
}

func (s *Store) ListByUser(ctx context.Context, userID uint64) ([]Document, error) {
	var out []Document
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) GetByID(ctx context.Context, userID, id uint64) (*Document, error) {
	var doc Document
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes the row, its stored object and its index entry.
func (s *Store) Delete(ctx context.Context, userID, id uint64) error {
	doc, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&Document{}, doc.ID).Error; err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if s.objects != nil && doc.ObjectKey != "" {
		if err := s.objects.Remove(ctx, doc.ObjectKey); err != nil {
			return err
		}
	}
	if s.index != nil && doc.IndexRef != "" {
		if err := s.index.Delete(ctx, userID, doc.IndexRef); err != nil {
			return err
		}
	}
	return nil
}

// QuerySimilar runs a similarity search over the user's indexed text.
func (s *Store) QuerySimilar(ctx context.Context, userID uint64, text string, k int) ([]string, error) {
	if s.index == nil {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}
	return s.index.Query(ctx, userID, text, k)
}

func chunkText(text string, size int) []string {
	if size <= 0 {
		size = 800
	}
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}
