package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/models"
)

// ErrStorage marks persistence failures. Callers surface it as a generic
// failure and log the wrapped detail.
var ErrStorage = errors.New("resume storage failure")

// Store is the single read-modify-write gate for the resume document.
// Every tool that edits the resume goes through it; nothing else writes
// the resumes table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetOrCreate returns the user's resume, creating a default one seeded
// from the identity row if absent. Stored legacy shapes are normalized
// and the normalization persisted before the row is returned. A lost
// create race falls back to the winning row.
func (s *Store) GetOrCreate(ctx context.Context, user *models.User) (*Resume, *Document, error) {
	var row Resume
	err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&row).Error
	switch {
	case err == nil:
		return s.normalizeRow(ctx, &row)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.createDefault(ctx, user)
	default:
		return nil, nil, fmt.Errorf("%w: lookup: %v", ErrStorage, err)
	}
}

func (s *Store) normalizeRow(ctx context.Context, row *Resume) (*Resume, *Document, error) {
	var doc Document
	if err := json.Unmarshal(row.Content, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: decode document: %v", ErrStorage, err)
	}
	doc.Normalize()

	canonical, err := json.Marshal(&doc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode document: %v", ErrStorage, err)
	}
	if !json.Valid(row.Content) || string(canonical) != string(row.Content) {
		row.Content = canonical
		if err := s.db.WithContext(ctx).Model(row).Update("content", row.Content).Error; err != nil {
			return nil, nil, fmt.Errorf("%w: persist normalization: %v", ErrStorage, err)
		}
	}
	return row, &doc, nil
}

func (s *Store) createDefault(ctx context.Context, user *models.User) (*Resume, *Document, error) {
	doc := Document{
		PersonalInfo: PersonalInfo{
			Name:     user.Name,
			Email:    user.Email,
			Linkedin: user.LinkedinURL,
		},
	}
	content, err := json.Marshal(&doc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode default document: %v", ErrStorage, err)
	}

	row := Resume{UserID: user.ID, Content: content}
	err = s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return &row, &doc, nil
	}

	// Two first-time accesses may both decide to create; the unique index
	// rejects the loser, which then reads the winner's row.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing Resume
		if ferr := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&existing).Error; ferr == nil {
			return s.normalizeRow(ctx, &existing)
		}
	}
	return nil, nil, fmt.Errorf("%w: create: %v", ErrStorage, err)
}

// Save rewrites the entire document for the given row. Callers hold the
// session mutation lock; Save never merges.
func (s *Store) Save(ctx context.Context, row *Resume, doc *Document) error {
	doc.Normalize()
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", ErrStorage, err)
	}
	row.Content = content
	if err := s.db.WithContext(ctx).Model(row).Update("content", row.Content).Error; err != nil {
		return fmt.Errorf("%w: save: %v", ErrStorage, err)
	}
	return nil
}

// WithTx returns a store bound to the given transaction handle.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}
