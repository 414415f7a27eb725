package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreatePage(ctx context.Context, p *Page) error {
	if p.LastOpenedAt.IsZero() {
		p.LastOpenedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repo) GetPage(ctx context.Context, userID uint64, pageID string) (*Page, error) {
	var p Page
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND page_id = ?", userID, pageID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) TouchPage(ctx context.Context, userID uint64, pageID string) error {
	return r.db.WithContext(ctx).Model(&Page{}).
		Where("user_id = ? AND page_id = ?", userID, pageID).
		Update("last_opened_at", time.Now()).Error
}

func (r *Repo) ListPages(ctx context.Context, userID uint64, limit int) ([]Page, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var pages []Page
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_opened_at DESC").
		Limit(limit).
		Find(&pages).Error
	return pages, err
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessagesAsc returns the page's messages in creation order, which
// is exactly the conversation the model should see. A nil pageID selects
// the legacy un-threaded messages.
func (r *Repo) ListMessagesAsc(ctx context.Context, userID uint64, pageID *string) ([]Message, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if pageID == nil {
		q = q.Where("page_id IS NULL")
	} else {
		q = q.Where("page_id = ?", *pageID)
	}
	var msgs []Message
	err := q.Order("id ASC").Find(&msgs).Error
	return msgs, err
}

// DeleteLatestAssistant removes the newest non-user message on a page,
// matched by recency rather than a client-supplied id. It returns the
// deleted row, or gorm.ErrRecordNotFound when the page has no assistant
// turn.
func (r *Repo) DeleteLatestAssistant(ctx context.Context, userID uint64, pageID *string) (*Message, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND role <> ?", userID, RoleUser)
	if pageID == nil {
		q = q.Where("page_id IS NULL")
	} else {
		q = q.Where("page_id = ?", *pageID)
	}
	var m Message
	if err := q.Order("id DESC").First(&m).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&Message{}, m.ID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
