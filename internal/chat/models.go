package chat

import "time"

// Page is a persisted conversation thread. It is created implicitly the
// first time a user sends a message without a page id.
type Page struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	PageID       string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"page_id"`
	UserID       uint64    `gorm:"index;not null" json:"-"`
	Title        string    `gorm:"type:varchar(128)" json:"title"`
	LastOpenedAt time.Time `json:"last_opened_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Page) TableName() string { return "pages" }

// Message is one conversation turn. A nil PageID denotes an un-threaded
// legacy conversation. Rows are never mutated; the regenerate flow
// deletes the newest assistant row and inserts a replacement.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_chat_msg_user_page,priority:1" json:"-"`
	PageID    *string   `gorm:"type:varchar(26);index:idx_chat_msg_user_page,priority:2" json:"page_id"`
	Role      string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
