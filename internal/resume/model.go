package resume

import (
	"time"

	"gorm.io/datatypes"
)

// Resume holds exactly one document per user, enforced by the unique
// index on user_id.
type Resume struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64         `gorm:"uniqueIndex;not null" json:"-"`
	Content   datatypes.JSON `gorm:"type:json;not null" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Resume) TableName() string { return "resumes" }
