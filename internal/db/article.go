package db

import (
	"time"

	"gorm.io/gorm"
)

// Article statuses. Transitions between them are owned exclusively by
// service.LifecycleService; nothing else writes the Status column.
const (
	StatusDraft           = "draft"
	StatusEditor          = "editor"
	StatusPendingApproval = "pending_approval"
	StatusPublished       = "published"
)

// Article is the editorial row. The body text is never embedded here; it
// lives in ArticleBody and is addressed by article id.
type Article struct {
	gorm.Model
	Topic       string `gorm:"size:64;index;not null"`
	Headline    string `gorm:"size:512"`
	Author      string `gorm:"size:128"`
	Editor      string `gorm:"size:128"`
	Status      string `gorm:"size:32;index;default:'draft'"`
	Active      bool   `gorm:"default:true"`
	Version     int    `gorm:"default:1"`
	PublishedAt *time.Time
}

// ArticleBody stores the markdown source for one article.
type ArticleBody struct {
	gorm.Model
	ArticleID uint   `gorm:"uniqueIndex;not null"`
	Markdown  string `gorm:"type:text"`
}

// TableName 指定自定义表名。
func (ArticleBody) TableName() string {
	return "article_bodies"
}
