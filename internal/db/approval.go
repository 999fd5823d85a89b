package db

import (
	"time"

	"gorm.io/gorm"
)

// Approval request statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
	ApprovalExpired  = "expired"
)

// ApprovalRequest records one human-in-the-loop review round for an article.
// A partial unique index on (article_id) where status='pending' guarantees at
// most one pending request per article even under concurrent inserts; see
// Init.
type ApprovalRequest struct {
	gorm.Model
	ArticleID   uint   `gorm:"index;not null"`
	RequestedBy string `gorm:"size:128;not null"`
	RequestedAt time.Time
	EditorNotes string `gorm:"type:text"`
	Status      string `gorm:"size:32;index;default:'pending'"`
	ReviewedBy  string `gorm:"size:128"`
	ReviewedAt  *time.Time
	ReviewNotes string `gorm:"type:text"`
	ExpiresAt   time.Time
}

// TableName 指定自定义表名。
func (ApprovalRequest) TableName() string {
	return "approval_requests"
}
