package db

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ApprovalRepo is the gorm implementation of service.ApprovalRepository.
type ApprovalRepo struct {
	db *gorm.DB
}

// NewApprovalRepo creates an ApprovalRepo instance.
func NewApprovalRepo(gdb *gorm.DB) *ApprovalRepo {
	return &ApprovalRepo{db: gdb}
}

// Create inserts a request. When the row is pending and another pending row
// already exists for the article, the partial unique index rejects the
// insert and gorm reports ErrDuplicatedKey. That is the uniqueness
// guarantee; there is no check-then-insert window.
func (r *ApprovalRepo) Create(ctx context.Context, req *ApprovalRequest) error {
	return Executor(ctx, r.db).Create(req).Error
}

// Get fetches a request by id.
func (r *ApprovalRepo) Get(ctx context.Context, id uint) (*ApprovalRequest, error) {
	var req ApprovalRequest
	if err := Executor(ctx, r.db).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetPending returns the pending request for an article, if any.
func (r *ApprovalRepo) GetPending(ctx context.Context, articleID uint) (*ApprovalRequest, error) {
	var req ApprovalRequest
	if err := Executor(ctx, r.db).
		Where("article_id = ? AND status = ?", articleID, ApprovalPending).
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Update saves the full request row.
func (r *ApprovalRepo) Update(ctx context.Context, req *ApprovalRequest) error {
	return Executor(ctx, r.db).Save(req).Error
}

// ListPending returns pending requests, oldest first, optionally filtered by
// the owning article's topic.
func (r *ApprovalRepo) ListPending(ctx context.Context, topic string) ([]ApprovalRequest, error) {
	query := Executor(ctx, r.db).Model(&ApprovalRequest{}).
		Where("approval_requests.status = ?", ApprovalPending)
	if topic != "" {
		query = query.
			Joins("JOIN articles ON articles.id = approval_requests.article_id").
			Where("articles.topic = ?", topic)
	}

	var reqs []ApprovalRequest
	if err := query.Order("approval_requests.requested_at asc, approval_requests.id asc").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListPendingExpiredBefore returns pending requests whose deadline passed
// before cutoff. Used by the expiry sweep.
func (r *ApprovalRepo) ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]ApprovalRequest, error) {
	var reqs []ApprovalRequest
	if err := Executor(ctx, r.db).
		Where("status = ? AND expires_at < ?", ApprovalPending, cutoff).
		Order("expires_at asc").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// DeleteByArticle removes every request row for an article irreversibly.
func (r *ApprovalRepo) DeleteByArticle(ctx context.Context, articleID uint) error {
	return Executor(ctx, r.db).Unscoped().
		Where("article_id = ?", articleID).
		Delete(&ApprovalRequest{}).Error
}
