package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/permission"
)

// ApprovalService coordinates the human-in-the-loop review rounds. Status
// writes stay with LifecycleService; this layer owns request addressing,
// expiry and the cancel/decide guards.
type ApprovalService struct {
	approvals ApprovalRepository
	articles  ArticleRepository
	lifecycle *LifecycleService
	perms     *permission.Engine
	settings  WorkflowSettings
	tx        TransactionManager
	logger    *slog.Logger
	now       func() time.Time
}

// NewApprovalService creates an ApprovalService instance.
func NewApprovalService(
	approvals ApprovalRepository,
	articles ArticleRepository,
	lifecycle *LifecycleService,
	perms *permission.Engine,
	settings WorkflowSettings,
	tx TransactionManager,
	logger *slog.Logger,
) *ApprovalService {
	return &ApprovalService{
		approvals: approvals,
		articles:  articles,
		lifecycle: lifecycle,
		perms:     perms,
		settings:  settings,
		tx:        tx,
		logger:    logger.With("component", "approval"),
		now:       time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *ApprovalService) WithClock(now func() time.Time) *ApprovalService {
	s.now = now
	return s
}

// Request opens an approval round for the article. Conflict when one is
// already pending.
func (s *ApprovalService) Request(ctx context.Context, articleID uint, actor permission.Principal, notes string) (*db.ApprovalRequest, error) {
	return s.lifecycle.SubmitForApproval(ctx, articleID, actor, notes)
}

// Decide approves or rejects the article's pending request. A request past
// its deadline is no longer actionable and reads as Expired; the article
// stays in pending_approval for the sweeper.
func (s *ApprovalService) Decide(ctx context.Context, articleID uint, approved bool, actor permission.Principal, notes string) (*db.Article, error) {
	pending, err := s.approvals.GetPending(ctx, articleID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if s.now().After(pending.ExpiresAt) {
		return nil, ErrExpired
	}

	if approved {
		if pending.RequestedBy == actor.Name && !s.settings.AllowSelfApproval() {
			return nil, newValidationError("self-approval is disabled")
		}
		return s.lifecycle.Approve(ctx, articleID, actor, notes)
	}
	return s.lifecycle.Reject(ctx, articleID, actor, notes)
}

// Cancel withdraws a pending request. Allowed for the original requester or
// an editor on the article's topic. The request is marked expired and the
// article routed back to the editor desk with no bundle side effect.
func (s *ApprovalService) Cancel(ctx context.Context, requestID uint, actor permission.Principal) error {
	req, err := s.approvals.Get(ctx, requestID)
	if err != nil {
		return mapStorageErr(err)
	}
	if req.Status != db.ApprovalPending {
		return newValidationError("approval request %d is not pending", requestID)
	}

	article, err := s.articles.Get(ctx, req.ArticleID)
	if err != nil {
		return mapStorageErr(err)
	}

	if actor.Name != req.RequestedBy && !s.perms.Check(actor.Grants, permission.RoleEditor, article.Topic) {
		return &PermissionError{Required: permission.RoleEditor, Topic: article.Topic}
	}

	if err := s.expire(ctx, req, article, actor.Name); err != nil {
		return err
	}

	s.logger.Info("approval cancelled", "request_id", requestID, "article_id", article.ID, "actor", actor.Name)
	return nil
}

// ListPending returns pending requests for surfacing or sweeping, optionally
// filtered by topic. With a topic the caller needs Editor on it; without,
// Editor on any topic (the coarse any-topic gate).
func (s *ApprovalService) ListPending(ctx context.Context, topic string, actor permission.Principal) ([]db.ApprovalRequest, error) {
	if topic != "" {
		if !s.perms.Check(actor.Grants, permission.RoleEditor, topic) {
			return nil, &PermissionError{Required: permission.RoleEditor, Topic: topic}
		}
	} else if !s.perms.CheckAny(actor.Grants, permission.RoleEditor) {
		return nil, &PermissionError{Required: permission.RoleEditor}
	}

	return s.approvals.ListPending(ctx, topic)
}

// ExpireOverdue is the entry point for the external sweeper: every pending
// request past its deadline is marked expired and its article returned to
// the editor desk. The core runs no timers of its own.
func (s *ApprovalService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.approvals.ListPendingExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		req := &overdue[i]
		article, err := s.articles.Get(ctx, req.ArticleID)
		if err != nil {
			s.logger.Warn("sweep: article lookup failed", "article_id", req.ArticleID, "error", err)
			continue
		}
		if err := s.expire(ctx, req, article, "sweeper"); err != nil {
			s.logger.Warn("sweep: expire failed", "request_id", req.ID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("expired overdue approval requests", "count", expired)
	}
	return expired, nil
}

// expire marks the request expired and routes the article out of
// pending_approval in one transaction.
func (s *ApprovalService) expire(ctx context.Context, req *db.ApprovalRequest, article *db.Article, by string) error {
	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		now := s.now()
		req.Status = db.ApprovalExpired
		req.ReviewedBy = by
		req.ReviewedAt = &now
		if err := s.approvals.Update(txCtx, req); err != nil {
			return err
		}

		if article.Status == db.StatusPendingApproval {
			article.Status = db.StatusEditor
			if err := mapStorageErr(s.articles.Save(txCtx, article, article.Version)); err != nil {
				return err
			}
		}
		return nil
	})
}
