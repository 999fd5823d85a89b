package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/permission"
	"gorm.io/gorm"
)

// Event names the lifecycle transitions. All transition legality lives in
// this package; HTTP handlers only supply the event and its inputs.
type Event string

const (
	EventSubmitForReview   Event = "submit_for_review"
	EventRequestChanges    Event = "request_changes"
	EventPublishDirect     Event = "publish_direct"
	EventSubmitForApproval Event = "submit_for_approval"
	EventApprove           Event = "approve"
	EventReject            Event = "reject"
	EventRecall            Event = "recall"
	EventDeactivate        Event = "deactivate"
	EventReactivate        Event = "reactivate"
	EventPurge             Event = "purge"
)

type transitionRule struct {
	from []string
	to   string
	role permission.RoleLevel
}

// The status transition table. deactivate/reactivate/purge are not listed:
// they are orthogonal to status and handled on their own paths.
var transitions = map[Event]transitionRule{
	EventSubmitForReview:   {from: []string{db.StatusDraft}, to: db.StatusEditor, role: permission.RoleAnalyst},
	EventRequestChanges:    {from: []string{db.StatusEditor, db.StatusPendingApproval}, to: db.StatusDraft, role: permission.RoleEditor},
	EventPublishDirect:     {from: []string{db.StatusEditor}, to: db.StatusPublished, role: permission.RoleEditor},
	EventSubmitForApproval: {from: []string{db.StatusEditor}, to: db.StatusPendingApproval, role: permission.RoleEditor},
	EventApprove:           {from: []string{db.StatusPendingApproval}, to: db.StatusPublished, role: permission.RoleEditor},
	EventReject:            {from: []string{db.StatusPendingApproval}, to: db.StatusEditor, role: permission.RoleEditor},
	EventRecall:            {from: []string{db.StatusPublished}, to: db.StatusDraft, role: permission.RoleAdmin},
}

// LifecycleService is the article state machine. Every transition is one
// atomic unit: guard evaluation, the version-conditional status write and
// all side-effect bookkeeping commit together or not at all.
type LifecycleService struct {
	articles  ArticleRepository
	approvals ApprovalRepository
	bodies    ContentBodyStore
	bundles   PublicationBuilder
	perms     *permission.Engine
	settings  WorkflowSettings
	tx        TransactionManager
	logger    *slog.Logger
	now       func() time.Time
}

// NewLifecycleService wires the state machine with its collaborators.
func NewLifecycleService(
	articles ArticleRepository,
	approvals ApprovalRepository,
	bodies ContentBodyStore,
	bundles PublicationBuilder,
	perms *permission.Engine,
	settings WorkflowSettings,
	tx TransactionManager,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		articles:  articles,
		approvals: approvals,
		bodies:    bodies,
		bundles:   bundles,
		perms:     perms,
		settings:  settings,
		tx:        tx,
		logger:    logger.With("component", "lifecycle"),
		now:       time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// begin runs the shared guard steps of a status transition: load, inactive
// check, permission check, from-status check.
func (s *LifecycleService) begin(ctx context.Context, id uint, event Event, actor permission.Principal) (*db.Article, error) {
	article, err := s.articles.Get(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	rule, ok := transitions[event]
	if !ok {
		return nil, newValidationError("unknown event %q", event)
	}

	if !s.perms.Check(actor.Grants, rule.role, article.Topic) {
		return nil, &PermissionError{Required: rule.role, Topic: article.Topic}
	}

	// active=false blocks every transition unconditionally; it is a
	// visibility flag, not a status.
	if !article.Active {
		return nil, newValidationError("article %d is deactivated", id)
	}

	for _, from := range rule.from {
		if article.Status == from {
			return article, nil
		}
	}
	return nil, &TransitionError{From: article.Status, Event: event}
}

// SubmitForReview moves a draft to the editor desk. Analyst@topic.
func (s *LifecycleService) SubmitForReview(ctx context.Context, id uint, actor permission.Principal) (*db.Article, error) {
	article, err := s.begin(ctx, id, EventSubmitForReview, actor)
	if err != nil {
		return nil, err
	}

	article.Status = db.StatusEditor
	if err := s.save(ctx, article); err != nil {
		return nil, err
	}

	s.logger.Info("article submitted for review", "article_id", id, "actor", actor.Name)
	return article, nil
}

// RequestChanges sends the article back to draft with mandatory notes.
// From pending_approval, the active request is rejected in the same unit.
func (s *LifecycleService) RequestChanges(ctx context.Context, id uint, actor permission.Principal, notes string) (*db.Article, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, newValidationError("change request notes must not be empty")
	}

	article, err := s.begin(ctx, id, EventRequestChanges, actor)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if article.Status == db.StatusPendingApproval {
			if err := s.closePending(txCtx, article.ID, db.ApprovalRejected, actor.Name, notes); err != nil {
				return err
			}
		}
		article.Status = db.StatusDraft
		return s.save(txCtx, article)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("changes requested", "article_id", id, "actor", actor.Name)
	return article, nil
}

// PublishDirect publishes from the editor desk without approval. Guarded
// against a pending approval request; builds the resource bundle in the
// same transaction as the status write.
func (s *LifecycleService) PublishDirect(ctx context.Context, id uint, actor permission.Principal) (*db.Article, error) {
	article, err := s.begin(ctx, id, EventPublishDirect, actor)
	if err != nil {
		return nil, err
	}

	if _, err := s.approvals.GetPending(ctx, article.ID); err == nil {
		return nil, newValidationError("an approval request is pending for article %d", id)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.publish(ctx, article, nil, actor, ""); err != nil {
		return nil, err
	}

	s.logger.Info("article published directly", "article_id", id, "actor", actor.Name)
	return article, nil
}

// SubmitForApproval opens a human-in-the-loop review round. The pending
// request row and the status write commit together; the partial unique
// index turns a concurrent double-submit into a Conflict.
func (s *LifecycleService) SubmitForApproval(ctx context.Context, id uint, actor permission.Principal, notes string) (*db.ApprovalRequest, error) {
	article, err := s.begin(ctx, id, EventSubmitForApproval, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req := &db.ApprovalRequest{
		ArticleID:   article.ID,
		RequestedBy: actor.Name,
		RequestedAt: now,
		EditorNotes: notes,
		Status:      db.ApprovalPending,
		ExpiresAt:   now.Add(s.settings.ApprovalTTL()),
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.approvals.Create(txCtx, req); err != nil {
			return mapStorageErr(err)
		}
		article.Status = db.StatusPendingApproval
		return s.save(txCtx, article)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("approval requested",
		"article_id", id, "request_id", req.ID, "actor", actor.Name, "expires_at", req.ExpiresAt)
	return req, nil
}

// Approve closes the pending request as approved and publishes, building
// the resource bundle in the same unit. The request must be unexpired.
func (s *LifecycleService) Approve(ctx context.Context, id uint, actor permission.Principal, notes string) (*db.Article, error) {
	article, err := s.begin(ctx, id, EventApprove, actor)
	if err != nil {
		return nil, err
	}

	pending, err := s.approvals.GetPending(ctx, article.ID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if s.now().After(pending.ExpiresAt) {
		return nil, ErrExpired
	}

	if err := s.publish(ctx, article, pending, actor, notes); err != nil {
		return nil, err
	}

	s.logger.Info("article approved and published",
		"article_id", id, "request_id", pending.ID, "actor", actor.Name)
	return article, nil
}

// Reject closes the pending request as rejected and returns the article to
// the editor desk. Notes are mandatory.
func (s *LifecycleService) Reject(ctx context.Context, id uint, actor permission.Principal, notes string) (*db.Article, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, newValidationError("rejection notes must not be empty")
	}

	article, err := s.begin(ctx, id, EventReject, actor)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.closePending(txCtx, article.ID, db.ApprovalRejected, actor.Name, notes); err != nil {
			return err
		}
		article.Status = db.StatusEditor
		return s.save(txCtx, article)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("approval rejected", "article_id", id, "actor", actor.Name)
	return article, nil
}

// Recall unpublishes. Admin@topic. The resource bundle is destroyed in the
// same transaction as the status write.
func (s *LifecycleService) Recall(ctx context.Context, id uint, actor permission.Principal) (*db.Article, error) {
	article, err := s.begin(ctx, id, EventRecall, actor)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.bundles.Destroy(txCtx, article.ID); err != nil {
			return err
		}
		article.Status = db.StatusDraft
		article.PublishedAt = nil
		return s.save(txCtx, article)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("article recalled", "article_id", id, "actor", actor.Name)
	return article, nil
}

// Deactivate soft-hides the article. Orthogonal to status: the status is
// kept, but every transition is blocked until reactivation. Admin@topic.
func (s *LifecycleService) Deactivate(ctx context.Context, id uint, actor permission.Principal) (*db.Article, error) {
	return s.setActive(ctx, id, actor, false)
}

// Reactivate clears the soft-hide flag. Admin@topic.
func (s *LifecycleService) Reactivate(ctx context.Context, id uint, actor permission.Principal) (*db.Article, error) {
	return s.setActive(ctx, id, actor, true)
}

func (s *LifecycleService) setActive(ctx context.Context, id uint, actor permission.Principal, active bool) (*db.Article, error) {
	article, err := s.articles.Get(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	if !s.perms.Check(actor.Grants, permission.RoleAdmin, article.Topic) {
		return nil, &PermissionError{Required: permission.RoleAdmin, Topic: article.Topic}
	}

	if article.Active == active {
		return article, nil
	}

	article.Active = active
	if err := s.save(ctx, article); err != nil {
		return nil, err
	}

	s.logger.Info("article active flag changed", "article_id", id, "active", active, "actor", actor.Name)
	return article, nil
}

// Purge hard-deletes the article together with its approval requests, its
// resource bundle and its body. Global admin only; irreversible; works from
// any state.
func (s *LifecycleService) Purge(ctx context.Context, id uint, actor permission.Principal) error {
	if !actor.IsGlobalAdmin() {
		return &PermissionError{Required: permission.RoleAdmin, Topic: permission.GlobalTopic}
	}

	if _, err := s.articles.Get(ctx, id); err != nil {
		return mapStorageErr(err)
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.approvals.DeleteByArticle(txCtx, id); err != nil {
			return err
		}
		if err := s.bundles.Destroy(txCtx, id); err != nil {
			return err
		}
		if err := s.bodies.Delete(txCtx, id); err != nil {
			return err
		}
		return s.articles.HardDelete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("article purged", "article_id", id, "actor", actor.Name)
	return nil
}

// publish is the shared tail of both publish paths: close the request (when
// one drove the publish), build the bundle, flip the status — one unit.
func (s *LifecycleService) publish(ctx context.Context, article *db.Article, pending *db.ApprovalRequest, actor permission.Principal, notes string) error {
	markdown, err := s.bodies.Get(ctx, article.ID)
	if err != nil {
		return err
	}

	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if pending != nil {
			now := s.now()
			pending.Status = db.ApprovalApproved
			pending.ReviewedBy = actor.Name
			pending.ReviewedAt = &now
			pending.ReviewNotes = notes
			if err := s.approvals.Update(txCtx, pending); err != nil {
				return err
			}
		}

		article.Status = db.StatusPublished
		now := s.now()
		article.PublishedAt = &now

		// Render failures roll the whole unit back; the article stays
		// in its pre-publish status with zero artifacts.
		if err := s.bundles.Create(txCtx, article, markdown); err != nil {
			return err
		}
		return s.save(txCtx, article)
	})
}

// closePending marks the article's pending request with the given terminal
// status inside the ambient transaction.
func (s *LifecycleService) closePending(ctx context.Context, articleID uint, status, reviewer, notes string) error {
	pending, err := s.approvals.GetPending(ctx, articleID)
	if err != nil {
		return mapStorageErr(err)
	}

	now := s.now()
	pending.Status = status
	pending.ReviewedBy = reviewer
	pending.ReviewedAt = &now
	pending.ReviewNotes = notes
	return s.approvals.Update(ctx, pending)
}

func (s *LifecycleService) save(ctx context.Context, article *db.Article) error {
	return mapStorageErr(s.articles.Save(ctx, article, article.Version))
}

// mapStorageErr translates storage-level failures into the service error
// taxonomy.
func mapStorageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	case errors.Is(err, db.ErrStaleVersion):
		return ErrConflict
	default:
		return err
	}
}
