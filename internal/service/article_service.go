package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/permission"
)

// ArticleService wraps draft CRUD around the lifecycle. It never writes the
// Status column; transitions belong to LifecycleService.
type ArticleService struct {
	articles ArticleRepository
	bodies   ContentBodyStore
	perms    *permission.Engine
	tx       TransactionManager
	logger   *slog.Logger
}

// ArticleInput carries the fields accepted when creating an article.
type ArticleInput struct {
	Topic    string
	Headline string
	Author   string
	Body     string
}

// ArticleUpdate carries the fields accepted when editing. Nil means leave
// the field alone. ExpectedVersion is the version the caller read.
type ArticleUpdate struct {
	Headline        *string
	Editor          *string
	Body            *string
	ExpectedVersion int
}

// ArticleFilter describes filters for listing articles.
type ArticleFilter struct {
	Topic   string
	Status  string
	Page    int
	PerPage int
}

// ArticleListResult aggregates paginated list data and counters.
type ArticleListResult struct {
	Articles       []db.Article
	Total          int64
	PublishedCount int64
	DraftCount     int64
	TotalPages     int
	Page           int
	PerPage        int
}

// NewArticleService creates an ArticleService instance.
func NewArticleService(
	articles ArticleRepository,
	bodies ContentBodyStore,
	perms *permission.Engine,
	tx TransactionManager,
	logger *slog.Logger,
) *ArticleService {
	return &ArticleService{
		articles: articles,
		bodies:   bodies,
		perms:    perms,
		tx:       tx,
		logger:   logger.With("component", "articles"),
	}
}

// Create persists a new draft. Analyst@topic.
func (s *ArticleService) Create(ctx context.Context, input ArticleInput, actor permission.Principal) (*db.Article, error) {
	topic := strings.ToLower(strings.TrimSpace(input.Topic))
	if topic == "" {
		return nil, newValidationError("topic is required")
	}
	if strings.TrimSpace(input.Headline) == "" {
		return nil, newValidationError("headline is required")
	}

	if !s.perms.Check(actor.Grants, permission.RoleAnalyst, topic) {
		return nil, &PermissionError{Required: permission.RoleAnalyst, Topic: topic}
	}

	author := strings.TrimSpace(input.Author)
	if author == "" {
		author = actor.Name
	}

	article := &db.Article{
		Topic:    topic,
		Headline: strings.TrimSpace(input.Headline),
		Author:   author,
		Status:   db.StatusDraft,
		Active:   true,
		Version:  1,
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.articles.Create(txCtx, article); err != nil {
			return err
		}
		return s.bodies.Put(txCtx, article.ID, input.Body)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("article created", "article_id", article.ID, "topic", topic, "actor", actor.Name)
	return article, nil
}

// Get returns the article and its body. Reader@topic.
func (s *ArticleService) Get(ctx context.Context, id uint, actor permission.Principal) (*db.Article, string, error) {
	article, err := s.articles.Get(ctx, id)
	if err != nil {
		return nil, "", mapStorageErr(err)
	}

	if !s.perms.Check(actor.Grants, permission.RoleReader, article.Topic) {
		return nil, "", &PermissionError{Required: permission.RoleReader, Topic: article.Topic}
	}

	body, err := s.bodies.Get(ctx, article.ID)
	if err != nil {
		return nil, "", err
	}
	return article, body, nil
}

// Update edits headline, editor or body in place. Only legal while the
// article sits in draft or on the editor desk; version-conditional so a
// stale caller gets Conflict.
func (s *ArticleService) Update(ctx context.Context, id uint, update ArticleUpdate, actor permission.Principal) (*db.Article, error) {
	article, err := s.articles.Get(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	if !s.perms.Check(actor.Grants, permission.RoleEditor, article.Topic) {
		return nil, &PermissionError{Required: permission.RoleEditor, Topic: article.Topic}
	}
	if !article.Active {
		return nil, newValidationError("article %d is deactivated", id)
	}
	if article.Status != db.StatusDraft && article.Status != db.StatusEditor {
		return nil, newValidationError("article %d is not editable in status %q", id, article.Status)
	}
	if update.ExpectedVersion != 0 && update.ExpectedVersion != article.Version {
		return nil, ErrConflict
	}

	if update.Headline != nil {
		headline := strings.TrimSpace(*update.Headline)
		if headline == "" {
			return nil, newValidationError("headline must not be empty")
		}
		article.Headline = headline
	}
	if update.Editor != nil {
		article.Editor = strings.TrimSpace(*update.Editor)
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if update.Body != nil {
			if err := s.bodies.Put(txCtx, article.ID, *update.Body); err != nil {
				return err
			}
		}
		return mapStorageErr(s.articles.Save(txCtx, article, article.Version))
	})
	if err != nil {
		return nil, err
	}

	return article, nil
}

// List provides paginated articles with aggregated counters. With a topic
// filter the caller needs Reader on it; without, Reader anywhere.
func (s *ArticleService) List(ctx context.Context, filter ArticleFilter, actor permission.Principal) (*ArticleListResult, error) {
	topic := strings.ToLower(strings.TrimSpace(filter.Topic))
	if topic != "" {
		if !s.perms.Check(actor.Grants, permission.RoleReader, topic) {
			return nil, &PermissionError{Required: permission.RoleReader, Topic: topic}
		}
	} else if !s.perms.CheckAny(actor.Grants, permission.RoleReader) {
		return nil, &PermissionError{Required: permission.RoleReader}
	}

	result := &ArticleListResult{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = 10
	}

	articles, total, err := s.articles.ListByStatus(ctx, topic, filter.Status, result.Page, result.PerPage)
	if err != nil {
		return nil, err
	}
	result.Articles = articles
	result.Total = total

	if result.PublishedCount, err = s.articles.CountByStatus(ctx, topic, db.StatusPublished); err != nil {
		return nil, err
	}
	if result.DraftCount, err = s.articles.CountByStatus(ctx, topic, db.StatusDraft); err != nil {
		return nil, err
	}

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}

	return result, nil
}
