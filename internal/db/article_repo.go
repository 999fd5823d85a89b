package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrStaleVersion reports a conditional save whose expected version no
// longer matches the stored row.
var ErrStaleVersion = errors.New("article version is stale")

// ArticleRepo is the gorm implementation of service.ArticleRepository.
type ArticleRepo struct {
	db *gorm.DB
}

// NewArticleRepo creates an ArticleRepo instance.
func NewArticleRepo(gdb *gorm.DB) *ArticleRepo {
	return &ArticleRepo{db: gdb}
}

// Get fetches an article by id.
func (r *ArticleRepo) Get(ctx context.Context, id uint) (*Article, error) {
	var article Article
	if err := Executor(ctx, r.db).First(&article, id).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// Create persists a new article row. Version starts at 1.
func (r *ArticleRepo) Create(ctx context.Context, article *Article) error {
	if article.Version == 0 {
		article.Version = 1
	}
	return Executor(ctx, r.db).Create(article).Error
}

// Save writes the mutable columns conditionally on the stored version still
// being expectedVersion, bumping the version in the same statement. A row
// that moved underneath the caller yields ErrStaleVersion; a missing row
// yields gorm.ErrRecordNotFound.
func (r *ArticleRepo) Save(ctx context.Context, article *Article, expectedVersion int) error {
	tx := Executor(ctx, r.db)

	res := tx.Model(&Article{}).
		Where("id = ? AND version = ?", article.ID, expectedVersion).
		Updates(map[string]interface{}{
			"headline":     article.Headline,
			"author":       article.Author,
			"editor":       article.Editor,
			"status":       article.Status,
			"active":       article.Active,
			"published_at": article.PublishedAt,
			"version":      expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&Article{}).Where("id = ?", article.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrStaleVersion
	}

	article.Version = expectedVersion + 1
	return nil
}

// ListByStatus returns one page of articles, newest first. Empty topic or
// status means no filter on that column.
func (r *ArticleRepo) ListByStatus(ctx context.Context, topic, status string, page, perPage int) ([]Article, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}

	query := Executor(ctx, r.db).Model(&Article{})
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []Article
	if err := query.
		Order("created_at desc, id desc").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&articles).Error; err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

// CountByStatus counts articles per status for list counters.
func (r *ArticleRepo) CountByStatus(ctx context.Context, topic, status string) (int64, error) {
	query := Executor(ctx, r.db).Model(&Article{})
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

// HardDelete removes the article row irreversibly.
func (r *ArticleRepo) HardDelete(ctx context.Context, id uint) error {
	return Executor(ctx, r.db).Unscoped().Delete(&Article{}, id).Error
}
