package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BodyStore is the gorm implementation of service.ContentBodyStore. The
// lifecycle core treats bodies as opaque text keyed by article id.
type BodyStore struct {
	db *gorm.DB
}

// NewBodyStore creates a BodyStore instance.
func NewBodyStore(gdb *gorm.DB) *BodyStore {
	return &BodyStore{db: gdb}
}

// Get returns the markdown body for an article. A missing row reads as an
// empty body, not an error.
func (s *BodyStore) Get(ctx context.Context, articleID uint) (string, error) {
	var body ArticleBody
	if err := Executor(ctx, s.db).
		Where("article_id = ?", articleID).
		First(&body).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return body.Markdown, nil
}

// Put upserts the body row for an article.
func (s *BodyStore) Put(ctx context.Context, articleID uint, markdown string) error {
	return Executor(ctx, s.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"markdown", "updated_at"}),
		}).
		Create(&ArticleBody{ArticleID: articleID, Markdown: markdown}).Error
}

// Delete removes the body row irreversibly.
func (s *BodyStore) Delete(ctx context.Context, articleID uint) error {
	return Executor(ctx, s.db).Unscoped().
		Where("article_id = ?", articleID).
		Delete(&ArticleBody{}).Error
}
