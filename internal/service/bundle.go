package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/newsdesk/internal/db"
	"gorm.io/gorm"
)

// BundleService builds and destroys the publication resource bundle: one
// parent row plus exactly two children (HTML and PDF renders) per published
// article. Create is an idempotent full replace under a stage-then-swap
// pattern, so readers never observe a partial set.
type BundleService struct {
	db          *gorm.DB
	renderer    Renderer
	maxAttempts int
	logger      *slog.Logger
}

// Bundle is the live resource set for one article.
type Bundle struct {
	Parent   db.PublicationResource
	Children []db.PublicationResource
}

// NewBundleService creates a BundleService. maxAttempts bounds render
// retries before a BuildError is surfaced.
func NewBundleService(gdb *gorm.DB, renderer Renderer, maxAttempts int, logger *slog.Logger) *BundleService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &BundleService{
		db:          gdb,
		renderer:    renderer,
		maxAttempts: maxAttempts,
		logger:      logger.With("component", "bundle"),
	}
}

// Create renders both artifacts, stages the new parent+2-children set under
// fresh storage keys, then swaps it into place: the old live set is removed
// and the staged set promoted inside one transaction. When ctx carries an
// ambient transaction (a publish transition), the swap joins it.
func (s *BundleService) Create(ctx context.Context, article *db.Article, markdown string) error {
	htmlBytes, err := s.renderWithRetry(ctx, article, markdown, db.ResourceKindHTML)
	if err != nil {
		return err
	}
	pdfBytes, err := s.renderWithRetry(ctx, article, markdown, db.ResourceKindPDF)
	if err != nil {
		return err
	}

	return s.runInTx(ctx, func(tx *gorm.DB) error {
		parent := db.PublicationResource{
			ArticleID:  article.ID,
			Kind:       db.ResourceKindBundle,
			Stage:      db.ResourceStageStaged,
			StorageKey: uuid.New().String(),
			Version:    article.Version,
		}
		if err := tx.Create(&parent).Error; err != nil {
			return err
		}

		children := []db.PublicationResource{
			{
				ArticleID:   article.ID,
				ParentID:    &parent.ID,
				Kind:        db.ResourceKindHTML,
				Stage:       db.ResourceStageStaged,
				ContentType: "text/html; charset=utf-8",
				StorageKey:  uuid.New().String(),
				Bytes:       int64(len(htmlBytes)),
				Version:     article.Version,
			},
			{
				ArticleID:   article.ID,
				ParentID:    &parent.ID,
				Kind:        db.ResourceKindPDF,
				Stage:       db.ResourceStageStaged,
				ContentType: "application/pdf",
				StorageKey:  uuid.New().String(),
				Bytes:       int64(len(pdfBytes)),
				Version:     article.Version,
			},
		}
		if err := tx.Create(&children).Error; err != nil {
			return err
		}

		blobs := []db.ResourceBlob{
			{StorageKey: children[0].StorageKey, Data: htmlBytes},
			{StorageKey: children[1].StorageKey, Data: pdfBytes},
		}
		if err := tx.Create(&blobs).Error; err != nil {
			return err
		}

		// Swap: drop whatever was live, then promote the staged set.
		if err := destroyStage(tx, article.ID, db.ResourceStageLive); err != nil {
			return err
		}
		return tx.Model(&db.PublicationResource{}).
			Where("article_id = ? AND stage = ?", article.ID, db.ResourceStageStaged).
			Update("stage", db.ResourceStageLive).Error
	})
}

// Destroy removes the bundle rows and their backing blobs. A missing bundle
// is a no-op, not an error.
func (s *BundleService) Destroy(ctx context.Context, articleID uint) error {
	return s.runInTx(ctx, func(tx *gorm.DB) error {
		if err := destroyStage(tx, articleID, db.ResourceStageLive); err != nil {
			return err
		}
		return destroyStage(tx, articleID, db.ResourceStageStaged)
	})
}

// Bundle returns the live resource set for an article, or ErrNotFound.
func (s *BundleService) Bundle(ctx context.Context, articleID uint) (*Bundle, error) {
	tx := db.Executor(ctx, s.db)

	var parent db.PublicationResource
	if err := tx.
		Where("article_id = ? AND kind = ? AND stage = ?", articleID, db.ResourceKindBundle, db.ResourceStageLive).
		First(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var children []db.PublicationResource
	if err := tx.
		Where("parent_id = ? AND stage = ?", parent.ID, db.ResourceStageLive).
		Order("kind asc").
		Find(&children).Error; err != nil {
		return nil, err
	}

	return &Bundle{Parent: parent, Children: children}, nil
}

// Artifact returns one live child resource and its rendered bytes.
func (s *BundleService) Artifact(ctx context.Context, articleID uint, kind string) (*db.PublicationResource, []byte, error) {
	tx := db.Executor(ctx, s.db)

	var res db.PublicationResource
	if err := tx.
		Where("article_id = ? AND kind = ? AND stage = ?", articleID, kind, db.ResourceStageLive).
		First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var blob db.ResourceBlob
	if err := tx.Where("storage_key = ?", res.StorageKey).First(&blob).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	return &res, blob.Data, nil
}

// VerifyBundle asserts the exactly-1-parent-2-children shape of the live
// set. "At least" is never acceptable.
func (s *BundleService) VerifyBundle(ctx context.Context, articleID uint) error {
	tx := db.Executor(ctx, s.db)

	var parents, children int64
	if err := tx.Model(&db.PublicationResource{}).
		Where("article_id = ? AND kind = ? AND stage = ?", articleID, db.ResourceKindBundle, db.ResourceStageLive).
		Count(&parents).Error; err != nil {
		return err
	}
	if err := tx.Model(&db.PublicationResource{}).
		Where("article_id = ? AND kind <> ? AND stage = ?", articleID, db.ResourceKindBundle, db.ResourceStageLive).
		Count(&children).Error; err != nil {
		return err
	}

	if parents != 1 || children != 2 {
		return fmt.Errorf("bundle for article %d has %d parents and %d children", articleID, parents, children)
	}
	return nil
}

func (s *BundleService) renderWithRetry(ctx context.Context, article *db.Article, markdown, kind string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var (
			data []byte
			err  error
		)
		switch kind {
		case db.ResourceKindHTML:
			data, err = s.renderer.RenderHTML(ctx, article, markdown)
		default:
			data, err = s.renderer.RenderPDF(ctx, article, markdown)
		}
		if err == nil {
			return data, nil
		}
		lastErr = err
		s.logger.Warn("artifact render failed",
			"article_id", article.ID,
			"kind", kind,
			"attempt", attempt,
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &BuildError{Err: fmt.Errorf("render %s: %w", kind, lastErr)}
}

// runInTx joins the ambient transaction when one is running, otherwise
// opens its own.
func (s *BundleService) runInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if db.InTransaction(ctx) {
		return fn(db.Executor(ctx, s.db))
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// destroyStage removes the resource rows of one stage together with their
// blobs. Hard deletes: a recalled or replaced artifact must not survive as
// a soft-deleted row.
func destroyStage(tx *gorm.DB, articleID uint, stage string) error {
	var keys []string
	if err := tx.Model(&db.PublicationResource{}).
		Where("article_id = ? AND stage = ?", articleID, stage).
		Pluck("storage_key", &keys).Error; err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := tx.Unscoped().
		Where("storage_key IN ?", keys).
		Delete(&db.ResourceBlob{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().
		Where("article_id = ? AND stage = ?", articleID, stage).
		Delete(&db.PublicationResource{}).Error
}
