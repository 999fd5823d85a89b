package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/permission"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Shared fixture for the service tests: real repositories and services over
// an in-memory sqlite database.

type testEnv struct {
	gdb       *gorm.DB
	articles  *ArticleService
	lifecycle *LifecycleService
	approvals *ApprovalService
	bundles   *BundleService
	bodies    *db.BodyStore
	repo      *db.ArticleRepo
	approvalR *db.ApprovalRepo
	settings  *stubSettings
	clock     *fakeClock
}

type stubSettings struct {
	selfApproval bool
	ttl          time.Duration
}

func (s *stubSettings) AllowSelfApproval() bool { return s.selfApproval }

func (s *stubSettings) ApprovalTTL() time.Duration {
	if s.ttl == 0 {
		return 24 * time.Hour
	}
	return s.ttl
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingRenderer fails PDF rendering to exercise build-failure rollback.
type failingRenderer struct {
	inner Renderer
}

func (r *failingRenderer) RenderHTML(ctx context.Context, article *db.Article, markdown string) ([]byte, error) {
	return r.inner.RenderHTML(ctx, article, markdown)
}

func (r *failingRenderer) RenderPDF(ctx context.Context, article *db.Article, markdown string) ([]byte, error) {
	return nil, fmt.Errorf("pdf renderer unavailable")
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%s-%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A single connection serializes concurrent access; sqlite's shared
	// cache would otherwise report table locks instead of clean conflicts.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithRenderer(t, NewMarkdownRenderer())
}

func newTestEnvWithRenderer(t *testing.T, renderer Renderer) *testEnv {
	t.Helper()
	gdb := setupTestDB(t)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	perms := permission.NewEngine()
	txManager := db.NewTxManager(gdb)
	articleRepo := db.NewArticleRepo(gdb)
	approvalRepo := db.NewApprovalRepo(gdb)
	bodyStore := db.NewBodyStore(gdb)
	settings := &stubSettings{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	bundles := NewBundleService(gdb, renderer, 2, log)
	lifecycle := NewLifecycleService(
		articleRepo, approvalRepo, bodyStore, bundles, perms, settings, txManager, log,
	).WithClock(clock.Now)
	approvals := NewApprovalService(
		approvalRepo, articleRepo, lifecycle, perms, settings, txManager, log,
	).WithClock(clock.Now)
	articles := NewArticleService(articleRepo, bodyStore, perms, txManager, log)

	return &testEnv{
		gdb:       gdb,
		articles:  articles,
		lifecycle: lifecycle,
		approvals: approvals,
		bundles:   bundles,
		bodies:    bodyStore,
		repo:      articleRepo,
		approvalR: approvalRepo,
		settings:  settings,
		clock:     clock,
	}
}

func principal(name string, scopes ...string) permission.Principal {
	return permission.Principal{Name: name, Grants: permission.ParseScopes(scopes)}
}

// seedArticle inserts an article in the given status with a small body.
func (e *testEnv) seedArticle(t *testing.T, topic, status string) *db.Article {
	t.Helper()
	article := &db.Article{
		Topic:    topic,
		Headline: "Quarterly Macro Outlook",
		Author:   "ana",
		Status:   status,
		Active:   true,
		Version:  1,
	}
	if err := e.gdb.Create(article).Error; err != nil {
		t.Fatalf("seed article: %v", err)
	}
	if err := e.bodies.Put(context.Background(), article.ID, "# Outlook\n\nGrowth holds up."); err != nil {
		t.Fatalf("seed body: %v", err)
	}
	return article
}

func (e *testEnv) reload(t *testing.T, id uint) *db.Article {
	t.Helper()
	var article db.Article
	if err := e.gdb.First(&article, id).Error; err != nil {
		t.Fatalf("reload article %d: %v", id, err)
	}
	return &article
}

func (e *testEnv) countResources(t *testing.T, articleID uint) (parents, children int64) {
	t.Helper()
	if err := e.gdb.Model(&db.PublicationResource{}).
		Where("article_id = ? AND kind = ? AND stage = ?", articleID, db.ResourceKindBundle, db.ResourceStageLive).
		Count(&parents).Error; err != nil {
		t.Fatalf("count parents: %v", err)
	}
	if err := e.gdb.Model(&db.PublicationResource{}).
		Where("article_id = ? AND kind <> ? AND stage = ?", articleID, db.ResourceKindBundle, db.ResourceStageLive).
		Count(&children).Error; err != nil {
		t.Fatalf("count children: %v", err)
	}
	return parents, children
}
