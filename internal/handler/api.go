package handler

import (
	"log/slog"

	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/permission"
	"github.com/newsdesk/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	articles  *service.ArticleService
	lifecycle *service.LifecycleService
	approvals *service.ApprovalService
	bundles   *service.BundleService
	settings  *service.WorkflowSettingService
	perms     *permission.Engine
	source    service.PermissionSource
	logger    *slog.Logger
}

// NewAPI constructs a handler set with shared services over one gorm handle.
func NewAPI(gdb *gorm.DB, buildMaxAttempts int, logger *slog.Logger) *API {
	perms := permission.NewEngine()
	txManager := db.NewTxManager(gdb)
	articleRepo := db.NewArticleRepo(gdb)
	approvalRepo := db.NewApprovalRepo(gdb)
	bodyStore := db.NewBodyStore(gdb)

	settings := service.NewWorkflowSettingService(gdb)
	bundles := service.NewBundleService(gdb, service.NewMarkdownRenderer(), buildMaxAttempts, logger)
	lifecycle := service.NewLifecycleService(
		articleRepo, approvalRepo, bodyStore, bundles, perms, settings, txManager, logger)
	approvals := service.NewApprovalService(
		approvalRepo, articleRepo, lifecycle, perms, settings, txManager, logger)
	articles := service.NewArticleService(articleRepo, bodyStore, perms, txManager, logger)

	return &API{
		db:        gdb,
		articles:  articles,
		lifecycle: lifecycle,
		approvals: approvals,
		bundles:   bundles,
		settings:  settings,
		perms:     perms,
		source:    db.NewUserSource(gdb),
		logger:    logger.With("component", "http"),
	}
}

// DB exposes the underlying gorm instance for test seeding.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Lifecycle exposes the state machine, used by the e2e harness.
func (a *API) Lifecycle() *service.LifecycleService {
	return a.lifecycle
}

// Approvals exposes the approval coordinator, used by the sweep wiring.
func (a *API) Approvals() *service.ApprovalService {
	return a.approvals
}
