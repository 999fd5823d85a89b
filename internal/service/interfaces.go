package service

import (
	"context"
	"time"

	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/permission"
)

// Collaborator interfaces consumed by the lifecycle core. The gorm-backed
// implementations live in internal/db; tests substitute their own.

// ArticleRepository is versioned, transactional storage for article rows.
// Save is conditional on expectedVersion and must fail when the row moved.
type ArticleRepository interface {
	Get(ctx context.Context, id uint) (*db.Article, error)
	Create(ctx context.Context, article *db.Article) error
	Save(ctx context.Context, article *db.Article, expectedVersion int) error
	ListByStatus(ctx context.Context, topic, status string, page, perPage int) ([]db.Article, int64, error)
	CountByStatus(ctx context.Context, topic, status string) (int64, error)
	HardDelete(ctx context.Context, id uint) error
}

// ApprovalRepository stores approval requests. Create must enforce the
// at-most-one-pending-per-article constraint against concurrent inserts.
type ApprovalRepository interface {
	Create(ctx context.Context, req *db.ApprovalRequest) error
	Get(ctx context.Context, id uint) (*db.ApprovalRequest, error)
	GetPending(ctx context.Context, articleID uint) (*db.ApprovalRequest, error)
	Update(ctx context.Context, req *db.ApprovalRequest) error
	ListPending(ctx context.Context, topic string) ([]db.ApprovalRequest, error)
	ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]db.ApprovalRequest, error)
	DeleteByArticle(ctx context.Context, articleID uint) error
}

// ContentBodyStore is opaque get/put/delete of article body text by id.
type ContentBodyStore interface {
	Get(ctx context.Context, articleID uint) (string, error)
	Put(ctx context.Context, articleID uint, markdown string) error
	Delete(ctx context.Context, articleID uint) error
}

// TransactionManager runs fn inside one storage transaction carried on the
// context. Repository calls made with that context join the transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Renderer turns an article body into a publication artifact. Rendering is
// pluggable; the lifecycle only cares that it succeeds or fails.
type Renderer interface {
	RenderHTML(ctx context.Context, article *db.Article, markdown string) ([]byte, error)
	RenderPDF(ctx context.Context, article *db.Article, markdown string) ([]byte, error)
}

// PublicationBuilder synthesizes and destroys the publication bundle for an
// article, idempotently. Implemented by BundleService.
type PublicationBuilder interface {
	Create(ctx context.Context, article *db.Article, markdown string) error
	Destroy(ctx context.Context, articleID uint) error
}

// PermissionSource resolves an opaque credential to a principal with parsed
// grants. How principals authenticate is outside the core.
type PermissionSource interface {
	ResolveToken(ctx context.Context, token string) (permission.Principal, error)
	ResolveUser(ctx context.Context, userID uint) (permission.Principal, error)
}

// WorkflowSettings exposes the runtime-tunable workflow knobs.
type WorkflowSettings interface {
	AllowSelfApproval() bool
	ApprovalTTL() time.Duration
}
