package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 newsdesk.db。
func Open(databasePath string) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "newsdesk.db"
	}

	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		// Unique-constraint violations must surface as
		// gorm.ErrDuplicatedKey so the approval repository can report
		// Conflict instead of a driver error string.
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	return gdb, nil
}

// Migrate 自动迁移模式，为核心模型创建表。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&User{},
		&Article{},
		&ArticleBody{},
		&ApprovalRequest{},
		&PublicationResource{},
		&ResourceBlob{},
		&WorkflowSetting{},
	); err != nil {
		return err
	}

	// AutoMigrate cannot express a partial unique index. This one is the
	// at-most-one-pending-per-article invariant: it must hold against
	// concurrent inserts, not just check-then-insert.
	if err := gdb.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_approval_requests_pending
		 ON approval_requests(article_id) WHERE status = 'pending' AND deleted_at IS NULL`,
	).Error; err != nil {
		return err
	}

	return nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
