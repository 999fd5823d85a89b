package db

import (
	"context"

	"gorm.io/gorm"
)

type ctxKey string

const txKey ctxKey = "tx"

// TxManager carries a gorm transaction on the context so that repository
// calls made inside WithTransaction join the same unit of work.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager wraps a gorm handle.
func NewTxManager(gdb *gorm.DB) *TxManager {
	return &TxManager{db: gdb}
}

// WithTransaction runs fn inside one transaction. fn returning an error
// rolls everything back.
func (tm *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

// Executor returns the ambient transaction from ctx, or fallback when none
// is running.
func Executor(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback.WithContext(ctx)
}

// InTransaction reports whether ctx carries an ambient transaction.
func InTransaction(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	return ok && tx != nil
}
