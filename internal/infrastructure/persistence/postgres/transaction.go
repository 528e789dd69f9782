package postgres

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"serial-novel-engine/internal/domain/repository"
)

type txKey struct{}

// TxManager 以 ctx 传递事务句柄，嵌套调用复用外层事务
type TxManager struct {
	db   *gorm.DB
	opts *sql.TxOptions
}

var _ repository.Transactor = (*TxManager)(nil)

// NewTxManager 设定集导入需要一致读写，使用 RepeatableRead
func NewTxManager(client *Client) *TxManager {
	return &TxManager{db: client.db, opts: &sql.TxOptions{Isolation: sql.LevelRepeatableRead}}
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	}, m.opts)
}

func txFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// getDB 事务中返回事务句柄，否则返回普通连接
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := txFrom(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
