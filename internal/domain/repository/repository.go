// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Transactor fn 内经 ctx 发起的仓储调用共享同一事务；fn 返回错误时整体回滚
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
