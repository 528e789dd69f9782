package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"serial-novel-engine/pkg/logger"
)

// gormLogger 把 GORM 日志转到结构化日志：只记录慢查询与错误，SQL 带上请求上下文
type gormLogger struct {
	slow  time.Duration
	level gormlogger.LogLevel
}

var _ gormlogger.Interface = (*gormLogger)(nil)

func newGormLogger(slow time.Duration) *gormLogger {
	return &gormLogger{slow: slow, level: gormlogger.Warn}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		logger.Info(ctx, "gorm: "+fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		logger.Warn(ctx, "gorm: "+fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		logger.Error(ctx, "gorm error", fmt.Errorf(msg, args...))
	}
}

// Trace 记录未命中以外的错误与超过阈值的慢查询
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		logger.Error(ctx, "sql failed", err, "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.Warn(ctx, "slow sql", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logger.Debug(ctx, "sql", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	}
}
