package postgres

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"serial-novel-engine/pkg/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", "json")
	l := newGormLogger(10 * time.Millisecond)
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now(), fc, assert.AnError)
	assert.Contains(t, buf.String(), "sql failed")
	buf.Reset()

	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	assert.Contains(t, buf.String(), "slow sql")
	buf.Reset()

	l.Trace(ctx, time.Now(), fc, nil)
	assert.Empty(t, buf.String())

	l.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), fc, assert.AnError)
	assert.Empty(t, buf.String())
}
