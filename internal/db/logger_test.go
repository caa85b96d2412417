package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	l := NewGormLogger(100 * time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), stmt, nil)
	l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	l.Trace(ctx, time.Now(), stmt, errors.New("connection reset"))
	l.Trace(ctx, time.Now(), stmt, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 2, logs.FilterMessage("sql").Len())
	assert.Equal(t, 1, logs.FilterMessage("slow sql").Len())
	assert.Equal(t, 1, logs.FilterMessage("sql error").Len())

	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), stmt, errors.New("ignored"))
	assert.Equal(t, 1, logs.FilterMessage("sql error").Len())
	assert.Equal(t, gormlogger.Info, l.LogLevel, "LogMode returns a copy")
}
