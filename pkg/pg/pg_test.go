package pg

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type captureWriter struct {
	lines []string
}

func (w *captureWriter) Printf(format string, args ...interface{}) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestGormLogger_SkipsRecordNotFound(t *testing.T) {
	w := &captureWriter{}
	l := newGormLogger(w)
	sql := func() (string, int64) { return `SELECT * FROM "profiles" WHERE id = 'x'`, 0 }

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, w.lines)

	l.Trace(context.Background(), time.Now(), sql, errors.New("connection reset"))
	assert.Len(t, w.lines, 1)
	assert.Contains(t, w.lines[0], "connection reset")
}

func TestGormLogger_ReportsSlowQueries(t *testing.T) {
	w := &captureWriter{}
	l := newGormLogger(w)

	l.Trace(context.Background(), time.Now().Add(-2*slowQueryThreshold), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Len(t, w.lines, 1)
	assert.Contains(t, w.lines[0], "SLOW SQL")
}

func TestGormConfig(t *testing.T) {
	c := GormConfig()
	assert.True(t, c.TranslateError)
	assert.NotNil(t, c.Logger)
}
