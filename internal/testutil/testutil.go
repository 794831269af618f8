// Package testutil 测试用的数据库与时钟
package testutil

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"values_edu_backend/internal/model"
	"values_edu_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 每个测试独立的 sqlite 文件，已迁移并写入默认徽章
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Clock 可手动推进的时钟
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AddDays 按日历日推进
func (c *Clock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

var userSeq struct {
	sync.Mutex
	n int
}

// CreateUser 直接写库创建用户
func CreateUser(t *testing.T, db *gorm.DB, name string, role model.UserRole, classID *uint) *model.User {
	t.Helper()

	userSeq.Lock()
	userSeq.n++
	seq := userSeq.n
	userSeq.Unlock()

	user := &model.User{
		ExternalAuthID: fmt.Sprintf("auth|%s-%d", name, seq),
		DisplayName:    name,
		Email:          fmt.Sprintf("%s%d@example.com", name, seq),
		Role:           role,
		ClassID:        classID,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func UintPtr(v uint) *uint {
	return &v
}
