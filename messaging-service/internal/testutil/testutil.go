// Package testutil builds in-memory databases and fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/pkg/database"
)

var dbSeq atomic.Int64

// NewTestDB opens a private in-memory sqlite database with every messaging
// table migrated. It is closed when the test ends.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:messaging_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     dsn,
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// Dept returns a department id pointer.
func Dept(id int64) *int64 {
	return &id
}

// SeedUser inserts an active user.
func SeedUser(t testing.TB, db *gorm.DB, id string, role domain.Role, dept *int64) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:           id,
		DisplayName:  "User " + id,
		Role:         role,
		DepartmentID: dept,
		IsActive:     true,
	}
	require.NoError(t, db.Create(domain.UserToModel(user)).Error)
	return user
}

// SeedInactiveUser inserts a deactivated user.
func SeedInactiveUser(t testing.TB, db *gorm.DB, id string, role domain.Role, dept *int64) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:           id,
		DisplayName:  "User " + id,
		Role:         role,
		DepartmentID: dept,
		IsActive:     false,
	}
	require.NoError(t, db.Create(domain.UserToModel(user)).Error)
	return user
}

// CountRows counts rows of model matching the optional condition.
func CountRows(t testing.TB, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	tx := db.Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	var n int64
	require.NoError(t, tx.Count(&n).Error)
	return n
}
