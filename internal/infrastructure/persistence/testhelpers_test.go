package persistence

import (
	"testing"

	"github.com/clubdeportivo/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSQLiteDB opens a private in-memory database with the billing schema.
// The pool is pinned to one connection because every new :memory:
// connection would otherwise see an empty database.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.InstallmentModel{},
		&models.PersonModel{},
		&models.StudentModel{},
		&models.CategoryModel{},
		&models.StudentCategoryModel{},
		&models.AuditLogModel{},
	))
	return db
}
