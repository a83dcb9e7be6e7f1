// Package dbtest opens throwaway SQLite databases with the embedded schema applied.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/angelmondragon/portal/pkg/config"
	"github.com/angelmondragon/portal/pkg/db"
	"github.com/angelmondragon/portal/pkg/migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a migrated SQLite client backed by a file in t.TempDir.
func Open(t testing.TB) *db.Client {
	t.Helper()
	ctx := context.Background()

	client, err := db.New(ctx, config.DBConfig{
		Driver:       config.DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "portal.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.SQL()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if err := migrate.Run(ctx, sqlDB, "sqlite3", "", "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	return client
}

// Mock returns a client whose queries are answered by sqlmock through the
// Postgres dialector.
func Mock(t testing.TB) (*db.Client, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db.NewFromGorm(openMock(t, sqlDB)), mock
}

func openMock(t testing.TB, sqlDB *sql.DB) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open gorm over sqlmock: %v", err)
	}
	return conn
}
