// Package database provides database initialization and connection management.
// It uses GORM with SQLite for embedded database storage, with driver abstraction
// for future extensibility to support other relational databases.
package database

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/logger"
)

const (
	// DefaultDBPath is the hardcoded database file path
	// This path is fixed to prevent data loss from configuration errors
	DefaultDBPath = "./data/gamelens.db"
)

var (
	db     *gorm.DB
	dbPath string
	once   sync.Once
)

// Init initializes the database connection and performs auto-migration.
// This function is safe to call multiple times; only the first call will take effect.
// The database path is hardcoded to DefaultDBPath to prevent data loss from configuration errors.
func Init() error {
	return InitWithPath(DefaultDBPath)
}

// InitWithPath initializes the database with a custom path.
// This function is primarily for testing purposes.
// For production use, call Init() instead which uses the hardcoded path.
func InitWithPath(path string) error {
	var initErr error
	once.Do(func() {
		initErr = initDB(path)
	})
	return initErr
}

// initDB creates the database connection and runs migrations
func initDB(path string) error {
	logger.Info("Initializing database", zap.String("path", path))

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("Failed to create database directory", zap.Error(err), zap.String("dir", dir))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory", err)
	}

	// 创建SQLite驱动（当前只支持SQLite）
	// Create SQLite driver (currently only SQLite is supported)
	driver := &SQLiteDriver{}

	// Configure GORM logger
	gormLog := gormlogger.Default.LogMode(gormlogger.Silent)

	// Open database connection using driver
	dialector, err := driver.Open(path)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to open database", err)
	}

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to connect to database", err)
	}

	// 迁移前配置：连接池、WAL模式等（不启用外键约束）
	// Apply pre-migration configurations: connection pool, WAL mode, etc. (foreign keys disabled)
	if err := driver.PreMigrationConfig(db); err != nil {
		logger.Error("Failed to apply pre-migration config", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to apply pre-migration config", err)
	}

	// 执行数据库迁移（此时外键约束未启用，避免孤儿记录导致迁移失败）
	// Run auto-migration (foreign keys disabled to avoid orphan record failures)
	if err := migrate(); err != nil {
		return err
	}

	// 迁移后配置：启用外键约束
	// Apply post-migration configurations: enable foreign key constraints
	if err := driver.PostMigrationConfig(db); err != nil {
		logger.Error("Failed to apply post-migration config", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to apply post-migration config", err)
	}

	// The catalog FTS index lives outside GORM's model set
	if err := ensureCatalogIndex(db); err != nil {
		logger.Error("Failed to create catalog search index", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBMigration, "failed to create catalog search index", err)
	}

	dbPath = path
	logger.Info("Database initialized successfully", zap.String("driver", driver.Name()))
	return nil
}

// migrate runs auto-migration for all models
func migrate() error {
	logger.Info("Running database migrations")

	models := model.AllModels()
	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run database migrations", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBMigration, "failed to run database migrations", err)
	}

	logger.Info("Database migrations completed", zap.Int("models", len(models)))
	return nil
}

// ensureCatalogIndex creates the FTS5 virtual table for catalog name search.
// Names are indexed in normalized (lowercased) form; the rowid mirrors app_id.
func ensureCatalogIndex(db *gorm.DB) error {
	return db.Exec(
		`CREATE VIRTUAL TABLE IF NOT EXISTS steam_apps_fts USING fts5(norm_name, content='')`,
	).Error
}

// Get returns the database instance.
// Panics if the database hasn't been initialized.
func Get() *gorm.DB {
	if db == nil {
		panic("database not initialized, call Init first")
	}
	return db
}

// Path returns the database file path used at initialization
func Path() string {
	return dbPath
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	logger.Info("Closing database connection")
	return sqlDB.Close()
}

// Reset clears the global connection state so the database can be
// re-initialized, either by tests or after corruption recovery.
func Reset() {
	if db != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		db = nil
	}
	dbPath = ""
	once = sync.Once{}
}

// Transaction executes a function within a database transaction
func Transaction(fn func(tx *gorm.DB) error) error {
	return Get().Transaction(fn)
}

// HealthCheck performs a simple health check on the database
func HealthCheck() error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	return sqlDB.Ping()
}
