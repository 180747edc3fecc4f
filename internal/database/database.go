package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured backend and tunes its pool. The returned handle
// is owned by the caller and shared by every store.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN())
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected", "driver", cfg.DBDriver)
	return db, nil
}

// Migrate creates the users, incidents and system_logs tables and installs the
// incidents.updated_at trigger for the active dialect.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Incident{},
		&models.SystemLog{},
	); err != nil {
		return err
	}
	return installUpdatedAtTrigger(db)
}

func installUpdatedAtTrigger(db *gorm.DB) error {
	var stmts []string
	switch db.Dialector.Name() {
	case "postgres":
		stmts = []string{
			`CREATE OR REPLACE FUNCTION incidents_touch_updated_at() RETURNS trigger AS $$
BEGIN
	NEW.updated_at = now();
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
			`DROP TRIGGER IF EXISTS incidents_touch_updated_at ON incidents`,
			`CREATE TRIGGER incidents_touch_updated_at BEFORE UPDATE ON incidents
FOR EACH ROW EXECUTE FUNCTION incidents_touch_updated_at()`,
		}
	case "mysql":
		stmts = []string{
			`ALTER TABLE incidents MODIFY updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)`,
		}
	case "sqlite":
		stmts = []string{
			`CREATE TRIGGER IF NOT EXISTS incidents_touch_updated_at AFTER UPDATE ON incidents
FOR EACH ROW WHEN NEW.updated_at = OLD.updated_at
BEGIN
	UPDATE incidents SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
END`,
		}
	default:
		return fmt.Errorf("no updated_at trigger for dialect %q", db.Dialector.Name())
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("install updated_at trigger: %w", err)
		}
	}
	return nil
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
