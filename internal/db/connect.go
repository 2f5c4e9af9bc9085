package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the drivers and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-tontine/internal/models"
)

// IsPostgres reports whether the DSN targets postgres; anything else is
// treated as a sqlite file path (the default store is a local tontine.db).
func IsPostgres(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

// SQLitePath extracts the on-disk path from a sqlite DSN ("file:data/tontine.db?...").
func SQLitePath(dsn string) string {
	s := strings.TrimPrefix(strings.TrimSpace(dsn), "file:")
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	return s
}

func open(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	if IsPostgres(dsn) {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	path := SQLitePath(dsn)
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	// Les suppressions en cascade reposent sur les foreign keys sqlite.
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}

// ConnectAndMigrate opens the store and brings the schema up to date.
// MIGRATIONS=1 runs the SQL migrations in ./migrations via golang-migrate;
// otherwise AutoMigrate keeps the dev loop simple, like before.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		conn, err = open(dsn, cfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(conn); err != nil {
			return nil, err
		}
	}

	for _, table := range []string{"adherents", "annees", "appels_de_fonds", "cotisations", "contributions", "depenses", "historique"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		Seed(conn)
	}
	return conn, nil
}

// AutoMigrate creates or updates every entity table.
func AutoMigrate(conn *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.Adherent{}, &models.Annee{}, &models.AppelDeFonds{},
		&models.Cotisation{}, &models.Contribution{}, &models.Depense{}, &models.Historique{},
	}
	for _, m := range modelsToMigrate {
		if migErr := conn.AutoMigrate(m); migErr != nil {
			return fmt.Errorf("automigrate %T: %w", m, migErr)
		}
	}
	return nil
}

// Seed cree l'annee courante (active) si aucune annee n'existe encore.
func Seed(conn *gorm.DB) {
	var count int64
	if err := conn.Model(&models.Annee{}).Count(&count).Error; err != nil || count > 0 {
		return
	}
	conn.Create(&models.Annee{Annee: time.Now().Year(), Active: true})
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", toMigrateURL(dsn))
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// toMigrateURL rewrites the DSN into the URL form golang-migrate expects.
func toMigrateURL(dsn string) string {
	if IsPostgres(dsn) {
		return dsn
	}
	return "sqlite3://" + SQLitePath(dsn)
}
