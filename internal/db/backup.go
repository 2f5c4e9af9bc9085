package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Backup copies the sqlite store into backupDir with a timestamped name and
// returns the backup path. Only meaningful for the sqlite driver.
func Backup(conn *gorm.DB, dsn, backupDir string) (string, error) {
	if IsPostgres(dsn) {
		return "", fmt.Errorf("backup is only supported for the sqlite store")
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	name := fmt.Sprintf("tontine_backup_%s.db", time.Now().Format("20060102_150405"))
	path := filepath.Join(backupDir, name)
	// VACUUM INTO produit une copie coherente sans verrouiller la base.
	stmt := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(path, "'", "''"))
	if err := conn.Exec(stmt).Error; err != nil {
		return "", fmt.Errorf("backup database: %w", err)
	}
	return path, nil
}
