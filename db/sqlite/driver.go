package sqlite

import (
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a GORM *DB backed by SQLite. In-memory DSNs
// (file:...?mode=memory) are supported for tests. A busy timeout is
// appended unless the DSN already sets one, so writers queue for the
// single write lock instead of failing immediately.
func Open(path string) (*gorm.DB, error) {
	if !strings.Contains(path, "_busy_timeout") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + "_busy_timeout=5000"
	}
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}
