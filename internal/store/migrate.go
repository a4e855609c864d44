package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// RequiredTables are the catalog tables the adapters read.
var RequiredTables = []string{
	"streaming_users", "live_categories", "streams",
	"vod_categories", "vod_content", "series_categories", "series", "series_episodes",
	"epg_sources", "epg_channels", "epg_programs", "panel_settings",
}

// RunMigrations runs SQL migrations from the given directory (e.g. "file://migrations") against the DSN.
func RunMigrations(dsn string, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate.Up: %w", err)
	}
	return nil
}

// MissingTables reports which RequiredTables do not exist. The schema is
// normally owned by the admin panel, so boot only warns about gaps.
func MissingTables(dsn string) ([]string, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	var missing []string
	for _, t := range RequiredTables {
		var exists bool
		err := db.QueryRow(`SELECT to_regclass($1) IS NOT NULL`, "public."+t).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", t, err)
		}
		if !exists {
			missing = append(missing, t)
		}
	}
	return missing, nil
}
