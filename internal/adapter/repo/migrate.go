package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/aq2208/storefront-api/internal/adapter/repo/migrations"
)

const migrationTable = "schema_migrations"

// migrate applies the embedded migrations for the store's dialect, each file at most once.
func (s *Store) migrate(ctx context.Context) error {
	root := string(s.dialect)
	entries, err := fs.ReadDir(migrations.FS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name VARCHAR(255) PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		applied, err := s.isApplied(ctx, file)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, path.Join(root, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		// MySQL commits DDL implicitly, so statements run one by one outside a tx.
		for _, stmt := range splitStatements(extractUp(string(content))) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil && !isAlreadyExists(err) {
				return fmt.Errorf("exec migration %s: %w", file, err)
			}
		}

		if _, err := s.db.ExecContext(ctx,
			s.dialect.insertIgnore()+" INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, toMillis(time.Now()),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", file, err)
		}
	}
	return nil
}

func (s *Store) isApplied(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+migrationTable+" WHERE name = ?", name).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return n > 0, nil
}

// extractUp returns the SQL in the -- +migrate Up section.
func extractUp(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}

func splitStatements(script string) []string {
	var out []string
	for _, chunk := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(stripComments(chunk))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func stripComments(chunk string) string {
	lines := strings.Split(chunk, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

func isAlreadyExists(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		// 1050 table exists, 1061 duplicate key name
		return me.Number == 1050 || me.Number == 1061
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
