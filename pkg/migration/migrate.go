// Package migration は各サービスのSQLiteスキーマをembed.FSのSQLファイルから適用する。
// 適用済みのバージョンはschema_migrationsテーブルに記録する。
package migration

import (
	"cmp"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"path"
	"slices"
	"strconv"
	"strings"
)

// upSuffix は適用対象のファイル名の接尾辞。down.sqlは使わない。
const upSuffix = ".up.sql"

// Run はdir配下の <version>_<name>.up.sql を番号順に適用する。
// 適用済みのバージョンはスキップする。番号の重複や番号の無いファイルはエラーにする。
func Run(db *sql.DB, fsys fs.FS, dir string) error {
	if _, err := fs.Stat(fsys, dir); err != nil {
		return fmt.Errorf("マイグレーションディレクトリが見つかりません: %w", err)
	}

	pending, err := collect(fsys, dir)
	if err != nil {
		return fmt.Errorf("マイグレーションファイルの収集に失敗: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		)
	`); err != nil {
		return fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	for _, m := range pending {
		if _, ok := applied[m.version]; ok {
			continue
		}
		if err := m.apply(db, fsys); err != nil {
			return fmt.Errorf("マイグレーション %06d_%s の適用に失敗: %w", m.version, m.name, err)
		}
		log.Printf("[Migration] %06d_%s を適用しました", m.version, m.name)
	}
	return nil
}

// migrationFile は1つのupマイグレーション。
type migrationFile struct {
	version int
	name    string
	path    string
}

// collect はup.sqlを集めてバージョン順に並べる。
func collect(fsys fs.FS, dir string) ([]migrationFile, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*"+upSuffix))
	if err != nil {
		return nil, err
	}

	files := make([]migrationFile, 0, len(paths))
	seen := make(map[int]string, len(paths))
	for _, p := range paths {
		base := path.Base(p)
		prefix, name, ok := strings.Cut(strings.TrimSuffix(base, upSuffix), "_")
		version, convErr := strconv.Atoi(prefix)
		if !ok || convErr != nil || version <= 0 {
			return nil, fmt.Errorf("ファイル名にバージョン番号がありません: %s", base)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("バージョン %06d が重複しています: %s, %s", version, other, base)
		}
		seen[version] = base
		files = append(files, migrationFile{version: version, name: name, path: p})
	}

	slices.SortFunc(files, func(a, b migrationFile) int {
		return cmp.Compare(a.version, b.version)
	})
	return files, nil
}

// appliedVersions は記録済みのバージョンを返す。
func appliedVersions(db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = struct{}{}
	}
	return applied, rows.Err()
}

// apply はSQLの実行とバージョンの記録を同じトランザクションで行う。
func (m migrationFile) apply(db *sql.DB, fsys fs.FS) error {
	content, err := fs.ReadFile(fsys, m.path)
	if err != nil {
		return fmt.Errorf("ファイル読み込みに失敗: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
		return fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	return tx.Commit()
}
