package eventstore

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/nao1215/webconf/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// initSchema はSQLiteデータベースにマイグレーションを適用する。
// 適用済みのマイグレーションはスキップするため、何度呼び出してもよい。
func initSchema(db *sql.DB) error {
	if err := migration.Run(db, migrationsFS, "migrations"); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
