// Package eventstoredb はイベントストアのSQLiteアクセス層を提供する。
package eventstoredb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TimeLayout はcreated_at列の保存形式。固定長のため文字列比較で時刻順になる。
const TimeLayout = "2006-01-02T15:04:05.000Z"

// DBTX は*sql.DBと*sql.Txの共通インターフェース。
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New は新しいQueriesを生成する。
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries はeventsテーブルへのクエリを実行する。
type Queries struct {
	db DBTX
}

// WithTx はトランザクション内でクエリを実行するQueriesを返す。
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// FormatTime は時刻をcreated_at列の保存形式に変換する。
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// parseTime はcreated_at列の値を時刻に変換する。
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("created_atの解析に失敗: %w", err)
	}
	return t, nil
}
