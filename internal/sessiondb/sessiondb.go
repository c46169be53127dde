// Package sessiondb 用 SQLite 记录每一次采集会话
package sessiondb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Hara602/tila/internal/model"
	_ "modernc.org/sqlite"
)

// Index 会话索引
type Index struct {
	db *sql.DB
}

// Session 一次采集
type Session struct {
	ID          int64
	LogPath     string
	Device      string
	DeviceIDs   []model.DeviceID
	StartedAt   time.Time
	EndedAt     time.Time // 未结束时为零值
	Records     int
	Bytes       int64
	Termination string // "completed", "interrupted", "error"
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	log_path TEXT NOT NULL,
	device TEXT NOT NULL,
	device_ids TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	records INTEGER NOT NULL DEFAULT 0,
	bytes INTEGER NOT NULL DEFAULT 0,
	termination TEXT NOT NULL DEFAULT ''
);
`

// 删除旧日志后同一个文件名会被再次分配, 所以 log_path 不唯一
const logPathIndex = `CREATE INDEX IF NOT EXISTS sessions_log_path ON sessions(log_path);`

// Open 打开 (必要时创建) 索引数据库并建表
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite 单写者
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{schema, logPathIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	return &Index{db: db}, nil
}

func (x *Index) Close() error {
	return x.db.Close()
}

// Begin 记录一次会话开始, 返回会话 id
func (x *Index) Begin(s Session) (int64, error) {
	res, err := x.db.Exec(
		"INSERT INTO sessions(log_path, device, device_ids, started_at) VALUES (?, ?, ?, ?)",
		s.LogPath, s.Device, joinIDs(s.DeviceIDs), s.StartedAt.UnixMicro(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return res.LastInsertId()
}

// Finish 写入结束时间和统计
func (x *Index) Finish(id int64, endedAt time.Time, records int, bytes int64, termination string) error {
	res, err := x.db.Exec(
		"UPDATE sessions SET ended_at = ?, records = ?, bytes = ?, termination = ? WHERE id = ?",
		endedAt.UnixMicro(), records, bytes, termination, id,
	)
	if err != nil {
		return fmt.Errorf("update session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update session %d: no such session", id)
	}
	return nil
}

// List 按开始时间倒序返回最近的会话, limit <= 0 表示全部
func (x *Index) List(limit int) ([]Session, error) {
	query := "SELECT id, log_path, device, device_ids, started_at, ended_at, records, bytes, termination FROM sessions ORDER BY started_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := x.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s       Session
			ids     string
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.LogPath, &s.Device, &ids, &started, &ended, &s.Records, &s.Bytes, &s.Termination); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.StartedAt = time.UnixMicro(started)
		if ended.Valid {
			s.EndedAt = time.UnixMicro(ended.Int64)
		}
		if s.DeviceIDs, err = splitIDs(ids); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func joinIDs(ids []model.DeviceID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]model.DeviceID, error) {
	if s == "" {
		return nil, nil
	}
	var ids []model.DeviceID
	for _, part := range strings.Split(s, ",") {
		var n uint8
		if _, err := fmt.Sscan(part, &n); err != nil {
			return nil, fmt.Errorf("corrupt device ids %q: %w", s, err)
		}
		ids = append(ids, model.DeviceID(n))
	}
	return ids, nil
}
