package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/lib/pq"
)

// Postgres stores keys in a single kv table. Put is an upsert, so each key
// is transactional on its own; there are no multi-key transactions
// (concurrent writers to the same group are last-write-wins).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, storeError("数据库连接配置不合法", err)
	}
	if err := db.Ping(); err != nil {
		return nil, storeError("数据库连接失败", err)
	}
	s := &Postgres{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Postgres) Close() error { return s.db.Close() }

func (s *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeError("读取存储失败", err)
	}
	return value, true, nil
}

func (s *Postgres) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return storeError("写入存储失败", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, key)
	if err != nil {
		return storeError("删除存储键失败", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, prefix string) ([]string, error) {
	// LIKE treats _ and % as wildcards; key prefixes contain underscores.
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM kv WHERE key LIKE $1 ESCAPE '\' ORDER BY key
	`, likeEscape(prefix)+"%")
	if err != nil {
		return nil, storeError("列举存储键失败", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, storeError("列举存储键失败", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("列举存储键失败", err)
	}
	return keys, nil
}

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
