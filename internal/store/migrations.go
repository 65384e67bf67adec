package store

import "fmt"

var migrations = []string{
	`CREATE TABLE kv (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	)`,
}

// migrate applies the migrations that have not run yet. Applied count is
// tracked in a single-row system table.
func (s *Postgres) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS system (
		  latest_migration INTEGER NOT NULL
		)
	`)
	if err != nil {
		return storeError("初始化迁移记录失败", err)
	}

	var applied int
	row := s.db.QueryRow(`SELECT latest_migration FROM system LIMIT 1`)
	if err := row.Scan(&applied); err != nil {
		applied = 0
		if _, err := s.db.Exec(`INSERT INTO system (latest_migration) VALUES (0)`); err != nil {
			return storeError("初始化迁移记录失败", err)
		}
	}
	if applied > len(migrations) {
		return storeError(fmt.Sprintf("迁移记录超前：已应用 %d，代码只有 %d", applied, len(migrations)), nil)
	}

	for i := applied; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return storeError(fmt.Sprintf("迁移 %d 执行失败", i+1), err)
		}
		if _, err := s.db.Exec(`UPDATE system SET latest_migration = $1`, i+1); err != nil {
			return storeError("更新迁移记录失败", err)
		}
	}
	return nil
}
