package mysql

import (
	"cmp"
	"context"
	"database/sql"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"BinkAgent-Bridge/deploy/migrations"
	xerrors "BinkAgent-Bridge/internal/errors"
)

var embeddedMigrations fs.FS = migrations.Files

const createMigrationsTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`

// migration 是一个 SQL 文件，文件名前缀（下划线之前）为版本号。
type migration struct {
	version    string
	file       string
	statements []string
}

// migrator 把嵌入的 SQL 文件按版本应用到数据库。
type migrator struct {
	db    *sql.DB
	files fs.FS
	now   func() time.Time
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	m := &migrator{db: db, files: embeddedMigrations, now: time.Now}
	return m.up(ctx)
}

// up 执行所有未应用的迁移，每个文件一个事务。
func (m *migrator) up(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createMigrationsTableSQL); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "创建 schema_migrations 表失败")
	}
	pending, err := m.pending(ctx)
	if err != nil {
		return err
	}
	for _, mig := range pending {
		if err := m.apply(ctx, mig); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrator) pending(ctx context.Context) ([]migration, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询 schema_migrations 失败")
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析 schema_migrations 失败")
		}
		done[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历 schema_migrations 失败")
	}

	all, err := readMigrations(m.files)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(mig migration) bool { return done[mig.version] }), nil
}

func (m *migrator) apply(ctx context.Context, mig migration) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "开启迁移事务失败")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range mig.statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "执行迁移 "+mig.file+" 失败")
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		mig.version, m.now().Unix()); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "记录迁移版本失败")
	}
	if err = tx.Commit(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "提交迁移事务失败")
	}
	return nil
}

// readMigrations 读取根目录下的 .sql 文件并按版本排序，空文件被忽略。
func readMigrations(files fs.FS) ([]migration, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取迁移目录失败")
	}
	var out []migration
	for _, name := range names {
		content, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取迁移文件 "+name+" 失败")
		}
		stmts := splitSQLStatements(string(content))
		if len(stmts) == 0 {
			continue
		}
		out = append(out, migration{version: migrationVersion(name), file: name, statements: stmts})
	}
	slices.SortFunc(out, func(a, b migration) int {
		return cmp.Or(cmp.Compare(a.version, b.version), cmp.Compare(a.file, b.file))
	})
	return out, nil
}

// splitSQLStatements 按分号拆分语句，并去掉 "--" 注释行。
func splitSQLStatements(content string) []string {
	var b strings.Builder
	for line := range strings.Lines(content) {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
	}
	var out []string
	for stmt := range strings.SplitSeq(b.String(), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func migrationVersion(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	version, _, _ := strings.Cut(base, "_")
	return version
}
