package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// 按顺序回放预设 SQL 交互的 database/sql 驱动，用于不依赖真实 MySQL 的测试。

type stepKind string

const (
	kindExec     stepKind = "exec"
	kindQuery    stepKind = "query"
	kindBegin    stepKind = "begin"
	kindCommit   stepKind = "commit"
	kindRollback stepKind = "rollback"
)

type step struct {
	kind stepKind
	// sql 为空时不比较语句内容。
	sql      string
	insertID int64
	affected int64
	columns  []string
	rows     [][]driver.Value
	err      error
}

func expectExec(sql string, insertID, affected int64) step {
	return step{kind: kindExec, sql: sql, insertID: insertID, affected: affected}
}

func expectQuery(sql string, columns []string, rows ...[]driver.Value) step {
	return step{kind: kindQuery, sql: sql, columns: columns, rows: rows}
}

func expectBegin() step    { return step{kind: kindBegin} }
func expectCommit() step   { return step{kind: kindCommit} }
func expectRollback() step { return step{kind: kindRollback} }

func (s step) failing(err error) step {
	s.err = err
	return s
}

type script struct {
	mu    sync.Mutex
	steps []step
	pos   int
}

var scriptSeq atomic.Int64

// openScript 注册一次性驱动并返回连接，测试结束时检查脚本是否全部回放。
func openScript(t *testing.T, steps ...step) *sql.DB {
	t.Helper()
	s := &script{steps: steps}
	name := fmt.Sprintf("scripted-mysql-%d", scriptSeq.Add(1))
	sql.Register(name, s)

	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open scripted db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pos != len(s.steps) {
			t.Errorf("scripted db: %d of %d steps replayed", s.pos, len(s.steps))
		}
	})
	return db
}

func (s *script) take(kind stepKind, query string) (step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.steps) {
		return step{}, fmt.Errorf("unexpected %s %q", kind, query)
	}
	next := s.steps[s.pos]
	if next.kind != kind {
		return step{}, fmt.Errorf("want %s, got %s %q", next.kind, kind, query)
	}
	if next.sql != "" && squash(next.sql) != squash(query) {
		return step{}, fmt.Errorf("want sql %q, got %q", squash(next.sql), squash(query))
	}
	s.pos++
	return next, next.err
}

func squash(query string) string { return strings.Join(strings.Fields(query), " ") }

func (s *script) Open(string) (driver.Conn, error) { return scriptConn{s}, nil }

type scriptConn struct{ s *script }

func (c scriptConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c scriptConn) Close() error { return nil }

func (c scriptConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c scriptConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if _, err := c.s.take(kindBegin, ""); err != nil {
		return nil, err
	}
	return scriptTx(c), nil
}

func (c scriptConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	st, err := c.s.take(kindExec, query)
	if err != nil {
		return nil, err
	}
	return scriptResult(st), nil
}

func (c scriptConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	st, err := c.s.take(kindQuery, query)
	if err != nil {
		return nil, err
	}
	return &scriptRows{columns: st.columns, rows: st.rows}, nil
}

type scriptTx scriptConn

func (t scriptTx) Commit() error {
	_, err := t.s.take(kindCommit, "")
	return err
}

func (t scriptTx) Rollback() error {
	_, err := t.s.take(kindRollback, "")
	return err
}

type scriptResult step

func (r scriptResult) LastInsertId() (int64, error) { return r.insertID, nil }
func (r scriptResult) RowsAffected() (int64, error) { return r.affected, nil }

type scriptRows struct {
	columns []string
	rows    [][]driver.Value
}

func (r *scriptRows) Columns() []string { return r.columns }
func (r *scriptRows) Close() error      { return nil }

func (r *scriptRows) Next(dest []driver.Value) error {
	if len(r.rows) == 0 {
		return io.EOF
	}
	copy(dest, r.rows[0])
	r.rows = r.rows[1:]
	return nil
}
