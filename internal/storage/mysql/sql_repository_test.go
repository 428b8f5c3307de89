package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

func TestSQLRepositoryRunMigrations(t *testing.T) {
	t.Parallel()

	ops := []scriptedOp{
		execOp(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`, scriptedResult{}),
		queryOp(`SELECT version FROM schema_migrations`, scriptedRows{columns: []string{"version"}}),
		beginOp(),
		execOp(executionsMigrationStatement(), scriptedResult{}),
		execOp(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, scriptedResult{rowsAffected: 1}),
		commitOp(),
	}
	db, drv := newScriptedDB(t, ops)
	defer drv.assertConsumed(t)
	defer db.Close()

	repo := &SQLExecutionRepository{db: db}
	if err := repo.runMigrations(context.Background()); err != nil {
		t.Fatalf("执行迁移失败: %v", err)
	}
}

func TestSQLRepositoryMigrationsSkipApplied(t *testing.T) {
	t.Parallel()

	ops := []scriptedOp{
		execOp(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`, scriptedResult{}),
		queryOp(`SELECT version FROM schema_migrations`, scriptedRows{
			columns: []string{"version"},
			values:  [][]driver.Value{{"0001"}},
		}),
	}
	db, drv := newScriptedDB(t, ops)
	defer drv.assertConsumed(t)
	defer db.Close()

	repo := &SQLExecutionRepository{db: db}
	if err := repo.runMigrations(context.Background()); err != nil {
		t.Fatalf("执行迁移失败: %v", err)
	}
}

func TestSQLRepositorySave(t *testing.T) {
	t.Parallel()

	ops := []scriptedOp{
		execOp(`INSERT INTO workflow_executions
        (execution_id, workflow_id, success, step_count, results, context, error, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, scriptedResult{rowsAffected: 1}),
	}
	db, drv := newScriptedDB(t, ops)
	defer drv.assertConsumed(t)
	defer db.Close()

	repo := &SQLExecutionRepository{db: db}
	err := repo.Save(context.Background(), ExecutionRecord{
		ExecutionID: "exec-1",
		WorkflowID:  "w1",
		Success:     true,
		StepCount:   2,
		CreatedAt:   1000,
	})
	if err != nil {
		t.Fatalf("保存记录失败: %v", err)
	}
}

func TestSQLRepositoryListLatest(t *testing.T) {
	t.Parallel()

	ops := []scriptedOp{
		queryOp(`SELECT execution_id, workflow_id, success, step_count, results, context, error, created_at
        FROM workflow_executions ORDER BY created_at DESC LIMIT ?`, scriptedRows{
			columns: []string{"execution_id", "workflow_id", "success", "step_count", "results", "context", "error", "created_at"},
			values: [][]driver.Value{
				{"exec-2", "w1", int64(1), int64(1), "[]", "{}", "", int64(2000)},
				{"exec-1", "w1", int64(0), int64(3), "[]", "{}", "boom", int64(1000)},
			},
		}),
	}
	db, drv := newScriptedDB(t, ops)
	defer drv.assertConsumed(t)
	defer db.Close()

	repo := &SQLExecutionRepository{db: db}
	records, err := repo.ListLatest(context.Background(), 10)
	if err != nil {
		t.Fatalf("查询记录失败: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("应返回两条记录: %d", len(records))
	}
	if records[0].ExecutionID != "exec-2" || !records[0].Success {
		t.Fatalf("第一条记录不符: %+v", records[0])
	}
	if records[1].Error != "boom" {
		t.Fatalf("第二条记录应携带错误: %+v", records[1])
	}
}

func executionsMigrationStatement() string {
	content, err := embeddedMigrations.ReadFile("0001_workflow_executions.sql")
	if err != nil {
		panic(fmt.Sprintf("读取迁移文件失败: %v", err))
	}
	statements := splitSQLStatements(string(content))
	if len(statements) == 0 {
		panic("迁移文件中没有可执行语句")
	}
	return statements[0]
}

type scriptedOpType int

const (
	opExec scriptedOpType = iota
	opQuery
	opBegin
	opCommit
	opRollback
)

type scriptedOp struct {
	typ    scriptedOpType
	query  string
	result scriptedResult
	rows   scriptedRows
	err    error
}

type scriptedResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r scriptedResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r scriptedResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type scriptedRows struct {
	columns []string
	values  [][]driver.Value
}

// scriptedDriver 按既定顺序回放数据库操作,顺序或语句不符即报错。
type scriptedDriver struct {
	ops []scriptedOp
	idx int32
}

var scriptedDriverSeq atomic.Int32

func newScriptedDB(t *testing.T, ops []scriptedOp) (*sql.DB, *scriptedDriver) {
	t.Helper()

	drv := &scriptedDriver{ops: ops}
	name := fmt.Sprintf("scripted-mysql-%d", scriptedDriverSeq.Add(1))
	sql.Register(name, drv)

	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("打开模拟数据库失败: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, drv
}

func execOp(query string, result scriptedResult) scriptedOp {
	return scriptedOp{typ: opExec, query: query, result: result}
}

func queryOp(query string, rows scriptedRows) scriptedOp {
	return scriptedOp{typ: opQuery, query: query, rows: rows}
}

func beginOp() scriptedOp { return scriptedOp{typ: opBegin} }

func commitOp() scriptedOp { return scriptedOp{typ: opCommit} }

func (d *scriptedDriver) assertConsumed(t *testing.T) {
	t.Helper()

	if int(atomic.LoadInt32(&d.idx)) != len(d.ops) {
		t.Fatalf("有操作未被消费: %d/%d", atomic.LoadInt32(&d.idx), len(d.ops))
	}
}

func (d *scriptedDriver) Open(string) (driver.Conn, error) {
	return &scriptedConn{driver: d}, nil
}

func (d *scriptedDriver) next(expected scriptedOpType, query string) (*scriptedOp, error) {
	idx := int(atomic.LoadInt32(&d.idx))
	if idx >= len(d.ops) {
		return nil, fmt.Errorf("多余的数据库操作: %v", expected)
	}
	op := &d.ops[idx]
	if op.typ != expected {
		return nil, fmt.Errorf("操作类型不符: 期望 %v 实际 %v", op.typ, expected)
	}
	atomic.AddInt32(&d.idx, 1)
	if op.query != "" && normalizeSQL(op.query) != normalizeSQL(query) {
		return nil, fmt.Errorf("语句不符: 期望 %q 实际 %q", normalizeSQL(op.query), normalizeSQL(query))
	}
	return op, nil
}

type scriptedConn struct {
	driver *scriptedDriver
}

func (c *scriptedConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c *scriptedConn) Close() error { return nil }

func (c *scriptedConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *scriptedConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	op, err := c.driver.next(opBegin, "")
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return &scriptedTx{driver: c.driver}, nil
}

func (c *scriptedConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	op, err := c.driver.next(opExec, query)
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return op.result, nil
}

func (c *scriptedConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	op, err := c.driver.next(opQuery, query)
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return &replayRows{columns: op.rows.columns, values: op.rows.values}, nil
}

func (c *scriptedConn) Ping(context.Context) error { return nil }

type scriptedTx struct {
	driver *scriptedDriver
}

func (t *scriptedTx) Commit() error {
	op, err := t.driver.next(opCommit, "")
	if err != nil {
		return err
	}
	return op.err
}

func (t *scriptedTx) Rollback() error {
	op, err := t.driver.next(opRollback, "")
	if err != nil {
		return err
	}
	return op.err
}

type replayRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *replayRows) Columns() []string { return r.columns }
func (r *replayRows) Close() error      { return nil }

func (r *replayRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

func normalizeSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
