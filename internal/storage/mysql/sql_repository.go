package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	xerrors "APE-Core/internal/errors"

	_ "github.com/go-sql-driver/mysql"
)

// Config 描述 MySQL 连接参数。
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// SQLExecutionRepository 使用 MySQL 保存执行历史。
type SQLExecutionRepository struct {
	db *sql.DB
}

// NewSQLExecutionRepository 建立连接并确保表结构存在。
func NewSQLExecutionRepository(ctx context.Context, cfg Config) (*SQLExecutionRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := &SQLExecutionRepository{db: db}
	if err := repo.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func openDatabase(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}
	return db, nil
}

// Save 插入一条执行记录。
func (r *SQLExecutionRepository) Save(ctx context.Context, record ExecutionRecord) error {
	if strings.TrimSpace(record.ExecutionID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "执行 ID 不能为空")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO workflow_executions
        (execution_id, workflow_id, success, step_count, results, context, error, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, stmt,
		record.ExecutionID,
		record.WorkflowID,
		record.Success,
		record.StepCount,
		record.Results,
		record.Context,
		record.Error,
		record.CreatedAt,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入执行记录失败")
	}
	return nil
}

// ListLatest 返回最近的执行记录，按时间倒序排列。
func (r *SQLExecutionRepository) ListLatest(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	const stmt = `SELECT execution_id, workflow_id, success, step_count, results, context, error, created_at
        FROM workflow_executions ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询执行记录失败")
	}
	defer rows.Close()

	var records []ExecutionRecord
	for rows.Next() {
		var record ExecutionRecord
		var results, contextJSON, errText sql.NullString
		if err := rows.Scan(
			&record.ExecutionID,
			&record.WorkflowID,
			&record.Success,
			&record.StepCount,
			&results,
			&contextJSON,
			&errText,
			&record.CreatedAt,
		); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "扫描执行记录失败")
		}
		record.Results = results.String
		record.Context = contextJSON.String
		record.Error = errText.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历执行记录失败")
	}
	return records, nil
}

// Close 关闭数据库连接。
func (r *SQLExecutionRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

var _ ExecutionRepository = (*SQLExecutionRepository)(nil)
