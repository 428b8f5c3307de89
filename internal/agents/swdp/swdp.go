// Package swdp 实现软件开发平台(SWDP)数据库的执行者适配器,
// 提供只读查询与表结构探查能力。
package swdp

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"APE-Core/internal/agent"
	"APE-Core/internal/agents"
	xerrors "APE-Core/internal/errors"
)

// Config 描述 SWDP 数据库的连接参数。
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Agent 通过 MySQL 连接处理数据查询操作。所有入口都限制为只读。
type Agent struct {
	db *sql.DB
}

// identPattern 限定表名与列名只允许常规标识符字符。
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New 创建 SWDP 执行者并验证连接。
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "SWDP DSN 不能为空")
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接 SWDP 数据库失败")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "无法连接到 SWDP 数据库")
	}
	return &Agent{db: db}, nil
}

// Capabilities 返回支持的操作列表。
func (a *Agent) Capabilities() []string {
	return []string{
		"execute_query",
		"get_table_schema",
		"get_full_schema",
		"get_table_data",
		"find_related_data",
	}
}

// Process 按 action 分发请求。
func (a *Agent) Process(ctx context.Context, req agent.Request) agent.Response {
	switch req.Action {
	case "execute_query":
		return a.executeQuery(ctx, req.Params)
	case "get_table_schema":
		return a.getTableSchema(ctx, req.Params)
	case "get_full_schema":
		return a.getFullSchema(ctx)
	case "get_table_data":
		return a.getTableData(ctx, req.Params)
	case "find_related_data":
		return a.findRelatedData(ctx, req.Params)
	default:
		return agent.Fail("unsupported action: %s", req.Action)
	}
}

// executeQuery 执行任意 SELECT 查询。其他语句一律拒绝。
func (a *Agent) executeQuery(ctx context.Context, params map[string]any) agent.Response {
	query := strings.TrimSpace(agents.StringParam(params, "query"))
	if query == "" {
		return agent.Fail("query is required")
	}
	if !strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		return agent.Fail("only SELECT queries are allowed")
	}
	if strings.Contains(query, ";") {
		return agent.Fail("multiple statements are not allowed")
	}
	return a.queryRows(ctx, query)
}

func (a *Agent) getTableSchema(ctx context.Context, params map[string]any) agent.Response {
	table := agents.StringParam(params, "table")
	if !identPattern.MatchString(table) {
		return agent.Fail("invalid table name")
	}
	const stmt = `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY, COLUMN_DEFAULT
        FROM information_schema.COLUMNS
        WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
        ORDER BY ORDINAL_POSITION`
	return a.queryRows(ctx, stmt, table)
}

func (a *Agent) getFullSchema(ctx context.Context) agent.Response {
	const stmt = `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_KEY
        FROM information_schema.COLUMNS
        WHERE TABLE_SCHEMA = DATABASE()
        ORDER BY TABLE_NAME, ORDINAL_POSITION`
	return a.queryRows(ctx, stmt)
}

func (a *Agent) getTableData(ctx context.Context, params map[string]any) agent.Response {
	table := agents.StringParam(params, "table")
	if !identPattern.MatchString(table) {
		return agent.Fail("invalid table name")
	}
	limit := agents.IntParam(params, "limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return a.queryRows(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT ?", table), limit)
}

func (a *Agent) findRelatedData(ctx context.Context, params map[string]any) agent.Response {
	table := agents.StringParam(params, "table")
	column := agents.StringParam(params, "column")
	if !identPattern.MatchString(table) || !identPattern.MatchString(column) {
		return agent.Fail("invalid table or column name")
	}
	value := params["value"]
	if value == nil {
		return agent.Fail("value is required")
	}
	return a.queryRows(ctx, fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 100", table, column), value)
}

// queryRows 执行查询并把结果转换为列名到值的映射列表。
func (a *Agent) queryRows(ctx context.Context, query string, args ...any) agent.Response {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return agent.Fail("query failed: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return agent.Fail("read columns: %v", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return agent.Fail("scan row: %v", err)
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if raw, ok := values[i].([]byte); ok {
				row[column] = string(raw)
			} else {
				row[column] = values[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return agent.Fail("iterate rows: %v", err)
	}
	return agent.Succeed(map[string]any{"rows": results, "count": len(results)})
}

// Close 关闭数据库连接。
func (a *Agent) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

var _ agent.Agent = (*Agent)(nil)
