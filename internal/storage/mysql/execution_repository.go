package mysql

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// 执行状态。
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// maxMemoryRecords 是文件仓库在内存中保留的记录数。
const maxMemoryRecords = 512

// ExecutionRecord 表示一次动作执行的落库结构。
type ExecutionRecord struct {
	ID             int64  `json:"id"`
	CorrelationID  string `json:"correlation_id"`
	Action         string `json:"action"`
	Input          string `json:"input"`
	Output         string `json:"output"`
	Status         string `json:"status"`
	ErrorCode      string `json:"error_code,omitempty"`
	DurationMillis int64  `json:"duration_ms"`
	CreatedAt      int64  `json:"created_at"`
}

// ExecutionRepository 抽象执行记录的持久化接口。
type ExecutionRepository interface {
	Save(ctx context.Context, record *ExecutionRecord) error
	ListLatest(ctx context.Context, limit int) ([]ExecutionRecord, error)
}

// MemoryExecutionRepository 把记录追加写入本地 JSON lines 文件，重启后恢复。
type MemoryExecutionRepository struct {
	mu       sync.RWMutex
	dataFile string
	records  []ExecutionRecord
	nextID   int64
}

// NewMemoryExecutionRepository 创建文件仓库。
func NewMemoryExecutionRepository(dataDir string) (*MemoryExecutionRepository, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	repo := &MemoryExecutionRepository{dataFile: filepath.Join(dataDir, "executions.log"), nextID: 1}
	if err := repo.loadFromDisk(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Save 以追加写的方式记录执行结果，并分配自增 ID。
func (m *MemoryExecutionRepository) Save(_ context.Context, record *ExecutionRecord) error {
	if record == nil {
		return fmt.Errorf("执行记录不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *record
	stored.ID = m.nextID
	encoded, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("序列化执行记录失败: %w", err)
	}

	file, err := os.OpenFile(m.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开执行日志失败: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入执行日志失败: %w", err)
	}

	m.nextID++
	record.ID = stored.ID
	m.records = append([]ExecutionRecord{stored}, m.records...)
	if len(m.records) > maxMemoryRecords {
		m.records = m.records[:maxMemoryRecords]
	}
	return nil
}

// ListLatest 返回最近的执行记录，按写入时间倒序排列。
func (m *MemoryExecutionRepository) ListLatest(_ context.Context, limit int) ([]ExecutionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	results := make([]ExecutionRecord, limit)
	copy(results, m.records[:limit])
	return results, nil
}

func (m *MemoryExecutionRepository) loadFromDisk() error {
	file, err := os.OpenFile(m.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取执行日志失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var restored []ExecutionRecord
	for scanner.Scan() {
		var record ExecutionRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		if record.ID >= m.nextID {
			m.nextID = record.ID + 1
		}
		restored = append([]ExecutionRecord{record}, restored...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析执行日志失败: %w", err)
	}

	if len(restored) > maxMemoryRecords {
		restored = restored[:maxMemoryRecords]
	}
	m.records = restored
	return nil
}

// SQLExecutionRepository 使用 MySQL 存储执行记录。
type SQLExecutionRepository struct {
	db *sql.DB
}

// NewSQLExecutionRepository 建立连接池并执行嵌入的迁移。
func NewSQLExecutionRepository(ctx context.Context, cfg Config) (*SQLExecutionRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLExecutionRepository{db: db}, nil
}

const insertExecutionSQL = `INSERT INTO executions
    (correlation_id, action, input, output, status, error_code, duration_ms, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Save 将执行记录写入 MySQL。
func (s *SQLExecutionRepository) Save(ctx context.Context, record *ExecutionRecord) error {
	if record == nil {
		return fmt.Errorf("执行记录不能为空")
	}
	res, err := s.db.ExecContext(ctx, insertExecutionSQL,
		record.CorrelationID,
		record.Action,
		record.Input,
		record.Output,
		record.Status,
		record.ErrorCode,
		record.DurationMillis,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("写入 MySQL 失败: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

const listExecutionsSQL = `SELECT id, correlation_id, action, input, output, status, error_code, duration_ms, created_at
    FROM executions ORDER BY created_at DESC, id DESC LIMIT ?`

// ListLatest 查询最近的若干条执行记录。
func (s *SQLExecutionRepository) ListLatest(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, listExecutionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("查询执行记录失败: %w", err)
	}
	defer rows.Close()

	var records []ExecutionRecord
	for rows.Next() {
		var r ExecutionRecord
		if err := rows.Scan(&r.ID, &r.CorrelationID, &r.Action, &r.Input, &r.Output, &r.Status, &r.ErrorCode, &r.DurationMillis, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("解析执行记录失败: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历执行记录失败: %w", err)
	}
	return records, nil
}

// Close 关闭底层数据库连接。
func (s *SQLExecutionRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var (
	_ ExecutionRepository = (*MemoryExecutionRepository)(nil)
	_ ExecutionRepository = (*SQLExecutionRepository)(nil)
)
