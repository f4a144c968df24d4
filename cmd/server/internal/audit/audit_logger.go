package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditAction 审计日志操作类型
type AuditAction string

const (
	ActionCreateMeeting  AuditAction = "create_meeting"
	ActionIssueSignature AuditAction = "issue_signature"
)

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
	defaultMaxAgeDays = 30
)

// AuditEntry 审计日志条目，不包含任何凭据或 token
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	// RequestID 对应 X-Request-ID
	RequestID string      `json:"request_id,omitempty"`
	Action    AuditAction `json:"action"`
	// ResourceID 为 meeting id 或 meeting number
	ResourceID string `json:"resource_id,omitempty"`
	Result     string `json:"result"`
	ErrorCode  string `json:"error_code,omitempty"`
	Details    string `json:"details,omitempty"`
	SourceIP   string `json:"source_ip,omitempty"`
}

// AuditLogger 审计日志记录器接口
type AuditLogger interface {
	// Log 记录一条审计日志
	Log(entry AuditEntry) error
}

// FileAuditLogger 基于 lumberjack 的滚动 JSONL 审计日志
type FileAuditLogger struct {
	w   io.WriteCloser
	now func() time.Time
	mu  sync.Mutex
}

// NewFileAuditLogger 创建文件审计日志记录器
// 按大小滚动，保留 10 个备份、30 天，旧文件压缩
func NewFileAuditLogger(path string) *FileAuditLogger {
	return newWriterAuditLogger(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
		Compress:   true,
	})
}

func newWriterAuditLogger(w io.WriteCloser) *FileAuditLogger {
	return &FileAuditLogger{w: w, now: time.Now}
}

// Log 序列化为一行 JSON 并追加写入
func (f *FileAuditLogger) Log(entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = f.now().UTC()
	}
	if entry.Result == "" {
		entry.Result = ResultSuccess
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Close 关闭底层文件
func (f *FileAuditLogger) Close() error {
	return f.w.Close()
}

// NopAuditLogger AUDIT_LOG_PATH 为空时使用，丢弃所有记录
type NopAuditLogger struct{}

// Log 丢弃记录
func (NopAuditLogger) Log(AuditEntry) error { return nil }

// New 根据路径选择实现：空路径返回 NopAuditLogger
func New(path string) AuditLogger {
	if path == "" {
		return NopAuditLogger{}
	}
	return NewFileAuditLogger(path)
}

// Close 关闭可关闭的审计日志实现，NopAuditLogger 直接返回
func Close(l AuditLogger) error {
	if c, ok := l.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
