package service

import (
	"time"

	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/monitoring"
	"maildispatch/backend/internal/storage"
)

// LogService 提供投递审计日志的业务逻辑。
type LogService struct {
	store   storage.Store
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewLogService 创建日志服务。
func NewLogService(store storage.Store, logger *zap.Logger, metrics *monitoring.Metrics) *LogService {
	return &LogService{store: store, logger: logger, metrics: metrics}
}

// Append 追加一条日志。messageID 为 nil 表示与具体邮件无关的事件。
//
// 日志是尽力而为的旁路：写入失败只记录到运行日志，不打断调用方。
func (s *LogService) Append(messageID *string, kind domain.LogKind, details string) {
	entry := &domain.MessageLog{
		MessageID: messageID,
		Kind:      kind,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendLog(entry); err != nil {
		s.logger.Error("写入投递日志失败",
			zap.String("kind", string(kind)),
			zap.String("details", details),
			zap.Error(err),
		)
		s.metrics.RecordError("log_append", "logs")
		return
	}
	s.metrics.RecordLogAppended()
}

// List 返回跳过 offset 条最新日志后的 window 条，按时间升序。
func (s *LogService) List(window, offset int) ([]domain.MessageLog, error) {
	return s.store.ListLogs(window, offset)
}

// ForMessage 列出某封邮件关联的全部日志。
func (s *LogService) ForMessage(messageID string) ([]domain.MessageLog, error) {
	return s.store.ListLogsByMessageID(messageID)
}

// Count 返回日志总条数。
func (s *LogService) Count() (int64, error) {
	return s.store.CountLogs()
}
