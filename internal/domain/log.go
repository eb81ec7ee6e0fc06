package domain

import "time"

// LogKind 标记日志条目对应的事件类别。
type LogKind string

const (
	LogKindInfo       LogKind = "info"
	LogKindSuccess    LogKind = "success"
	LogKindValidation LogKind = "validation"
	LogKindNotFound   LogKind = "not_found"
	LogKindStore      LogKind = "store"
	LogKindTransport  LogKind = "transport"
	LogKindRender     LogKind = "render"
)

// MessageLog 表示一条投递审计日志。
//
// MessageID 可以为空：与具体邮件无关的事件（如配置缺失）也会入库。
// 总条数受 maxLogHistoryLength 配置约束，超出时按时间升序淘汰最旧条目。
type MessageLog struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID *string   `json:"messageId,omitempty" gorm:"type:varchar(36);index"`
	Kind      LogKind   `json:"kind" gorm:"type:varchar(20);not null;default:info"`
	Details   string    `json:"details" gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}
