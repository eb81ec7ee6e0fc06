package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/monitoring"
	"maildispatch/backend/internal/storage"
)

// MessagePayload 存信请求的逻辑内容。
type MessagePayload struct {
	AccountName  string                       `json:"account_name" binding:"required"`
	Subject      string                       `json:"subject" binding:"required"`
	ToRecipients []string                     `json:"to_recipients" binding:"required,min=1"`
	CcRecipients []string                     `json:"cc_recipients"`
	Attachments  []domain.AttachmentManifest  `json:"attachments"`
	HTMLBody     string                       `json:"html_body" binding:"required"`
	UseSignature bool                         `json:"use_signature"`
}

// MessageService 提供邮件存取的业务逻辑：内容指纹与幂等创建。
type MessageService struct {
	store   storage.Store
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewMessageService 创建邮件服务。
func NewMessageService(store storage.Store, logger *zap.Logger, metrics *monitoring.Metrics) *MessageService {
	return &MessageService{store: store, logger: logger, metrics: metrics}
}

// Fingerprint 计算载荷的内容指纹。
//
// 载荷字段折叠成嵌套 map 后 JSON 序列化（encoding/json 对 map 键
// 排序输出），对序列化结果取 sha256。键序无关、数组保序：逻辑
// 内容相同的两个载荷必然得到同一指纹。
func Fingerprint(payload *MessagePayload) string {
	attachments := make([]map[string]interface{}, 0, len(payload.Attachments))
	for _, attachment := range payload.Attachments {
		attachments = append(attachments, map[string]interface{}{
			"filename":      attachment.Filename,
			"cid":           attachment.CID,
			"content_bytes": attachment.ContentBytes,
		})
	}
	canonical := map[string]interface{}{
		"account_name":  payload.AccountName,
		"subject":       payload.Subject,
		"to_recipients": emptyIfNil(payload.ToRecipients),
		"cc_recipients": emptyIfNil(payload.CcRecipients),
		"attachments":   attachments,
		"html_body":     payload.HTMLBody,
		"use_signature": payload.UseSignature,
	}
	raw, _ := json.Marshal(canonical)
	digest := sha256.Sum256(raw)
	return hex.EncodeToString(digest[:])
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// CreateOrGet 幂等创建邮件。
//
// 指纹已存在时返回现有记录（created 为 false），不产生新行。
// 并发创建撞上唯一索引时按同样路径回读已提交的记录。
func (s *MessageService) CreateOrGet(payload *MessagePayload) (message *domain.Message, created bool, err error) {
	fingerprint := Fingerprint(payload)

	existing, err := s.store.GetMessageByFingerprint(fingerprint)
	if err == nil {
		s.logger.Debug("存信请求命中已有邮件",
			zap.String("message_id", existing.ID),
			zap.String("fingerprint", fingerprint),
		)
		s.metrics.RecordMessageDeduped()
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrMessageNotFound) {
		return nil, false, fmt.Errorf("查询邮件指纹失败: %w", err)
	}

	fresh := &domain.Message{
		ID:           uuid.NewString(),
		Fingerprint:  fingerprint,
		AccountName:  payload.AccountName,
		Subject:      payload.Subject,
		ToRecipients: payload.ToRecipients,
		CcRecipients: payload.CcRecipients,
		Attachments:  payload.Attachments,
		HTMLBody:     payload.HTMLBody,
		UseSignature: payload.UseSignature,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateMessage(fresh); err != nil {
		if errors.Is(err, storage.ErrDuplicateFingerprint) {
			// 并发请求抢先提交了同内容的邮件
			committed, readErr := s.store.GetMessageByFingerprint(fingerprint)
			if readErr != nil {
				return nil, false, fmt.Errorf("指纹冲突后回读失败: %w", readErr)
			}
			s.metrics.RecordMessageDeduped()
			return committed, false, nil
		}
		return nil, false, fmt.Errorf("保存邮件失败: %w", err)
	}

	s.logger.Info("新邮件已入库",
		zap.String("message_id", fresh.ID),
		zap.String("account", fresh.AccountName),
	)
	s.metrics.RecordMessageStored()
	return fresh, true, nil
}

// Get 按 ID 读取邮件。
func (s *MessageService) Get(id string) (*domain.Message, error) {
	return s.store.GetMessage(id)
}

// List 按创建时间倒序分页列出邮件。
func (s *MessageService) List(limit, offset int) ([]domain.Message, error) {
	return s.store.ListMessages(limit, offset)
}
