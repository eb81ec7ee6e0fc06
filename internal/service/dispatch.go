package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/mailer"
	"maildispatch/backend/internal/monitoring"
	"maildispatch/backend/internal/signature"
	"maildispatch/backend/internal/storage"
)

// DispatchService 投递协调器。
//
// 按固定顺序完成一次投递：取邮件、取账户、按需拼接签名、
// 校验附件、交给传输层，并把每一步的结果写入投递日志。
// 协调器本身不落任何中间状态，失败的投递不改动邮件记录，
// 是否重新投递由上层决定。
type DispatchService struct {
	store      storage.Store
	accounts   *AccountService
	signatures *SignatureService
	logs       *LogService
	sender     mailer.Sender
	logger     *zap.Logger
	metrics    *monitoring.Metrics
}

// NewDispatchService 创建投递协调器。
func NewDispatchService(
	store storage.Store,
	accounts *AccountService,
	signatures *SignatureService,
	logs *LogService,
	sender mailer.Sender,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *DispatchService {
	return &DispatchService{
		store:      store,
		accounts:   accounts,
		signatures: signatures,
		logs:       logs,
		sender:     sender,
		logger:     logger,
		metrics:    metrics,
	}
}

// Dispatch 投递一封已入库的邮件。
//
// 两种终态：成功或失败，结果连同错误类别写入投递日志。
// 同步调用方通过返回值观察结果；异步调用方只看日志。
func (s *DispatchService) Dispatch(ctx context.Context, messageID string) error {
	start := time.Now()
	err := s.dispatch(ctx, messageID)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.RecordDispatch(outcome, time.Since(start))
	return err
}

func (s *DispatchService) dispatch(ctx context.Context, messageID string) error {
	message, err := s.store.GetMessage(messageID)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			s.logs.Append(&messageID, domain.LogKindNotFound,
				fmt.Sprintf("邮件 %s 不存在", messageID))
			return err
		}
		s.logs.Append(&messageID, domain.LogKindStore,
			fmt.Sprintf("读取邮件失败: %v", err))
		return err
	}

	account, err := s.store.GetAccountByName(message.AccountName)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			s.logs.Append(&message.ID, domain.LogKindNotFound,
				fmt.Sprintf("发信账户 %s 不存在", message.AccountName))
			return err
		}
		s.logs.Append(&message.ID, domain.LogKindStore,
			fmt.Sprintf("读取发信账户失败: %v", err))
		return err
	}

	password, err := s.accounts.OpenPassword(account)
	if err != nil {
		s.logs.Append(&message.ID, domain.LogKindStore,
			fmt.Sprintf("账户口令不可用: %v", err))
		return err
	}

	body := message.HTMLBody
	attachments := make([]domain.AttachmentManifest, 0,
		len(message.Attachments))
	attachments = append(attachments, message.Attachments...)

	if message.UseSignature {
		bundle, err := s.signatures.EnabledBundle(ctx, account)
		if err != nil {
			kind := domain.LogKindStore
			if errors.Is(err, signature.ErrSignatureNotFound) {
				kind = domain.LogKindNotFound
			}
			s.logs.Append(&message.ID, kind,
				fmt.Sprintf("解析账户签名失败: %v", err))
			return err
		}
		if bundle != nil {
			// 签名接在正文之后，签名附件排在邮件自身附件之后
			body = body + "<br><br>" + bundle.HTML
			attachments = append(attachments, bundle.Attachments...)
		} else {
			s.logs.Append(&message.ID, domain.LogKindInfo,
				fmt.Sprintf("账户 %s 未启用签名，按无签名投递", account.AccountName))
		}
	}

	for _, attachment := range attachments {
		if err := attachment.Validate(); err != nil {
			s.logs.Append(&message.ID, domain.LogKindValidation,
				fmt.Sprintf("附件 %s 校验失败: %v", attachment.Filename, err))
			return err
		}
	}

	outgoing := &mailer.Outgoing{
		Subject:     message.Subject,
		HTMLBody:    body,
		To:          message.ToRecipients,
		Cc:          message.CcRecipients,
		Attachments: attachments,
	}
	if err := s.sender.Send(ctx, account, password, outgoing); err != nil {
		s.logs.Append(&message.ID, domain.LogKindTransport,
			fmt.Sprintf("邮件传输失败: %v", err))
		s.logger.Error("邮件传输失败",
			zap.String("message_id", message.ID),
			zap.String("account", account.AccountName),
			zap.Error(err),
		)
		return fmt.Errorf("投递邮件 %s 失败: %w", message.ID, err)
	}

	s.logs.Append(&message.ID, domain.LogKindSuccess, "邮件投递成功")
	s.logger.Info("邮件投递成功",
		zap.String("message_id", message.ID),
		zap.String("account", account.AccountName),
		zap.Int("attachments", len(attachments)),
	)
	return nil
}
