package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"maildispatch/backend/internal/config"
	"maildispatch/backend/internal/domain"
)

// ErrTransport 外部邮件传输失败。
var ErrTransport = errors.New("mail transport failed")

// Outgoing 组装完毕、待交给传输层的邮件。
type Outgoing struct {
	Subject     string
	HTMLBody    string
	To          []string
	Cc          []string
	Attachments []domain.AttachmentManifest
}

// Sender 外部投递能力。
type Sender interface {
	Send(ctx context.Context, account *domain.RegisteredAccount, password string, out *Outgoing) error
}

// SMTPSender 基于 gomail 的 SMTP 投递实现。
//
// 每个账户维护一条复用的 SMTP 会话并附带速率限制，
// 会话的创建与使用由 SessionPool 按账户名串行化。
type SMTPSender struct {
	host    string
	port    int
	timeout time.Duration
	pool    *SessionPool
	logger  *zap.Logger
}

// NewSMTPSender 创建 SMTP 投递器。
func NewSMTPSender(cfg *config.MailerConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		host:    cfg.SMTPHost,
		port:    cfg.SMTPPort,
		timeout: cfg.SendTimeout,
		pool:    NewSessionPool(cfg.RatePerMin),
		logger:  logger,
	}
}

// Send 投递一封邮件。
//
// 先按账户限速等待，再持有该账户的会话锁完成发送；
// 发送失败时丢弃会话，下次调用重新拨号。
func (s *SMTPSender) Send(ctx context.Context, account *domain.RegisteredAccount, password string, out *Outgoing) error {
	// 单次投递的总时限，限速等待超过时限时直接失败而不是无限排队
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sess := s.pool.acquire(account.AccountName)

	if err := sess.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closer == nil {
		dialer := gomail.NewDialer(s.host, s.port, account.Email, password)
		closer, err := dialer.Dial()
		if err != nil {
			return fmt.Errorf("%w: dial: %v", ErrTransport, err)
		}
		sess.closer = closer
		s.logger.Debug("已建立SMTP会话",
			zap.String("account", account.AccountName),
			zap.String("host", s.host),
		)
	}

	message, err := buildMessage(account, out)
	if err != nil {
		return err
	}
	if err := gomail.Send(sess.closer, message); err != nil {
		// 会话可能已被服务端断开，丢弃后由下次发送重建
		_ = sess.closer.Close()
		sess.closer = nil
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Close 关闭全部打开的 SMTP 会话。
func (s *SMTPSender) Close() {
	s.pool.CloseAll()
}

// buildMessage 把 Outgoing 组装为 gomail 消息。
//
// 带 cid 的附件以内嵌资源挂载并携带 Content-ID 头，
// 其余按普通附件挂载。附件内容必须是合法 base64。
func buildMessage(account *domain.RegisteredAccount, out *Outgoing) (*gomail.Message, error) {
	message := gomail.NewMessage()
	message.SetAddressHeader("From", account.Email, account.AccountName)
	message.SetHeader("To", out.To...)
	if len(out.Cc) > 0 {
		message.SetHeader("Cc", out.Cc...)
	}
	message.SetHeader("Subject", out.Subject)
	message.SetBody("text/html", out.HTMLBody)

	for _, attachment := range out.Attachments {
		content, err := attachment.DecodedContent()
		if err != nil {
			return nil, err
		}
		writeContent := gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		})
		if attachment.CID != "" {
			message.Embed(attachment.Filename, writeContent,
				gomail.SetHeader(map[string][]string{
					"Content-ID": {"<" + attachment.CID + ">"},
				}))
		} else {
			message.Attach(attachment.Filename, writeContent)
		}
	}
	return message, nil
}
