package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/mailer"
	"maildispatch/backend/internal/secret"
	"maildispatch/backend/internal/storage"
	"maildispatch/backend/internal/storage/memory"
)

type dispatchFixture struct {
	store    *memory.Store
	sender   *fakeSender
	resolver *fakeResolver
	svc      *DispatchService
	logs     *LogService
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	store := memory.NewStore()
	keeper, err := secret.NewKeeper(nil)
	require.NoError(t, err)

	accounts := NewAccountService(store, keeper, loggerForTest())
	resolver := &fakeResolver{bundles: map[string]domain.SignatureBundle{}}
	signatures := NewSignatureService(store, resolver, nil, time.Minute, loggerForTest(), metricsForTest())
	logs := NewLogService(store, loggerForTest(), metricsForTest())
	sender := &fakeSender{}

	return &dispatchFixture{
		store:    store,
		sender:   sender,
		resolver: resolver,
		svc: NewDispatchService(store, accounts, signatures, logs,
			sender, loggerForTest(), metricsForTest()),
		logs: logs,
	}
}

func (f *dispatchFixture) seedAccount(t *testing.T) *domain.RegisteredAccount {
	t.Helper()
	account := &domain.RegisteredAccount{
		AccountName: "ops",
		Email:       "ops@example.com",
		Password:    "p@ss",
	}
	require.NoError(t, f.store.CreateAccount(account))
	return account
}

func (f *dispatchFixture) seedMessage(t *testing.T, mutate func(*domain.Message)) *domain.Message {
	t.Helper()
	message := &domain.Message{
		ID:           "m1",
		Fingerprint:  "fp-m1",
		AccountName:  "ops",
		Subject:      "通知",
		ToRecipients: []string{"a@example.com"},
		HTMLBody:     "<p>正文</p>",
		CreatedAt:    time.Now().UTC(),
	}
	if mutate != nil {
		mutate(message)
	}
	require.NoError(t, f.store.CreateMessage(message))
	return message
}

func lastLogKind(t *testing.T, logs *LogService, messageID string) domain.LogKind {
	t.Helper()
	entries, err := logs.ForMessage(messageID)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	return entries[len(entries)-1].Kind
}

func TestDispatchService_Dispatch(t *testing.T) {
	t.Run("投递成功并记录日志", func(t *testing.T) {
		f := newDispatchFixture(t)
		f.seedAccount(t)
		message := f.seedMessage(t, nil)

		require.NoError(t, f.svc.Dispatch(context.Background(), message.ID))
		assert.Equal(t, 1, f.sender.sentCount())
		assert.Equal(t, domain.LogKindSuccess, lastLogKind(t, f.logs, message.ID))
	})

	t.Run("邮件不存在时投递失败并记录", func(t *testing.T) {
		f := newDispatchFixture(t)
		err := f.svc.Dispatch(context.Background(), "ghost")
		assert.ErrorIs(t, err, storage.ErrMessageNotFound)
		assert.Equal(t, 0, f.sender.sentCount())
		assert.Equal(t, domain.LogKindNotFound, lastLogKind(t, f.logs, "ghost"))
	})

	t.Run("账户不存在时投递失败", func(t *testing.T) {
		f := newDispatchFixture(t)
		message := f.seedMessage(t, nil)

		err := f.svc.Dispatch(context.Background(), message.ID)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
		assert.Equal(t, 0, f.sender.sentCount())
		assert.Equal(t, domain.LogKindNotFound, lastLogKind(t, f.logs, message.ID))
	})

	t.Run("附件校验失败时不调用传输层", func(t *testing.T) {
		f := newDispatchFixture(t)
		f.seedAccount(t)
		message := f.seedMessage(t, func(m *domain.Message) {
			m.Attachments = []domain.AttachmentManifest{{Filename: "no-extension"}}
		})

		err := f.svc.Dispatch(context.Background(), message.ID)
		assert.ErrorIs(t, err, domain.ErrFilenameExtension)
		assert.Equal(t, 0, f.sender.sentCount())
		assert.Equal(t, domain.LogKindValidation, lastLogKind(t, f.logs, message.ID))
	})

	t.Run("签名附件同样参与校验", func(t *testing.T) {
		f := newDispatchFixture(t)
		account := f.seedAccount(t)
		f.resolver.bundles["Sig1"] = domain.SignatureBundle{
			HTML:        "<p>签名</p>",
			Attachments: []domain.AttachmentManifest{{Filename: "doc.pdf", CID: "doc.pdf"}},
		}
		_, err := f.store.AttachSignature(account.ID, "Sig1")
		require.NoError(t, err)
		require.NoError(t, f.store.EnableSignature(account.ID, "Sig1"))

		message := f.seedMessage(t, func(m *domain.Message) { m.UseSignature = true })

		err = f.svc.Dispatch(context.Background(), message.ID)
		assert.ErrorIs(t, err, domain.ErrInlineNotImage)
		assert.Equal(t, 0, f.sender.sentCount())
	})

	t.Run("签名拼接在正文与附件之后", func(t *testing.T) {
		f := newDispatchFixture(t)
		account := f.seedAccount(t)
		f.resolver.bundles["Sig1"] = domain.SignatureBundle{
			HTML: `<img src="cid:logo.png">`,
			Attachments: []domain.AttachmentManifest{
				{Filename: "logo.png", CID: "logo.png", ContentBytes: "cG5n"},
			},
		}
		_, err := f.store.AttachSignature(account.ID, "Sig1")
		require.NoError(t, err)
		require.NoError(t, f.store.EnableSignature(account.ID, "Sig1"))

		message := f.seedMessage(t, func(m *domain.Message) {
			m.UseSignature = true
			m.Attachments = []domain.AttachmentManifest{
				{Filename: "report.pdf", ContentBytes: "cGRm"},
			}
		})

		require.NoError(t, f.svc.Dispatch(context.Background(), message.ID))
		require.Equal(t, 1, f.sender.sentCount())
		sent := f.sender.sent[0]
		assert.Equal(t, `<p>正文</p><br><br><img src="cid:logo.png">`, sent.HTMLBody)
		require.Len(t, sent.Attachments, 2)
		assert.Equal(t, "report.pdf", sent.Attachments[0].Filename)
		assert.Equal(t, "logo.png", sent.Attachments[1].Filename)
	})

	t.Run("请求签名但账户没有启用签名时照常发送", func(t *testing.T) {
		f := newDispatchFixture(t)
		f.seedAccount(t)
		message := f.seedMessage(t, func(m *domain.Message) { m.UseSignature = true })

		require.NoError(t, f.svc.Dispatch(context.Background(), message.ID))
		require.Equal(t, 1, f.sender.sentCount())
		assert.Equal(t, "<p>正文</p>", f.sender.sent[0].HTMLBody)
		assert.Empty(t, f.sender.sent[0].Attachments)

		// 无启用签名的投递留下一条 info 日志，随后才是成功日志
		entries, err := f.logs.ForMessage(message.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, domain.LogKindInfo, entries[0].Kind)
		assert.Contains(t, entries[0].Details, "未启用签名")
		assert.Equal(t, domain.LogKindSuccess, entries[1].Kind)
	})

	t.Run("传输失败时记录transport日志", func(t *testing.T) {
		f := newDispatchFixture(t)
		f.seedAccount(t)
		message := f.seedMessage(t, nil)
		f.sender.ailing = errors.New("connection refused")

		err := f.svc.Dispatch(context.Background(), message.ID)
		assert.Error(t, err)
		assert.Equal(t, domain.LogKindTransport, lastLogKind(t, f.logs, message.ID))
	})

	t.Run("失败的投递不改动邮件记录", func(t *testing.T) {
		f := newDispatchFixture(t)
		f.seedAccount(t)
		message := f.seedMessage(t, nil)
		f.sender.ailing = errors.New("boom")

		_ = f.svc.Dispatch(context.Background(), message.ID)
		reloaded, err := f.store.GetMessage(message.ID)
		require.NoError(t, err)
		assert.Equal(t, message.HTMLBody, reloaded.HTMLBody)
	})
}

var _ mailer.Sender = (*fakeSender)(nil)
