package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/storage/memory"
)

func samplePayload() *MessagePayload {
	return &MessagePayload{
		AccountName:  "ops",
		Subject:      "周报",
		ToRecipients: []string{"a@example.com", "b@example.com"},
		CcRecipients: []string{"c@example.com"},
		Attachments: []domain.AttachmentManifest{
			{Filename: "report.pdf", ContentBytes: "cGRm"},
		},
		HTMLBody:     "<p>本周进展</p>",
		UseSignature: true,
	}
}

func TestFingerprint(t *testing.T) {
	t.Run("相同内容得到相同指纹", func(t *testing.T) {
		assert.Equal(t, Fingerprint(samplePayload()), Fingerprint(samplePayload()))
	})

	t.Run("指纹是64位十六进制", func(t *testing.T) {
		assert.Len(t, Fingerprint(samplePayload()), 64)
	})

	t.Run("nil与空抄送列表等价", func(t *testing.T) {
		withNil := samplePayload()
		withNil.CcRecipients = nil
		withEmpty := samplePayload()
		withEmpty.CcRecipients = []string{}
		assert.Equal(t, Fingerprint(withNil), Fingerprint(withEmpty))
	})

	t.Run("任一字段变化指纹随之变化", func(t *testing.T) {
		base := Fingerprint(samplePayload())

		changed := samplePayload()
		changed.Subject = "月报"
		assert.NotEqual(t, base, Fingerprint(changed))

		changed = samplePayload()
		changed.UseSignature = false
		assert.NotEqual(t, base, Fingerprint(changed))

		changed = samplePayload()
		changed.Attachments[0].Filename = "other.pdf"
		assert.NotEqual(t, base, Fingerprint(changed))
	})

	t.Run("收件人顺序不同指纹不同", func(t *testing.T) {
		reordered := samplePayload()
		reordered.ToRecipients = []string{"b@example.com", "a@example.com"}
		assert.NotEqual(t, Fingerprint(samplePayload()), Fingerprint(reordered))
	})
}

func TestMessageService_CreateOrGet(t *testing.T) {
	t.Run("首次创建返回新记录", func(t *testing.T) {
		svc := NewMessageService(memory.NewStore(), loggerForTest(), metricsForTest())

		message, created, err := svc.CreateOrGet(samplePayload())
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, message.ID)
		assert.Equal(t, Fingerprint(samplePayload()), message.Fingerprint)
	})

	t.Run("重复创建幂等返回同一记录", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewMessageService(store, loggerForTest(), metricsForTest())

		first, created, err := svc.CreateOrGet(samplePayload())
		require.NoError(t, err)
		require.True(t, created)

		second, created, err := svc.CreateOrGet(samplePayload())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)

		all, err := store.ListMessages(0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("不同内容各自成行", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewMessageService(store, loggerForTest(), metricsForTest())

		_, _, err := svc.CreateOrGet(samplePayload())
		require.NoError(t, err)

		other := samplePayload()
		other.Subject = "另一封"
		_, created, err := svc.CreateOrGet(other)
		require.NoError(t, err)
		assert.True(t, created)

		all, err := store.ListMessages(0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}
