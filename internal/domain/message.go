package domain

import "time"

// Message 表示一条已入库、等待投递的外发邮件。
//
// 入库后不可变：指纹唯一约束保证相同逻辑内容只落一行。
type Message struct {
	ID           string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Fingerprint  string               `json:"fingerprint" gorm:"type:varchar(64);uniqueIndex;not null"`
	AccountName  string               `json:"accountName" gorm:"type:varchar(150);not null"`
	Subject      string               `json:"subject" gorm:"type:varchar(512);not null"`
	ToRecipients []string             `json:"toRecipients" gorm:"serializer:json;not null"`
	CcRecipients []string             `json:"ccRecipients,omitempty" gorm:"serializer:json"`
	Attachments  []AttachmentManifest `json:"attachments,omitempty" gorm:"serializer:json"`
	HTMLBody     string               `json:"htmlBody" gorm:"type:text;not null"`
	UseSignature bool                 `json:"useSignature"`
	CreatedAt    time.Time            `json:"createdAt"`
}
