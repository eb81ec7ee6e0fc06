package domain

import "time"

// RegisteredAccount 表示一个可用于外发邮件的发信账户。
//
// Password 保存的是密封后的凭据（见 internal/secret），不落明文。
type RegisteredAccount struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountName string    `json:"accountName" gorm:"type:varchar(50);uniqueIndex;not null"`
	Email       string    `json:"email" gorm:"type:varchar(150);uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"type:varchar(500);not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AccountSignature 关联账户与签名键，每个账户同一签名键只允许一条记录。
//
// 同一账户至多一条 enabled 记录，由存储层的两步事务保证。
type AccountSignature struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID    uint      `json:"accountId" gorm:"not null;uniqueIndex:uq_account_signature_key"`
	SignatureKey string    `json:"signatureKey" gorm:"type:varchar(150);not null;uniqueIndex:uq_account_signature_key"`
	Enabled      bool      `json:"enabled" gorm:"not null;default:false"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
