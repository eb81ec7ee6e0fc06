package storage

import (
	"errors"

	"maildispatch/backend/internal/domain"
)

var (
	// ErrMessageNotFound 邮件未找到错误
	ErrMessageNotFound = errors.New("message not found")
	// ErrDuplicateFingerprint 指纹唯一约束冲突，去重路径的预期结果
	ErrDuplicateFingerprint = errors.New("duplicate message fingerprint")
	// ErrAccountNotFound 账户未找到错误
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists 账户已存在错误
	ErrAccountExists = errors.New("account already exists")
	// ErrSignatureRefNotFound 账户签名关联未找到错误
	ErrSignatureRefNotFound = errors.New("account signature not found")
	// ErrConfigVarNotFound 配置变量未找到错误
	ErrConfigVarNotFound = errors.New("config variable not found")
)

// DefaultLogHistoryLength 日志表的兜底容量上限。
// maxLogHistoryLength 配置变量缺失或非法时使用。
const DefaultLogHistoryLength = 10000

// MessageRepository 定义待发邮件数据存取操作。
//
// CreateMessage 在指纹冲突时返回 ErrDuplicateFingerprint，
// 调用方据此回读已提交的同内容记录（幂等创建）。
type MessageRepository interface {
	CreateMessage(message *domain.Message) error
	GetMessage(id string) (*domain.Message, error)
	GetMessageByFingerprint(fingerprint string) (*domain.Message, error)
	ListMessages(limit, offset int) ([]domain.Message, error)
}

// LogRepository 定义投递日志数据存取操作。
//
// AppendLog 的插入与淘汰必须在同一事务内完成：插入后表内总数
// 超过容量上限时，按时间升序删除最旧的多余条目。
type LogRepository interface {
	AppendLog(entry *domain.MessageLog) error
	ListLogs(window, offset int) ([]domain.MessageLog, error)
	ListLogsByMessageID(messageID string) ([]domain.MessageLog, error)
	CountLogs() (int64, error)
}

// AccountRepository 定义发信账户数据存取操作。
type AccountRepository interface {
	CreateAccount(account *domain.RegisteredAccount) error
	GetAccountByName(name string) (*domain.RegisteredAccount, error)
	UpdateAccount(account *domain.RegisteredAccount) error
	ListAccounts() ([]domain.RegisteredAccount, error)
	DeleteAccount(name string) error
}

// SignatureRefRepository 定义账户与签名键关联的数据存取操作。
//
// EnableSignature 在同一事务内先清掉该账户其余签名的启用位，
// 再启用目标签名，保证每个账户至多一个启用签名。
type SignatureRefRepository interface {
	AttachSignature(accountID uint, signatureKey string) (*domain.AccountSignature, error)
	EnableSignature(accountID uint, signatureKey string) error
	GetEnabledSignature(accountID uint) (*domain.AccountSignature, error)
	ListSignatureRefs(accountID uint) ([]domain.AccountSignature, error)
}

// ConfigVarRepository 定义带类型配置变量的数据存取操作。
type ConfigVarRepository interface {
	UpsertConfigVar(variable *domain.ConfigVariable) error
	GetConfigVar(key string) (*domain.ConfigVariable, error)
	ListConfigVars() ([]domain.ConfigVariable, error)
}

// Store 定义完整的存储接口。
type Store interface {
	MessageRepository
	LogRepository
	AccountRepository
	SignatureRefRepository
	ConfigVarRepository

	// 工具方法
	Close() error
	Health() error
}
