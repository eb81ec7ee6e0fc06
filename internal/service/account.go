package service

import (
	"fmt"

	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/secret"
	"maildispatch/backend/internal/storage"
)

// AccountService 提供发信账户的业务逻辑。
//
// 口令入库前经 Keeper 加密，发信时解回明文交给传输层。
type AccountService struct {
	store  storage.Store
	keeper *secret.Keeper
	logger *zap.Logger
}

// NewAccountService 创建账户服务。
func NewAccountService(store storage.Store, keeper *secret.Keeper, logger *zap.Logger) *AccountService {
	return &AccountService{store: store, keeper: keeper, logger: logger}
}

// Register 注册发信账户。
func (s *AccountService) Register(name, email, password string) (*domain.RegisteredAccount, error) {
	sealed, err := s.keeper.Seal(password)
	if err != nil {
		return nil, fmt.Errorf("加密账户口令失败: %w", err)
	}
	account := &domain.RegisteredAccount{
		AccountName: name,
		Email:       email,
		Password:    sealed,
	}
	if err := s.store.CreateAccount(account); err != nil {
		return nil, err
	}
	s.logger.Info("已注册发信账户",
		zap.String("account", name),
		zap.String("email", email),
	)
	return account, nil
}

// Update 更新账户的邮箱和口令。留空的字段保持原值。
func (s *AccountService) Update(name, email, password string) (*domain.RegisteredAccount, error) {
	account, err := s.store.GetAccountByName(name)
	if err != nil {
		return nil, err
	}
	if email != "" {
		account.Email = email
	}
	if password != "" {
		sealed, err := s.keeper.Seal(password)
		if err != nil {
			return nil, fmt.Errorf("加密账户口令失败: %w", err)
		}
		account.Password = sealed
	}
	if err := s.store.UpdateAccount(account); err != nil {
		return nil, err
	}
	s.logger.Info("已更新发信账户", zap.String("account", name))
	return account, nil
}

// Get 按账户名读取账户。
func (s *AccountService) Get(name string) (*domain.RegisteredAccount, error) {
	return s.store.GetAccountByName(name)
}

// List 列出全部账户。
func (s *AccountService) List() ([]domain.RegisteredAccount, error) {
	return s.store.ListAccounts()
}

// Delete 删除账户及其签名关联。
func (s *AccountService) Delete(name string) error {
	if err := s.store.DeleteAccount(name); err != nil {
		return err
	}
	s.logger.Info("已删除发信账户", zap.String("account", name))
	return nil
}

// OpenPassword 解出账户口令明文，仅供传输层认证使用。
func (s *AccountService) OpenPassword(account *domain.RegisteredAccount) (string, error) {
	plaintext, err := s.keeper.Open(account.Password)
	if err != nil {
		return "", fmt.Errorf("解密账户口令失败: %w", err)
	}
	return plaintext, nil
}
