package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/storage"
)

// Store 关系库存储实现，PostgreSQL 与 MySQL 共用。
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例。
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例。
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例。
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// 把方言各自的唯一约束冲突统一翻译成 gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate 自动迁移数据库表结构。
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Message{},
		&domain.MessageLog{},
		&domain.RegisteredAccount{},
		&domain.AccountSignature{},
		&domain.ConfigVariable{},
	)
}

// ========== Message Repository ==========

// CreateMessage 保存新邮件。指纹唯一索引冲突翻译为
// storage.ErrDuplicateFingerprint，调用方按幂等路径处理。
func (s *Store) CreateMessage(message *domain.Message) error {
	if err := s.db.Create(message).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrDuplicateFingerprint
		}
		return err
	}
	return nil
}

// GetMessage 根据 ID 获取邮件。
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// GetMessageByFingerprint 根据内容指纹获取邮件。
func (s *Store) GetMessageByFingerprint(fingerprint string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.Where("fingerprint = ?", fingerprint).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// ListMessages 按创建时间倒序分页列出邮件。
func (s *Store) ListMessages(limit, offset int) ([]domain.Message, error) {
	messages := []domain.Message{}
	query := s.db.Order("created_at DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// ========== Log Repository ==========

// AppendLog 在单个事务内追加日志并淘汰超出容量上限的最旧条目。
//
// 容量取 maxLogHistoryLength 配置变量，行缺失或值非法时退回默认值。
// 淘汰先查出多余条目的主键再按主键删除，避免 MySQL 不支持
// 对同表带 LIMIT 的子查询删除。
func (s *Store) AppendLog(entry *domain.MessageLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		cap := storage.DefaultLogHistoryLength
		var variable domain.ConfigVariable
		err := tx.Where("var_key = ?", domain.ConfigKeyMaxLogHistoryLength).First(&variable).Error
		if err == nil {
			if n, ok := variable.IntValue(); ok && n > 0 {
				cap = n
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&domain.MessageLog{}).Count(&count).Error; err != nil {
			return err
		}
		excess := int(count) - cap
		if excess <= 0 {
			return nil
		}

		var oldest []uint
		err = tx.Model(&domain.MessageLog{}).
			Order("timestamp ASC, id ASC").
			Limit(excess).
			Pluck("id", &oldest).Error
		if err != nil {
			return err
		}
		return tx.Delete(&domain.MessageLog{}, oldest).Error
	})
}

// ListLogs 返回跳过 offset 条最新日志后的 window 条，按时间升序。
func (s *Store) ListLogs(window, offset int) ([]domain.MessageLog, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window 必须为正数")
	}
	logs := []domain.MessageLog{}
	err := s.db.Order("timestamp DESC, id DESC").
		Offset(offset).
		Limit(window).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	// 查询按最新在前取窗口，返回前恢复时间升序
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// ListLogsByMessageID 列出某封邮件关联的全部日志，按时间升序。
func (s *Store) ListLogsByMessageID(messageID string) ([]domain.MessageLog, error) {
	logs := []domain.MessageLog{}
	err := s.db.Where("message_id = ?", messageID).
		Order("timestamp ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CountLogs 返回日志总条数。
func (s *Store) CountLogs() (int64, error) {
	var count int64
	if err := s.db.Model(&domain.MessageLog{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ========== Account Repository ==========

// CreateAccount 保存发信账户，名称或邮箱冲突时返回 ErrAccountExists。
func (s *Store) CreateAccount(account *domain.RegisteredAccount) error {
	if err := s.db.Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrAccountExists
		}
		return err
	}
	return nil
}

// GetAccountByName 根据账户名获取账户。
func (s *Store) GetAccountByName(name string) (*domain.RegisteredAccount, error) {
	var account domain.RegisteredAccount
	err := s.db.Where("account_name = ?", name).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateAccount 按账户名更新邮箱与口令，邮箱唯一索引冲突时返回 ErrAccountExists。
func (s *Store) UpdateAccount(account *domain.RegisteredAccount) error {
	result := s.db.Model(&domain.RegisteredAccount{}).
		Where("account_name = ?", account.AccountName).
		Updates(map[string]interface{}{
			"email":    account.Email,
			"password": account.Password,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return storage.ErrAccountExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	refreshed, err := s.GetAccountByName(account.AccountName)
	if err != nil {
		return err
	}
	*account = *refreshed
	return nil
}

// ListAccounts 按账户名升序列出全部账户。
func (s *Store) ListAccounts() ([]domain.RegisteredAccount, error) {
	accounts := []domain.RegisteredAccount{}
	if err := s.db.Order("account_name ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteAccount 删除账户及其签名关联。
func (s *Store) DeleteAccount(name string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var account domain.RegisteredAccount
		err := tx.Where("account_name = ?", name).First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrAccountNotFound
			}
			return err
		}
		if err := tx.Where("account_id = ?", account.ID).Delete(&domain.AccountSignature{}).Error; err != nil {
			return err
		}
		return tx.Delete(&account).Error
	})
}

// ========== SignatureRef Repository ==========

// AttachSignature 建立账户与签名键的关联，已存在时返回现有关联。
func (s *Store) AttachSignature(accountID uint, signatureKey string) (*domain.AccountSignature, error) {
	ref := domain.AccountSignature{AccountID: accountID, SignatureKey: signatureKey}
	err := s.db.Create(&ref).Error
	if err == nil {
		return &ref, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	// 并发或重复关联：回读现有记录
	var existing domain.AccountSignature
	err = s.db.Where("account_id = ? AND signature_key = ?", accountID, signatureKey).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// EnableSignature 启用目标签名。
//
// 同一事务内先清掉该账户其余签名的启用位再启用目标，
// 保证任意时刻每个账户至多一个启用签名。
func (s *Store) EnableSignature(accountID uint, signatureKey string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var target domain.AccountSignature
		err := tx.Where("account_id = ? AND signature_key = ?", accountID, signatureKey).
			First(&target).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrSignatureRefNotFound
			}
			return err
		}

		err = tx.Model(&domain.AccountSignature{}).
			Where("account_id = ? AND id <> ?", accountID, target.ID).
			Update("enabled", false).Error
		if err != nil {
			return err
		}
		return tx.Model(&target).Update("enabled", true).Error
	})
}

// GetEnabledSignature 获取账户当前启用的签名关联。
func (s *Store) GetEnabledSignature(accountID uint) (*domain.AccountSignature, error) {
	var ref domain.AccountSignature
	err := s.db.Where("account_id = ? AND enabled = ?", accountID, true).First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrSignatureRefNotFound
		}
		return nil, err
	}
	return &ref, nil
}

// ListSignatureRefs 列出账户的全部签名关联。
func (s *Store) ListSignatureRefs(accountID uint) ([]domain.AccountSignature, error) {
	refs := []domain.AccountSignature{}
	err := s.db.Where("account_id = ?", accountID).
		Order("signature_key ASC").
		Find(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// ========== ConfigVar Repository ==========

// UpsertConfigVar 按键写入配置变量，已存在时覆盖值与类型。
func (s *Store) UpsertConfigVar(variable *domain.ConfigVariable) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "var_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "var_type", "description", "updated_at"}),
	}).Create(variable).Error
}

// GetConfigVar 根据键获取配置变量。
func (s *Store) GetConfigVar(key string) (*domain.ConfigVariable, error) {
	var variable domain.ConfigVariable
	err := s.db.Where("var_key = ?", key).First(&variable).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrConfigVarNotFound
		}
		return nil, err
	}
	return &variable, nil
}

// ListConfigVars 按键升序列出全部配置变量。
func (s *Store) ListConfigVars() ([]domain.ConfigVariable, error) {
	variables := []domain.ConfigVariable{}
	if err := s.db.Order("var_key ASC").Find(&variables).Error; err != nil {
		return nil, err
	}
	return variables, nil
}

// ========== 工具方法 ==========

// Close 关闭数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连通性。
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
