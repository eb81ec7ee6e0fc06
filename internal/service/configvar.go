package service

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/storage"
)

// ErrInvalidConfigVar 表示配置变量的类型或取值不合法。
var ErrInvalidConfigVar = errors.New("配置变量不合法")

// ConfigVarService 提供数据库配置变量的业务逻辑。
type ConfigVarService struct {
	store  storage.Store
	logger *zap.Logger
}

// NewConfigVarService 创建配置变量服务。
func NewConfigVarService(store storage.Store, logger *zap.Logger) *ConfigVarService {
	return &ConfigVarService{store: store, logger: logger}
}

// Seed 写入内置配置变量的初始值，已存在的键不覆盖。
func (s *ConfigVarService) Seed() error {
	defaults := []domain.ConfigVariable{
		{
			Key:         domain.ConfigKeyMaxLogHistoryLength,
			Value:       strconv.Itoa(storage.DefaultLogHistoryLength),
			VarType:     domain.ConfigVarInteger,
			Description: "投递日志表的容量上限",
		},
		{
			Key:         domain.ConfigKeyMaxMsgAntiquity,
			Value:       "43200",
			VarType:     domain.ConfigVarInteger,
			Description: "邮件的最长保留秒数",
		},
	}
	for i := range defaults {
		_, err := s.store.GetConfigVar(defaults[i].Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrConfigVarNotFound) {
			return err
		}
		if err := s.store.UpsertConfigVar(&defaults[i]); err != nil {
			return fmt.Errorf("写入初始配置变量 %s 失败: %w", defaults[i].Key, err)
		}
		s.logger.Info("已写入初始配置变量",
			zap.String("key", defaults[i].Key),
			zap.String("value", defaults[i].Value),
		)
	}
	return nil
}

// Upsert 按键写入配置变量，写入前校验值能按声明类型解码。
func (s *ConfigVarService) Upsert(variable *domain.ConfigVariable) error {
	switch variable.VarType {
	case domain.ConfigVarString, domain.ConfigVarInteger, domain.ConfigVarFloat,
		domain.ConfigVarBoolean, domain.ConfigVarJSON:
	default:
		return fmt.Errorf("%w: 未知类型 %s", ErrInvalidConfigVar, variable.VarType)
	}
	if _, err := variable.TypedValue(); err != nil {
		return fmt.Errorf("%w: 值与声明类型不符: %v", ErrInvalidConfigVar, err)
	}
	return s.store.UpsertConfigVar(variable)
}

// Get 按键读取配置变量。
func (s *ConfigVarService) Get(key string) (*domain.ConfigVariable, error) {
	return s.store.GetConfigVar(key)
}

// List 列出全部配置变量。
func (s *ConfigVarService) List() ([]domain.ConfigVariable, error) {
	return s.store.ListConfigVars()
}
