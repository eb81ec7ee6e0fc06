package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/storage"
)

// Store 基于内存的存储实现，用于本地开发与测试。
type Store struct {
	mu sync.RWMutex

	messages     map[string]*domain.Message // id -> message
	fingerprints map[string]string          // fingerprint -> id

	logs      []*domain.MessageLog
	nextLogID uint

	accounts map[string]*domain.RegisteredAccount // name -> account
	nextAcct uint

	signatureRefs []*domain.AccountSignature
	nextSigRefID  uint

	configVars map[string]*domain.ConfigVariable
}

// NewStore 创建内存存储。
func NewStore() *Store {
	return &Store{
		messages:     make(map[string]*domain.Message),
		fingerprints: make(map[string]string),
		nextLogID:    1,
		accounts:     make(map[string]*domain.RegisteredAccount),
		nextAcct:     1,
		nextSigRefID: 1,
		configVars:   make(map[string]*domain.ConfigVariable),
	}
}

// ========== Message Repository ==========

// CreateMessage 保存新邮件，指纹已存在时返回 ErrDuplicateFingerprint。
func (s *Store) CreateMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fingerprints[message.Fingerprint]; exists {
		return storage.ErrDuplicateFingerprint
	}
	stored := *message
	s.messages[stored.ID] = &stored
	s.fingerprints[stored.Fingerprint] = stored.ID
	return nil
}

func (s *Store) GetMessage(id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	message, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	copied := *message
	return &copied, nil
}

func (s *Store) GetMessageByFingerprint(fingerprint string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.fingerprints[fingerprint]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	copied := *s.messages[id]
	return &copied, nil
}

func (s *Store) ListMessages(limit, offset int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Message, 0, len(s.messages))
	for _, message := range s.messages {
		all = append(all, *message)
	}
	// 新的在前
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []domain.Message{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// ========== Log Repository ==========

// AppendLog 追加一条日志并在超过容量上限时淘汰最旧条目。
//
// 上限取 maxLogHistoryLength 配置变量，缺失或非法时退回默认值。
// 内存实现以互斥锁保证追加与淘汰的原子性。
func (s *Store) AppendLog(entry *domain.MessageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.ID = s.nextLogID
	s.nextLogID++
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}
	s.logs = append(s.logs, &stored)
	sort.SliceStable(s.logs, func(i, j int) bool {
		return s.logs[i].Timestamp.Before(s.logs[j].Timestamp)
	})

	cap := s.logCapLocked()
	if excess := len(s.logs) - cap; excess > 0 {
		s.logs = append([]*domain.MessageLog{}, s.logs[excess:]...)
	}

	*entry = stored
	return nil
}

func (s *Store) logCapLocked() int {
	if variable, ok := s.configVars[domain.ConfigKeyMaxLogHistoryLength]; ok {
		if n, ok := variable.IntValue(); ok && n > 0 {
			return n
		}
	}
	return storage.DefaultLogHistoryLength
}

// ListLogs 返回跳过 offset 条最新日志后的 window 条，按时间升序。
func (s *Store) ListLogs(window, offset int) ([]domain.MessageLog, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window 必须为正数")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	end := len(s.logs) - offset
	if end <= 0 {
		return []domain.MessageLog{}, nil
	}
	start := end - window
	if start < 0 {
		start = 0
	}
	out := make([]domain.MessageLog, 0, end-start)
	for _, entry := range s.logs[start:end] {
		out = append(out, *entry)
	}
	return out, nil
}

func (s *Store) ListLogsByMessageID(messageID string) ([]domain.MessageLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.MessageLog{}
	for _, entry := range s.logs {
		if entry.MessageID != nil && *entry.MessageID == messageID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *Store) CountLogs() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.logs)), nil
}

// ========== Account Repository ==========

func (s *Store) CreateAccount(account *domain.RegisteredAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.AccountName]; exists {
		return storage.ErrAccountExists
	}
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return storage.ErrAccountExists
		}
	}
	stored := *account
	stored.ID = s.nextAcct
	s.nextAcct++
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.accounts[stored.AccountName] = &stored

	*account = stored
	return nil
}

func (s *Store) GetAccountByName(name string) (*domain.RegisteredAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[name]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

// UpdateAccount 按账户名更新邮箱与口令，邮箱与其他账户冲突时拒绝。
func (s *Store) UpdateAccount(account *domain.RegisteredAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.AccountName]
	if !ok {
		return storage.ErrAccountNotFound
	}
	for _, other := range s.accounts {
		if other.AccountName != account.AccountName && other.Email == account.Email {
			return storage.ErrAccountExists
		}
	}
	existing.Email = account.Email
	existing.Password = account.Password
	existing.UpdatedAt = time.Now().UTC()

	*account = *existing
	return nil
}

func (s *Store) ListAccounts() ([]domain.RegisteredAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RegisteredAccount, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, *account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountName < out[j].AccountName })
	return out, nil
}

func (s *Store) DeleteAccount(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[name]
	if !ok {
		return storage.ErrAccountNotFound
	}
	delete(s.accounts, name)

	kept := s.signatureRefs[:0]
	for _, ref := range s.signatureRefs {
		if ref.AccountID != account.ID {
			kept = append(kept, ref)
		}
	}
	s.signatureRefs = kept
	return nil
}

// ========== SignatureRef Repository ==========

// AttachSignature 建立账户与签名键的关联，已存在时返回现有关联。
func (s *Store) AttachSignature(accountID uint, signatureKey string) (*domain.AccountSignature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ref := range s.signatureRefs {
		if ref.AccountID == accountID && ref.SignatureKey == signatureKey {
			copied := *ref
			return &copied, nil
		}
	}
	ref := &domain.AccountSignature{
		ID:           s.nextSigRefID,
		AccountID:    accountID,
		SignatureKey: signatureKey,
		UpdatedAt:    time.Now().UTC(),
	}
	s.nextSigRefID++
	s.signatureRefs = append(s.signatureRefs, ref)
	copied := *ref
	return &copied, nil
}

// EnableSignature 启用目标签名并同时清掉该账户其余签名的启用位。
func (s *Store) EnableSignature(accountID uint, signatureKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *domain.AccountSignature
	for _, ref := range s.signatureRefs {
		if ref.AccountID == accountID && ref.SignatureKey == signatureKey {
			target = ref
			break
		}
	}
	if target == nil {
		return storage.ErrSignatureRefNotFound
	}
	now := time.Now().UTC()
	for _, ref := range s.signatureRefs {
		if ref.AccountID == accountID && ref.Enabled {
			ref.Enabled = false
			ref.UpdatedAt = now
		}
	}
	target.Enabled = true
	target.UpdatedAt = now
	return nil
}

func (s *Store) GetEnabledSignature(accountID uint) (*domain.AccountSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ref := range s.signatureRefs {
		if ref.AccountID == accountID && ref.Enabled {
			copied := *ref
			return &copied, nil
		}
	}
	return nil, storage.ErrSignatureRefNotFound
}

func (s *Store) ListSignatureRefs(accountID uint) ([]domain.AccountSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.AccountSignature{}
	for _, ref := range s.signatureRefs {
		if ref.AccountID == accountID {
			out = append(out, *ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignatureKey < out[j].SignatureKey })
	return out, nil
}

// ========== ConfigVar Repository ==========

func (s *Store) UpsertConfigVar(variable *domain.ConfigVariable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *variable
	stored.UpdatedAt = time.Now().UTC()
	s.configVars[stored.Key] = &stored
	*variable = stored
	return nil
}

func (s *Store) GetConfigVar(key string) (*domain.ConfigVariable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variable, ok := s.configVars[key]
	if !ok {
		return nil, storage.ErrConfigVarNotFound
	}
	copied := *variable
	return &copied, nil
}

func (s *Store) ListConfigVars() ([]domain.ConfigVariable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ConfigVariable, 0, len(s.configVars))
	for _, variable := range s.configVars {
		out = append(out, *variable)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ========== 工具方法 ==========

// Close 内存实现无需释放资源。
func (s *Store) Close() error {
	return nil
}

// Health 内存实现始终健康。
func (s *Store) Health() error {
	return nil
}
