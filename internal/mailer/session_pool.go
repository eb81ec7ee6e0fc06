package mailer

import (
	"sync"

	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"
)

// session 单个账户的发送会话：复用的 SMTP 连接加速率限制。
type session struct {
	mu      sync.Mutex
	closer  gomail.SendCloser
	limiter *rate.Limiter
}

// SessionPool 按账户名管理发送会话。
//
// 会话的惰性创建在池锁内完成，同一账户并发首次发送
// 不会竞争出两条连接。
type SessionPool struct {
	mu       sync.Mutex
	sessions map[string]*session
	perMin   int
}

// NewSessionPool 创建会话池，perMin 为单账户每分钟发送上限。
func NewSessionPool(perMin int) *SessionPool {
	if perMin <= 0 {
		perMin = 30
	}
	return &SessionPool{
		sessions: make(map[string]*session),
		perMin:   perMin,
	}
}

// acquire 取出账户的会话槽，不存在时创建。
func (p *SessionPool) acquire(accountName string) *session {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.sessions[accountName]; ok {
		return existing
	}
	created := &session{
		limiter: rate.NewLimiter(rate.Limit(float64(p.perMin)/60.0), p.perMin),
	}
	p.sessions[accountName] = created
	return created
}

// CloseAll 关闭全部打开的连接并清空池。
func (p *SessionPool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, sess := range p.sessions {
		sess.mu.Lock()
		if sess.closer != nil {
			_ = sess.closer.Close()
			sess.closer = nil
		}
		sess.mu.Unlock()
		delete(p.sessions, name)
	}
}
