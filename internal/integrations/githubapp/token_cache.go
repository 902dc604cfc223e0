package githubapp

import (
	"sync"
	"time"
)

type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenCache хранит токены установок по installation id.
// Параллельные обновления одного ключа допустимы, побеждает последняя запись.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[int64]InstallationToken
	now    func() time.Time
}

func NewTokenCache(now func() time.Time) *TokenCache {
	if now == nil {
		now = time.Now
	}
	return &TokenCache{
		tokens: make(map[int64]InstallationToken),
		now:    now,
	}
}

// Get возвращает токен, если он есть и не истек. Токен без expires_at считается бессрочным.
func (c *TokenCache) Get(installationID int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tok, ok := c.tokens[installationID]
	if !ok {
		return "", false
	}
	if !tok.ExpiresAt.IsZero() && tok.ExpiresAt.Before(c.now()) {
		delete(c.tokens, installationID)
		return "", false
	}
	return tok.Token, true
}

func (c *TokenCache) Set(installationID int64, tok InstallationToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[installationID] = tok
}

func (c *TokenCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = make(map[int64]InstallationToken)
}
