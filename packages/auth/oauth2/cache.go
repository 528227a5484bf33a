package oauth2

import "sync"

// TokenCache keeps fetched tokens for the lifetime of a shell session, so
// switching away from an OAuth2 scheme and back does not hit the token
// endpoint again. One cache may be shared by several providers; each
// provider stores its token under a key derived from its grant.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: map[string]*Token{}}
}

// Get returns the token stored under key, or nil. Expired tokens are still
// returned because their refresh token may be usable.
func (c *TokenCache) Get(key string) *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[key]
}

func (c *TokenCache) Set(key string, token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = token
}

// Delete forgets the token under key after a fetch or refresh failed.
func (c *TokenCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
}
