// Package cache provides in-process caching infrastructure.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"navgate/internal/nav"
	"navgate/pkg/logger"
)

// expirySlack is subtracted from a token's validity window so a token that
// is about to expire mid-batch is never reused.
const expirySlack = 30 * time.Second

// Exchanger is the token-acquiring slice of the protocol client.
type Exchanger interface {
	TokenExchange(ctx context.Context, creds nav.Credentials) (nav.Token, error)
}

// TokenCache caches NAV exchange tokens per credential set. Tokens are
// valid for roughly five minutes; consecutive batches of one worker pass
// reuse the cached token instead of re-exchanging.
type TokenCache struct {
	next Exchanger
	now  func() time.Time

	mu     sync.Mutex
	tokens map[string]nav.Token
}

// NewTokenCache wraps an exchanger with a per-credential token cache.
func NewTokenCache(next Exchanger) *TokenCache {
	return &TokenCache{
		next:   next,
		now:    func() time.Time { return time.Now().UTC() },
		tokens: make(map[string]nav.Token),
	}
}

// TokenExchange returns a cached token when one is still comfortably valid,
// otherwise performs a real exchange and caches the result.
func (c *TokenCache) TokenExchange(ctx context.Context, creds nav.Credentials) (nav.Token, error) {
	key := cacheKey(creds)

	c.mu.Lock()
	cached, ok := c.tokens[key]
	c.mu.Unlock()

	if ok && cached.ValidUntil.After(c.now().Add(expirySlack)) {
		return cached, nil
	}

	token, err := c.next.TokenExchange(ctx, creds)
	if err != nil {
		return nav.Token{}, err
	}

	c.mu.Lock()
	c.tokens[key] = token
	c.mu.Unlock()

	logger.Debug(ctx, "exchange token refreshed",
		"username", creds.Username, "mode", string(creds.Mode))
	return token, nil
}

// Invalidate drops the cached token of one credential set, forcing the next
// call to re-exchange. Used after the authority rejects a token.
func (c *TokenCache) Invalidate(creds nav.Credentials) {
	c.mu.Lock()
	delete(c.tokens, cacheKey(creds))
	c.mu.Unlock()
}

func cacheKey(creds nav.Credentials) string {
	return fmt.Sprintf("%s/%s/%s", creds.Mode, creds.VAT, creds.Username)
}
