package cache

import (
	"context"

	"navgate/internal/nav"
)

// CachedClient is a protocol client whose token exchanges go through a
// TokenCache. All other operations pass straight to the wrapped client.
type CachedClient struct {
	*nav.Client
	tokens *TokenCache
}

// WrapClient wraps a protocol client with token caching.
func WrapClient(client *nav.Client) *CachedClient {
	return &CachedClient{
		Client: client,
		tokens: NewTokenCache(client),
	}
}

// TokenExchange returns a cached exchange token when one is still valid.
func (c *CachedClient) TokenExchange(ctx context.Context, creds nav.Credentials) (nav.Token, error) {
	return c.tokens.TokenExchange(ctx, creds)
}

// InvalidateToken drops the cached token of a credential set, forcing a
// fresh exchange on the next call. Used after the authority rejects a
// token as invalid.
func (c *CachedClient) InvalidateToken(creds nav.Credentials) {
	c.tokens.Invalidate(creds)
}
