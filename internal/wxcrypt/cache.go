package wxcrypt

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of contexts kept when no size is given.
const DefaultCacheSize = 50

type cacheKey struct {
	token  string
	aesKey string
}

// Cache memoizes Contexts by (token, aes key), evicting the least recently
// used entry once full. It is safe for concurrent use.
type Cache struct {
	lru *lru.Cache
}

// NewCache creates a Cache holding at most size contexts.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating context cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Context returns the cached Context for the pair, building it on a miss.
// Concurrent misses for the same pair all end up with the same instance.
func (c *Cache) Context(token, aesKey string) (*Context, error) {
	key := cacheKey{token: token, aesKey: aesKey}
	if v, ok := c.lru.Get(key); ok {
		return v.(*Context), nil
	}
	ctx, err := NewContext(token, aesKey)
	if err != nil {
		return nil, err
	}
	if prev, ok, _ := c.lru.PeekOrAdd(key, ctx); ok {
		return prev.(*Context), nil
	}
	return ctx, nil
}

// MsgCrypt returns a MsgCrypt for the credentials, sharing the cached
// Context.
func (c *Cache) MsgCrypt(creds Credentials) (*MsgCrypt, error) {
	ctx, err := c.Context(creds.Token, creds.AESKey)
	if err != nil {
		return nil, err
	}
	return ctx.Bind(creds.ReceiverID), nil
}

// Len returns the number of cached contexts.
func (c *Cache) Len() int { return c.lru.Len() }
