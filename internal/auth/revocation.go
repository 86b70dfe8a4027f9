package auth

import (
	gocache "github.com/patrickmn/go-cache"
	"time"
)

// RevocationList remembers signed-out token ids until the tokens would have
// expired anyway.
type RevocationList struct {
	cache *gocache.Cache
}

func NewRevocationList() *RevocationList {
	return &RevocationList{cache: gocache.New(gocache.NoExpiration, 5*time.Minute)}
}

func (r *RevocationList) Revoke(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	r.cache.Set(tokenID, struct{}{}, ttl)
}

func (r *RevocationList) IsRevoked(tokenID string) bool {
	_, found := r.cache.Get(tokenID)
	return found
}
