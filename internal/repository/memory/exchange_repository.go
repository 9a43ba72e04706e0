package memory

import (
	"time"

	"sheetgrid-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// ExchangeRepository tracks each chat session's in-flight exchange so a
// user-initiated cancel can reach the running loop.
type ExchangeRepository struct {
	cache *cache.Cache
}

func NewExchangeRepository() *ExchangeRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ExchangeRepository{
		cache: c,
	}
}

func (r *ExchangeRepository) Save(exchange *store.ChatExchange) {
	r.cache.Set(exchange.ID, exchange, cache.DefaultExpiration)
}

func (r *ExchangeRepository) Get(sessionID string) (*store.ChatExchange, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.ChatExchange), true
	}
	return nil, false
}

func (r *ExchangeRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
