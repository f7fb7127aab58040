package storage

import "time"

const defaultKeyCacheTTL = 5 * time.Minute

type Option func(*Service)

// WithKeyCacheTTL sets how long API key lookups stay cached in Redis.
func WithKeyCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.keys = newKeyCache(s.Redis, ttl)
		}
	}
}
