package core

import (
	"fmt"

	"github.com/gorilla/sessions"
)

// NewSessionStore returns the store selected by cfg.SessionBackend and a cleanup func.
func NewSessionStore(cfg Config) (sessions.Store, func(), error) {
	switch cfg.SessionBackend {
	case "", "cookie":
		return sessions.NewCookieStore([]byte(cfg.SessionKey)), func() {}, nil
	case "redis":
		client, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisStore(client, []byte(cfg.SessionKey)), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
