package cmd

import (
	"github.com/wezaxy/dmagent/internal/config"
	"github.com/wezaxy/dmagent/internal/instagram"
	"github.com/wezaxy/dmagent/internal/redis"
	"github.com/wezaxy/dmagent/internal/session"
)

// makeSessionStore wires the three-tier session store: shared Redis (may be
// nil), env-provided static token, local file.
func makeSessionStore(cfg config.Config) (*session.Store, *redis.Store) {
	remote := redis.Dial(redis.Config{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	env := session.Session{
		AuthToken: cfg.Instagram.AuthToken,
		AccountID: cfg.Instagram.AccountID,
	}
	return session.NewStore(remote, env, cfg.SessionPath()), remote
}

func makeClient(cfg config.Config) *instagram.Client {
	return instagram.NewClient(cfg.Instagram.DeviceID)
}
