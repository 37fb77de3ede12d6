package qqmusic

import (
	"time"

	"github.com/musegrab/musegrab/grab/config"
	logpkg "github.com/musegrab/musegrab/grab/logger"
	"github.com/musegrab/musegrab/grab/service"
	"github.com/musegrab/musegrab/plugins"
)

func init() {
	if err := plugins.Register("qqmusic", build); err != nil {
		panic(err)
	}
}

func build(cfg *config.Config, log *logpkg.Logger) (service.Module, error) {
	cookie := cfg.GetPluginString("qqmusic", "cookie")
	if cookie == "" {
		cookie = cfg.GetString("QQMUSIC_COOKIE")
	}

	timeout := time.Duration(cfg.GetPluginInt("qqmusic", "timeout_sec")) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := NewClient(cookie, timeout, log)
	return NewModule(client, log), nil
}
