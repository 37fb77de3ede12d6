package netease

import (
	"github.com/musegrab/musegrab/grab/config"
	logpkg "github.com/musegrab/musegrab/grab/logger"
	"github.com/musegrab/musegrab/grab/service"
	"github.com/musegrab/musegrab/plugins"
)

func init() {
	if err := plugins.Register("netease", build); err != nil {
		panic(err)
	}
}

func build(cfg *config.Config, log *logpkg.Logger) (service.Module, error) {
	musicU := cfg.GetPluginString("netease", "music_u")
	if musicU == "" {
		musicU = cfg.GetString("MUSIC_U")
	}
	spoofIP := cfg.GetPluginBool("netease", "spoof_ip")

	client := NewClient(musicU, spoofIP, log)
	return NewModule(client, log), nil
}
