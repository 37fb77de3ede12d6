package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musegrab/musegrab/grab/app"
	"github.com/musegrab/musegrab/grab/service"

	_ "github.com/musegrab/musegrab/plugins/netease"
	_ "github.com/musegrab/musegrab/plugins/qqmusic"
)

func newTestApp(t *testing.T, config string) *app.App {
	t.Helper()
	t.Chdir(t.TempDir())

	path := filepath.Join(".", "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(config), 0644))

	application, err := app.New(context.Background(), path, app.BuildInfo{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown(context.Background()) })
	return application
}

func TestNewRegistersEnabledModules(t *testing.T) {
	application := newTestApp(t, `
Database = data/jobs.db

[plugins.netease]
enabled = true

[plugins.qqmusic]
enabled = false
`)

	_, ok := application.Registry.Get("netease")
	assert.True(t, ok, "netease should be registered")

	_, ok = application.Registry.Get("qqmusic")
	assert.False(t, ok, "qqmusic was disabled by config")
}

func TestResolveRoutesURLToModule(t *testing.T) {
	application := newTestApp(t, `
Database = data/jobs.db

[plugins.netease]
enabled = true

[plugins.qqmusic]
enabled = true
`)

	mod, ref, err := application.Resolve("https://music.163.com/#/album?id=34836039")
	require.NoError(t, err)
	assert.Equal(t, "netease", mod.Name())
	assert.Equal(t, service.MediaAlbum, ref.Type)
	assert.Equal(t, "34836039", ref.ID)

	mod, ref, err = application.Resolve("https://y.qq.com/n/ryqq/songDetail/0013WPvt4fQH2b")
	require.NoError(t, err)
	assert.Equal(t, "qqmusic", mod.Name())
	assert.Equal(t, service.MediaTrack, ref.Type)

	_, _, err = application.Resolve("https://example.com/not-music")
	assert.Error(t, err)
}
