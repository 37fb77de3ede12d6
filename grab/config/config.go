package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// PluginConfig stores plugin-specific configuration as key-value pairs.
type PluginConfig map[string]interface{}

// Config wraps viper and provides typed accessors.
type Config struct {
	v       *viper.Viper
	plugins map[string]PluginConfig
}

// Load reads an INI config file and prepares defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MUSEGRAB")
	v.AutomaticEnv()

	setDefaults(v)

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		cfg, err := loadINI(v, path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		c := &Config{
			v:       v,
			plugins: make(map[string]PluginConfig),
		}

		loadPlugins(cfg, c)
		return c, nil
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		v:       v,
		plugins: make(map[string]PluginConfig),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DownloadPath", "./downloads")
	v.SetDefault("TempPath", "./temp")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogSource", false)
	v.SetDefault("DefaultQuality", "hires")
	v.SetDefault("SpatialCodecs", false)
	v.SetDefault("ProprietaryCodecs", false)
	v.SetDefault("DownloadTimeout", 300)
	v.SetDefault("CheckMD5", true)
	v.SetDefault("FetchMaxAttempts", 3)
	v.SetDefault("FetchRetryDelaySec", 2)
	v.SetDefault("TrackPauseSec", 1)
	v.SetDefault("EnableMultipartDownload", true)
	v.SetDefault("MultipartConcurrency", 4)
	v.SetDefault("MultipartMinSizeMB", 5)
	v.SetDefault("WorkerPoolSize", 2)
	v.SetDefault("Database", "jobs.db")
	v.SetDefault("DBMaxOpenConns", 1)
	v.SetDefault("DBMaxIdleConns", 1)
	v.SetDefault("DBConnMaxLifetimeSec", 3600)
	v.SetDefault("GormLogLevel", "warn")

	v.SetDefault("AlbumTemplate", "{artist} - {album}")
	v.SetDefault("PlaylistTemplate", "{name}")
	v.SetDefault("TrackTemplate", "{track_number}. {name}")
	v.SetDefault("SingleTrackTemplate", "{artist} - {name}")
	v.SetDefault("ForceAlbumFormat", false)
	v.SetDefault("PathByteLimit", 250)
	v.SetDefault("EnableZeroPad", true)

	v.SetDefault("SkipExisting", true)
	v.SetDefault("SeparateTracksSkipDownloaded", true)
	v.SetDefault("SaveDescription", true)
	v.SetDefault("SaveAnimatedCover", false)
	v.SetDefault("ArtistDownloadCredited", false)
	v.SetDefault("IgnoreDifferentArtists", false)
	v.SetDefault("SaveM3U", true)
	v.SetDefault("PlaylistDownloadModule", "")
	v.SetDefault("ExtendedM3U", false)
	v.SetDefault("M3UAbsolutePaths", false)

	v.SetDefault("EmbedCover", true)
	v.SetDefault("CoverExt", "jpg")
	v.SetDefault("CoverResolution", 1400)
	v.SetDefault("CoverCompression", false)
	v.SetDefault("SaveExternalCover", false)
	v.SetDefault("ExternalCoverExt", "png")
	v.SetDefault("ExternalCoverResolution", 3000)
	v.SetDefault("CoverCompareModule", "")
	v.SetDefault("CoverCompareThreshold", 22.5)
	v.SetDefault("CoverCompareResolution", 100)

	v.SetDefault("EmbedLyrics", true)
	v.SetDefault("SaveSyncedLyrics", true)
	v.SetDefault("LyricsModule", "")
	v.SetDefault("EmbedCredits", false)
	v.SetDefault("CreditsModule", "")

	v.SetDefault("Conversions", "")
	v.SetDefault("ConversionFlags", "")
	v.SetDefault("EnableUndesirableConversions", false)
	v.SetDefault("ConversionKeepOriginal", false)
	v.SetDefault("FFmpegPath", "ffmpeg")
}

// GetString returns a string value.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns an int value.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 returns a float64 value.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool returns a bool value.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice returns a slice of strings.
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetPluginConfig retrieves plugin-specific configuration by plugin name.
// Returns the configuration map and true if found, or nil and false if not found.
func (c *Config) GetPluginConfig(name string) (PluginConfig, bool) {
	cfg, ok := c.plugins[name]
	return cfg, ok
}

// PluginNames returns the configured plugin names.
func (c *Config) PluginNames() []string {
	if len(c.plugins) == 0 {
		return nil
	}
	nameList := make([]string, 0, len(c.plugins))
	for name := range c.plugins {
		nameList = append(nameList, name)
	}
	sort.Strings(nameList)
	return nameList
}

// GetPluginString returns a string value from plugin configuration.
// Returns empty string if plugin or key not found.
func (c *Config) GetPluginString(plugin, key string) string {
	cfg, ok := c.plugins[plugin]
	if !ok {
		return ""
	}
	val, ok := cfg[key]
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", val)
}

// GetPluginInt returns an int value from plugin configuration.
// Returns 0 if plugin or key not found, or value cannot be converted to int.
func (c *Config) GetPluginInt(plugin, key string) int {
	cfg, ok := c.plugins[plugin]
	if !ok {
		return 0
	}
	val, ok := cfg[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case string:
		num, _ := strconv.Atoi(v)
		return num
	default:
		return 0
	}
}

// GetPluginBool returns a bool value from plugin configuration.
// Returns false if plugin or key not found, or value cannot be converted to bool.
func (c *Config) GetPluginBool(plugin, key string) bool {
	cfg, ok := c.plugins[plugin]
	if !ok {
		return false
	}
	val, ok := cfg[key]
	if !ok {
		return false
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1"
	case int, int64:
		return v != 0
	default:
		return false
	}
}

func loadINI(v *viper.Viper, path string) (*ini.File, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	for _, key := range cfg.Section("").Keys() {
		v.Set(key.Name(), key.Value())
	}

	return cfg, nil
}

func loadPlugins(cfg *ini.File, c *Config) {
	const pluginPrefix = "plugins."

	for _, section := range cfg.Sections() {
		sectionName := section.Name()
		if sectionName == "" || sectionName == "DEFAULT" {
			continue
		}

		if strings.HasPrefix(sectionName, pluginPrefix) {
			pluginName := strings.TrimPrefix(sectionName, pluginPrefix)
			pluginCfg := make(PluginConfig)

			for _, key := range section.Keys() {
				pluginCfg[key.Name()] = key.Value()
			}

			c.plugins[pluginName] = pluginCfg
		}
	}
}
