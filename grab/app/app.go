package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/jobs"
	logpkg "github.com/musegrab/musegrab/grab/logger"
	"github.com/musegrab/musegrab/grab/service"
	"github.com/musegrab/musegrab/grab/service/registry"
	"github.com/musegrab/musegrab/grab/worker"
	"github.com/musegrab/musegrab/plugins"
)

// App wires all application dependencies.
type App struct {
	Config   *config.Config
	Settings config.Settings
	Logger   *logpkg.Logger
	Repo     *jobs.Repository
	Pool     *worker.Pool
	Registry *registry.Registry
	Manager  *jobs.Manager
	Build    BuildInfo
}

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	RuntimeVer string
	BinVersion string
	CommitSHA  string
	BuildTime  string
	BuildArch  string
}

// New builds the application container.
func New(ctx context.Context, configPath string, build BuildInfo) (*App, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logLevel := conf.GetString("LogLevel")
	log, err := logpkg.New(logLevel, conf.GetString("LogFormat"), conf.GetBool("LogSource"))
	if err != nil {
		return nil, err
	}

	settings, err := conf.Settings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	gormLogger := logpkg.NewGormLogger(log.Slog(), logpkg.MapGormLevel(conf.GetString("GormLogLevel")))
	databasePath := strings.TrimSpace(conf.GetString("Database"))
	if databasePath == "" {
		databasePath = "jobs.db"
	}

	repo, err := jobs.NewSQLiteRepository(databasePath, gormLogger)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	maxLifetime := time.Duration(conf.GetInt("DBConnMaxLifetimeSec")) * time.Second
	if err := repo.ConfigurePool(conf.GetInt("DBMaxOpenConns"), conf.GetInt("DBMaxIdleConns"), maxLifetime); err != nil {
		return nil, fmt.Errorf("configure db pool: %w", err)
	}

	if n, err := repo.ResetStaleJobs(ctx); err != nil {
		log.Warn("cannot reset stale jobs", "error", err)
	} else if n > 0 {
		log.Info("reset stale jobs from previous run", "count", n)
	}

	pool := worker.New(conf.GetInt("WorkerPoolSize"))

	reg := registry.New()
	if err := buildModules(conf, log, reg); err != nil {
		return nil, err
	}
	if len(reg.GetAll()) == 0 {
		return nil, errors.New("no service modules enabled")
	}

	manager := jobs.NewManager(repo, settings, reg, pool, log, logLevel)

	if build.BinVersion != "" {
		log.Info("starting",
			"version", build.BinVersion,
			"commit", build.CommitSHA,
			"runtime", build.RuntimeVer,
			"arch", build.BuildArch,
		)
	}

	return &App{
		Config:   conf,
		Settings: settings,
		Logger:   log,
		Repo:     repo,
		Pool:     pool,
		Registry: reg,
		Manager:  manager,
		Build:    build,
	}, nil
}

// buildModules instantiates every enabled plugin and registers its module.
// A plugin that fails to initialize is skipped rather than aborting startup,
// so one bad credential does not take down the other services.
func buildModules(conf *config.Config, log *logpkg.Logger, reg *registry.Registry) error {
	pluginNames := conf.PluginNames()
	if len(pluginNames) == 0 {
		pluginNames = plugins.Names()
	}

	for _, name := range pluginNames {
		enabled := true
		if pluginCfg, ok := conf.GetPluginConfig(name); ok {
			if _, hasKey := pluginCfg["enabled"]; hasKey {
				enabled = conf.GetPluginBool(name, "enabled")
			}
		}
		if !enabled {
			log.Info("plugin disabled by config", "plugin", name)
			continue
		}

		factory, ok := plugins.Get(name)
		if !ok {
			log.Warn("plugin not registered", "plugin", name)
			continue
		}

		mod, err := factory(conf, log)
		if err != nil {
			log.Error("plugin init failed", "plugin", name, "error", err)
			continue
		}
		if mod == nil {
			continue
		}

		if err := reg.Register(mod); err != nil {
			return fmt.Errorf("register module %s: %w", name, err)
		}
		log.Info("module registered", "module", mod.Name())
	}

	return nil
}

// Resolve maps a share URL to the module that recognizes it.
func (a *App) Resolve(url string) (service.Module, service.MediaReference, error) {
	ref, mod, ok := a.Registry.MatchURL(url)
	if !ok {
		return nil, service.MediaReference{}, fmt.Errorf("no module recognizes URL: %s", url)
	}
	return mod, ref, nil
}

// Grab resolves a URL and runs its download job to completion on the calling
// goroutine. Used by the one-shot CLI path.
func (a *App) Grab(ctx context.Context, url string) (*grab.Job, error) {
	mod, ref, err := a.Resolve(url)
	if err != nil {
		return nil, err
	}
	return a.Manager.RunSync(ctx, mod.Name(), ref, url)
}

// Enqueue resolves a URL and queues its download onto the worker pool.
func (a *App) Enqueue(ctx context.Context, url string) (*grab.Job, error) {
	mod, ref, err := a.Resolve(url)
	if err != nil {
		return nil, err
	}
	return a.Manager.Enqueue(ctx, mod.Name(), ref, url)
}

// Shutdown drains running jobs and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Manager != nil {
		if err := a.Manager.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Repo != nil {
		if err := a.Repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
