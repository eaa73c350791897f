package cli

import (
	"path/filepath"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/archive"
	"github.com/xinggaoya/GameModMaster/pkg/catalog"
	"github.com/xinggaoya/GameModMaster/pkg/config"
	"github.com/xinggaoya/GameModMaster/pkg/download"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
	"github.com/xinggaoya/GameModMaster/pkg/hook"
	"github.com/xinggaoya/GameModMaster/pkg/installer"
	"github.com/xinggaoya/GameModMaster/pkg/launcher"
	"github.com/xinggaoya/GameModMaster/pkg/store"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
)

// HooksDir holds post-install.tengo and post-remove.tengo scripts.
const HooksDir = "hooks"

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}
	return config.GetDefaultConfigPath()
}

func verbose() bool {
	return Verbose != nil && *Verbose
}

func colorEnabled() bool {
	return NoColor == nil || !*NoColor
}

// loadConfig reads the config file, applies .env files and GMM_* variables
// on top of it and configures logging from the result.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	if err := config.LoadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	applied, err := cfg.ApplyEnv(nil)
	if err != nil {
		return nil, err
	}

	setupLogging(cfg)
	if len(applied) > 0 {
		logger.Debug("Applied environment overrides", logger.Fields{"keys": applied})
	}
	return cfg, nil
}

// setupLogging configures the global logger from the config and the
// --verbose flag.
func setupLogging(cfg *config.Config) {
	level := cfg.Settings.LogLevel
	if verbose() {
		level = "debug"
	}
	logger.InitLogger(level, logger.OutputFormat(cfg.Settings.LogFormat))
}

// app bundles the components a command may need. Components are built from
// a single config and share one store.
type app struct {
	cfg       *config.Config
	store     *store.Store
	downloads *download.Manager
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.Config{Path: cfg.Settings.DatabasePath, Debug: verbose()})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		store:     st,
		downloads: download.NewManager(download.NewTracker(), cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("Failed to close store", logger.Fields{"error": err.Error()})
	}
}

// catalog returns the HTTP catalog wrapped with the store's page cache.
func (a *app) catalog() (*catalog.Cached, error) {
	if a.cfg.Settings.CatalogURL == "" {
		return nil, &errors.Error{
			Kind:   errors.Config,
			Op:     "catalog",
			Detail: "catalog_url is not configured, run: gmm config set catalog_url <url>",
		}
	}
	client, err := catalog.NewHTTPClient(a.cfg.Settings.CatalogURL, a.cfg.Settings.HTTPTimeout, a.cfg.Settings.UserAgent)
	if err != nil {
		return nil, err
	}
	return catalog.NewCached(client, a.store), nil
}

// hooks loads the scripts from the hooks directory next to the config file
// and the configured post-install script, which wins over the directory.
func (a *app) hooks() (*hook.Manager, error) {
	m := hook.NewManager()
	if err := m.LoadDir(filepath.Join(filepath.Dir(getConfigPath()), HooksDir)); err != nil {
		return nil, err
	}
	if p := a.cfg.Settings.PostInstallHook; p != "" {
		if err := m.LoadFile(hook.PostInstall, p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (a *app) installer(h installer.Hooks) (*installer.Installer, error) {
	if err := fsutil.EnsureDir(a.cfg.Settings.DownloadPath); err != nil {
		return nil, errors.E(errors.IO, "create download directory", err)
	}

	inst := installer.New(a.cfg.Settings.DownloadPath, a.downloads, archive.NewManager(), a.store)
	inst.AutoExtract = a.cfg.Settings.AutoExtract
	inst.Hooks = h

	runner, err := a.hooks()
	if err != nil {
		return nil, err
	}
	if runner.HasHook(hook.PostInstall) || runner.HasHook(hook.PostRemove) {
		inst.HookRunner = runner
	}
	return inst, nil
}

func (a *app) launcher() *launcher.Launcher {
	return launcher.New(a.cfg.Settings.DownloadPath, a.store, nil)
}
