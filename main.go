package main

import (
	"codeberg.org/miketth/lingoswitch/pkg/inputmethod"
	"codeberg.org/miketth/lingoswitch/pkg/kblayouts"
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"codeberg.org/miketth/lingoswitch/pkg/platform/snapshot"
	"codeberg.org/miketth/lingoswitch/pkg/platform/win"
	"codeberg.org/miketth/lingoswitch/pkg/profilestore"
	profilejson "codeberg.org/miketth/lingoswitch/pkg/profilestore/json"
	"codeberg.org/miketth/lingoswitch/pkg/profilestore/sqlite"
	"codeberg.org/miketth/lingoswitch/pkg/settings"
	"context"
	"fmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"log"
)

func main() {
	err := newCLI().Execute()
	if err != nil {
		log.Fatalf("error: %+v", err)
	}
}

// machine is everything lingoswitch needs from the operating system.
type machine interface {
	lingoswitch.LayoutSource
	lingoswitch.SystemLanguages
	lingoswitch.LanguageApplier
	inputmethod.RegistryReader
}

type app struct {
	closed bool

	log        *zap.SugaredLogger
	settings   settings.Settings
	layouts    *kblayouts.Registry
	store      *profilestore.Store
	enumerator *lingoswitch.Enumerator
	switcher   *lingoswitch.Switcher
}

type options struct {
	settingsPath string
	debug        bool
	backend      string
	storePath    string
	snapshotPath string
}

func newApp(ctx context.Context, opts options) (*app, error) {
	log, err := newLogger(opts.debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	cfg, err := settings.Load(opts.settingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if opts.backend != "" {
		cfg.Store.Backend = opts.backend
	}
	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
	}
	if opts.snapshotPath != "" {
		cfg.Platform.Kind = settings.PlatformSnapshot
		cfg.Platform.Snapshot = opts.snapshotPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	layouts, err := loadLayouts(cfg)
	if err != nil {
		return nil, fmt.Errorf("load layouts: %w", err)
	}

	m, err := newMachine(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect platform: %w", err)
	}

	backend, err := newBackend(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create profile backend: %w", err)
	}

	store, err := profilestore.Open(ctx, backend, m, log)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open profile store: %w", err)
	}

	enumerator := lingoswitch.NewEnumerator(m, m, layouts, log)

	return &app{
		log:        log,
		settings:   cfg,
		layouts:    layouts,
		store:      store,
		enumerator: enumerator,
		switcher:   lingoswitch.NewSwitcher(store, enumerator, m, log),
	}, nil
}

func (a *app) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	a.switcher.Wait()
	_ = a.log.Sync()
	return a.store.Close()
}

func loadLayouts(cfg settings.Settings) (*kblayouts.Registry, error) {
	path, err := settings.ExpandPath(cfg.Layouts.Path)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return kblayouts.Default()
	}
	return kblayouts.ParseLayouts(path)
}

func newMachine(cfg settings.Settings) (machine, error) {
	switch cfg.Platform.Kind {
	case settings.PlatformSnapshot:
		path, err := settings.ExpandPath(cfg.Platform.Snapshot)
		if err != nil {
			return nil, err
		}
		m, err := snapshot.Load(path)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		p, err := win.New()
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func newBackend(cfg settings.Settings, log *zap.SugaredLogger) (profilestore.Backend, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}

	log.Debugw("using profile store", "backend", cfg.Store.Backend, "path", path)

	switch cfg.Store.Backend {
	case settings.BackendSQLite:
		return sqlite.NewBackend(path, log)
	default:
		return profilejson.NewBackend(path)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	loggerConfig := zap.NewDevelopmentConfig()

	loggerConfig.OutputPaths = []string{"stderr"}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.Sugar(), nil
}
