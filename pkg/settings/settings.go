// Package settings loads lingoswitch's own configuration from settings.toml in
// the user's XDG config directory. Missing files and blank values fall back
// to defaults.
package settings

import (
	"errors"
	"fmt"
	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	appName = "lingoswitch"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	PlatformWindows  = "windows"
	PlatformSnapshot = "snapshot"

	defaultWatchInterval = 5 * time.Second
)

var ErrInvalidSettings = errors.New("invalid settings")

type Settings struct {
	Store    Store    `toml:"store"`
	Layouts  Layouts  `toml:"layouts"`
	Platform Platform `toml:"platform"`
	Watch    Watch    `toml:"watch"`
}

type Store struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type Layouts struct {
	// Path to a layout table overriding the built-in one.
	Path string `toml:"path"`
}

type Platform struct {
	Kind     string `toml:"kind"`
	Snapshot string `toml:"snapshot"`
}

type Watch struct {
	Interval string `toml:"interval"`
}

// DefaultPath is settings.toml under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "settings.toml")
}

func Defaults() Settings {
	return Settings{
		Store: Store{Backend: BackendJSON},
		Platform: Platform{
			Kind: PlatformWindows,
		},
		Watch: Watch{Interval: defaultWatchInterval.String()},
	}
}

// Load reads the settings at path, or DefaultPath when path is blank.
func Load(path string) (Settings, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}

	s := Defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, s.finish()
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}

	return s, s.finish()
}

func (s *Settings) finish() error {
	s.Store.Backend = strings.ToLower(strings.TrimSpace(s.Store.Backend))
	if s.Store.Backend == "" {
		s.Store.Backend = BackendJSON
	}

	s.Platform.Kind = strings.ToLower(strings.TrimSpace(s.Platform.Kind))
	if s.Platform.Kind == "" {
		s.Platform.Kind = PlatformWindows
	}

	if strings.TrimSpace(s.Watch.Interval) == "" {
		s.Watch.Interval = defaultWatchInterval.String()
	}

	return s.Validate()
}

func (s Settings) Validate() error {
	switch s.Store.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidSettings, s.Store.Backend)
	}

	switch s.Platform.Kind {
	case PlatformWindows:
	case PlatformSnapshot:
		if strings.TrimSpace(s.Platform.Snapshot) == "" {
			return fmt.Errorf("%w: snapshot platform needs platform.snapshot", ErrInvalidSettings)
		}
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidSettings, s.Platform.Kind)
	}

	if _, err := s.WatchInterval(); err != nil {
		return err
	}

	return nil
}

func (s Settings) WatchInterval() (time.Duration, error) {
	d, err := time.ParseDuration(s.Watch.Interval)
	if err != nil {
		return 0, fmt.Errorf("%w: watch.interval: %w", ErrInvalidSettings, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: watch.interval must be positive", ErrInvalidSettings)
	}
	return d, nil
}

// StorePath is where profiles are persisted: store.path, or a per-user
// location picked by backend.
func (s Settings) StorePath() (string, error) {
	if p := strings.TrimSpace(s.Store.Path); p != "" {
		return expandPath(p)
	}

	name := "config.json"
	if s.Store.Backend == BackendSQLite {
		name = "profiles.db"
	}

	path, err := xdg.ConfigFile(filepath.Join(appName, name))
	if err != nil {
		return "", fmt.Errorf("resolve store path: %w", err)
	}
	return path, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// ExpandPath resolves ~ and relative paths; blank stays blank.
func ExpandPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	return expandPath(strings.TrimSpace(path))
}
