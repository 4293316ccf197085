package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SyncPath resolves the settings document, which lives next to the config so
// it travels with synced dotfiles.
func SyncPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "voicepad", "sync.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for sync store")
	}
	return filepath.Join(home, ".config", "voicepad", "sync.json"), nil
}

// LocalPath resolves the device-local transcript document.
func LocalPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "voicepad", "local.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for local store")
	}
	return filepath.Join(home, ".local", "state", "voicepad", "local.json"), nil
}

// Open returns the sync-scope and local-scope file stores.
func Open() (*File, *File, error) {
	syncPath, err := SyncPath()
	if err != nil {
		return nil, nil, err
	}
	localPath, err := LocalPath()
	if err != nil {
		return nil, nil, err
	}
	return NewFile(syncPath), NewFile(localPath), nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	return nil
}
