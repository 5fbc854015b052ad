package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// appDirName is the subdirectory used under platform convention directories.
const appDirName = "promptops"

// ResolveCacheDir returns the directory for the response cache store.
// If override is non-empty it is returned as-is; otherwise the platform
// cache directory convention is applied (e.g., ~/.cache/promptops on Linux).
//
// This is intended to be called once at startup; components receive the
// resolved path explicitly and never consult the environment themselves.
func ResolveCacheDir(override string) (string, error) {
	return resolveDir(override, os.UserCacheDir)
}

// ResolveDataDir returns the directory for the budget store. If override is
// non-empty it is returned as-is; otherwise the platform config directory
// convention is applied (e.g., ~/.config/promptops on Linux).
func ResolveDataDir(override string) (string, error) {
	return resolveDir(override, os.UserConfigDir)
}

func resolveDir(override string, conventionDir func() (string, error)) (string, error) {
	if override != "" {
		return override, nil
	}
	base, err := conventionDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve platform directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}
