package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/stockdesk/stockdesk/internal/logging"
)

// Project directory lookup.
const (
	EnvProjectDir  = "STOCKDESK_PROJECT_DIR"
	projectDirName = ".stockdesk"
)

// ErrNoProject is returned by FindProject when no project directory exists
// between the start directory and the filesystem root.
var ErrNoProject = errors.New("no .stockdesk project directory found")

// resolvedProjectDir holds the resolved project directory path for use
// by other config functions during the lifetime of a CLI invocation.
var (
	resolvedProjectDir   string       //nolint:gochecknoglobals // Set once at startup, read by config loaders
	resolvedProjectDirMu sync.RWMutex //nolint:gochecknoglobals // Protects resolvedProjectDir
)

// SetResolvedProjectDir stores the resolved project directory for use by other config functions.
func SetResolvedProjectDir(dir string) {
	resolvedProjectDirMu.Lock()
	defer resolvedProjectDirMu.Unlock()
	resolvedProjectDir = dir
}

// GetResolvedProjectDir returns the stored resolved project directory.
func GetResolvedProjectDir() string {
	resolvedProjectDirMu.RLock()
	defer resolvedProjectDirMu.RUnlock()
	return resolvedProjectDir
}

// FindProject walks up from startDir and returns the first directory that
// contains a .stockdesk/config.yaml. The global configuration directory is
// never treated as a project.
func FindProject(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	global, _ := GetConfigDir()

	for {
		candidate := filepath.Join(dir, projectDirName)
		if candidate != global {
			if info, statErr := os.Stat(filepath.Join(candidate, configFileName)); statErr == nil && !info.IsDir() {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProject
		}
		dir = parent
	}
}

// ResolveProjectDir determines the project-local .stockdesk directory path.
// It checks (in order):
//  1. flagValue (--project-dir CLI flag)
//  2. STOCKDESK_PROJECT_DIR env var
//  3. FindProject(startDir) walk-up
//
// Returns an absolute path or "" when no project is found. It never creates
// the directory.
func ResolveProjectDir(ctx context.Context, flagValue, startDir string) string {
	if flagValue != "" {
		return toAbsProjectDir(ctx, flagValue)
	}

	if envDir := os.Getenv(EnvProjectDir); envDir != "" {
		return toAbsProjectDir(ctx, envDir)
	}

	projectRoot, err := FindProject(startDir)
	if err != nil {
		if !errors.Is(err, ErrNoProject) {
			logger := logging.FromContext(ctx)
			logger.Warn().
				Str("component", "config").
				Err(err).
				Str("start_dir", startDir).
				Msg("unexpected error during project discovery")
		}
		return ""
	}

	return toAbsProjectDir(ctx, projectRoot)
}

// NewWithProjectDir builds a Config from the defaults, the global file, the
// project overlay in projectDir and finally the environment. Load failures
// are logged and the affected layer is skipped.
func NewWithProjectDir(ctx context.Context, projectDir string) *Config {
	logger := logging.FromContext(ctx)
	cfg := Default()

	if path := cfg.ConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			if loadErr := cfg.Load(path); loadErr != nil {
				logger.Warn().
					Str("component", "config").
					Str("operation", "load_global_config").
					Err(loadErr).
					Msg("failed to load global config, using defaults")
				cfg = Default()
			}
		}
	}

	if projectDir != "" {
		overlayPath := filepath.Join(projectDir, configFileName)
		if _, err := os.Stat(overlayPath); err == nil {
			merged := *cfg
			if mergeErr := ShallowMergeYAML(&merged, overlayPath); mergeErr != nil {
				logger.Warn().
					Str("component", "config").
					Str("operation", "merge_project_config").
					Err(mergeErr).
					Str("overlay_path", overlayPath).
					Msg("failed to merge project config, using global config")
			} else {
				cfg = &merged
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		logger.Warn().
			Str("component", "config").
			Str("operation", "apply_env").
			Err(err).
			Msg("ignoring invalid environment overrides")
	}
	return cfg
}

// toAbsProjectDir converts dir to an absolute path and appends ".stockdesk"
// unless it already ends with it.
func toAbsProjectDir(ctx context.Context, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().
			Str("component", "config").
			Err(err).
			Str("dir", dir).
			Msg("failed to resolve absolute path for project directory")
		abs = dir
	}

	if filepath.Base(abs) == projectDirName {
		return abs
	}

	return filepath.Join(abs, projectDirName)
}
