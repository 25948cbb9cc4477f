package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/cli"
	"github.com/stockdesk/stockdesk/internal/config"
)

// setupConfigInitTest isolates the global config dir and resets global state.
func setupConfigInitTest(t *testing.T) string {
	t.Helper()
	t.Setenv("STOCKDESK_LOG_LEVEL", "error")
	t.Setenv("STOCKDESK_SKIP_DOTENV", "1")
	t.Setenv(config.EnvProjectDir, "")
	globalDir := t.TempDir()
	t.Setenv(config.EnvHome, globalDir)
	t.Cleanup(func() {
		config.ResetGlobalConfigForTest()
		config.SetResolvedProjectDir("")
	})
	return globalDir
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestConfigInit_InsideProject verifies that "config init" with a project
// directory creates .stockdesk/config.yaml and .stockdesk/.gitignore.
func TestConfigInit_InsideProject(t *testing.T) {
	setupConfigInitTest(t)
	tmpDir := t.TempDir()
	t.Setenv(config.EnvProjectDir, tmpDir)

	output, err := executeRoot(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration initialized at")

	_, statErr := os.Stat(filepath.Join(tmpDir, ".stockdesk", "config.yaml"))
	require.NoError(t, statErr, ".stockdesk/config.yaml should exist")

	gitignoreData, readErr := os.ReadFile(filepath.Join(tmpDir, ".stockdesk", ".gitignore"))
	require.NoError(t, readErr)
	assert.Equal(t, config.GitignoreContent(), string(gitignoreData))
}

// TestConfigInit_ExistingGitignorePreserved verifies that "config init --force"
// never overwrites an existing .gitignore.
func TestConfigInit_ExistingGitignorePreserved(t *testing.T) {
	setupConfigInitTest(t)
	tmpDir := t.TempDir()

	projectDir := filepath.Join(tmpDir, ".stockdesk")
	require.NoError(t, os.MkdirAll(projectDir, 0o750))
	customContent := "# My custom gitignore\n*.secret\n"
	gitignorePath := filepath.Join(projectDir, ".gitignore")
	require.NoError(t, os.WriteFile(gitignorePath, []byte(customContent), 0o644))
	t.Setenv(config.EnvProjectDir, tmpDir)

	_, err := executeRoot(t, "config", "init", "--force")
	require.NoError(t, err)

	gitignoreData, readErr := os.ReadFile(gitignorePath)
	require.NoError(t, readErr)
	assert.Equal(t, customContent, string(gitignoreData))
}

// TestConfigInit_GlobalFlag verifies that --global writes to STOCKDESK_HOME
// even inside a project.
func TestConfigInit_GlobalFlag(t *testing.T) {
	globalDir := setupConfigInitTest(t)
	tmpDir := t.TempDir()
	t.Setenv(config.EnvProjectDir, tmpDir)

	output, err := executeRoot(t, "config", "init", "--global")
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration initialized successfully")

	_, statErr := os.Stat(filepath.Join(globalDir, "config.yaml"))
	require.NoError(t, statErr)

	_, statErr = os.Stat(filepath.Join(tmpDir, ".stockdesk", "config.yaml"))
	assert.True(t, os.IsNotExist(statErr), "no project config with --global")
}

// TestConfigInit_OutsideProject verifies the global fallback when no project
// directory resolves.
func TestConfigInit_OutsideProject(t *testing.T) {
	globalDir := setupConfigInitTest(t)

	cmd := cli.NewConfigInitCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Configuration initialized successfully")

	_, statErr := os.Stat(filepath.Join(globalDir, "config.yaml"))
	require.NoError(t, statErr)
}

// TestConfigInit_RefusesOverwrite verifies that an existing file needs --force.
func TestConfigInit_RefusesOverwrite(t *testing.T) {
	setupConfigInitTest(t)

	_, err := executeRoot(t, "config", "init", "--global")
	require.NoError(t, err)

	_, err = executeRoot(t, "config", "init", "--global")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

// TestConfigInit_ForceOverwritesConfig verifies that --force replaces an
// existing project config with defaults.
func TestConfigInit_ForceOverwritesConfig(t *testing.T) {
	setupConfigInitTest(t)
	tmpDir := t.TempDir()

	projectDir := filepath.Join(tmpDir, ".stockdesk")
	require.NoError(t, os.MkdirAll(projectDir, 0o750))
	existingConfig := filepath.Join(projectDir, "config.yaml")
	originalContent := "# old config\noutput:\n  default_format: json\n"
	require.NoError(t, os.WriteFile(existingConfig, []byte(originalContent), 0o644))
	t.Setenv(config.EnvProjectDir, tmpDir)

	output, err := executeRoot(t, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration initialized at")

	newContent, readErr := os.ReadFile(existingConfig)
	require.NoError(t, readErr)
	assert.NotEqual(t, originalContent, string(newContent))
	assert.Contains(t, string(newContent), "default_format: table")
}

func TestConfigSetGet(t *testing.T) {
	globalDir := setupConfigInitTest(t)

	output, err := executeRoot(t, "config", "set", "output.page_size", "50", "--global")
	require.NoError(t, err)
	assert.Contains(t, output, "Set output.page_size = 50")

	data, err := os.ReadFile(filepath.Join(globalDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "page_size: 50")

	config.ResetGlobalConfigForTest()
	output, err = executeRoot(t, "config", "get", "output.page_size")
	require.NoError(t, err)
	assert.Contains(t, output, "50")
}

func TestConfigSet_RejectsInvalid(t *testing.T) {
	setupConfigInitTest(t)

	_, err := executeRoot(t, "config", "set", "output.page_size", "5000", "--global")
	require.Error(t, err)

	_, err = executeRoot(t, "config", "set", "no.such_key", "1", "--global")
	require.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestConfigSet_ProjectOverlayWins(t *testing.T) {
	setupConfigInitTest(t)
	tmpDir := t.TempDir()
	t.Setenv(config.EnvProjectDir, tmpDir)

	_, err := executeRoot(t, "config", "set", "output.default_format", "yaml")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(tmpDir, ".stockdesk", "config.yaml"))
	require.NoError(t, statErr)

	config.ResetGlobalConfigForTest()
	output, err := executeRoot(t, "config", "get", "output.default_format")
	require.NoError(t, err)
	assert.Contains(t, output, "yaml")
}

func TestConfigValidate(t *testing.T) {
	setupConfigInitTest(t)

	output, err := executeRoot(t, "config", "validate", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration is valid")
	assert.Contains(t, output, "api.base_url")
}
