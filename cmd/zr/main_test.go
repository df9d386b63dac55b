package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_SuccessWithValidConfig(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configContent := `
[tasks.test]
cmd = ["echo", "hello"]
`
	configPath := tmpDir + "/zr.toml"
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	if err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	originalWd, _ := os.Getwd()
	err = os.Chdir(tmpDir)
	if err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	defer func() { _ = os.Chdir(originalWd) }()

	os.Args = []string{"zr", "run", "test"}

	exitCode := run()
	assert.Equal(t, exitSuccess, exitCode)
}

func TestRun_MissingConfigReturnsConfigExitCode(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	originalWd, _ := os.Getwd()
	err := os.Chdir(tmpDir)
	if err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	defer func() { _ = os.Chdir(originalWd) }()

	os.Args = []string{"zr", "run", "test"}

	exitCode := run()
	assert.Equal(t, exitConfig, exitCode)
}

func TestRun_StoreInitError(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configContent := `
[tasks.test]
cmd = ["echo", "hello"]
`
	configPath := tmpDir + "/zr.toml"
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	if err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	// Create .zr as a file, not a directory, so cas.NewStore fails to MkdirAll into it.
	zrPath := tmpDir + "/.zr"
	err = os.WriteFile(zrPath, []byte("not a directory"), 0o600)
	if err != nil {
		t.Fatalf("failed to create .zr file: %v", err)
	}

	originalWd, _ := os.Getwd()
	err = os.Chdir(tmpDir)
	if err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	defer func() { _ = os.Chdir(originalWd) }()

	os.Args = []string{"zr", "run", "test"}

	exitCode := run()
	assert.Equal(t, exitFailure, exitCode)
}
