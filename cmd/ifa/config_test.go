// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifa-app/ifa/internal/config"
	"github.com/ifa-app/ifa/pkg/errutil"
)

func TestConfigCommand_PrintsRedactedConfig(t *testing.T) {
	isolateEnv(t)
	t.Setenv("IFA_SESSION_SECRET", testSessionSecret)
	t.Setenv("IFA_DATABASE_URL", "postgres://ifa:hunter2@db:5432/ifa")

	out, _, err := execute(t, nil, "", "config", "--http-addr", "0.0.0.0:9999")
	require.NoError(t, err)

	assert.Contains(t, out, "http_addr: 0.0.0.0:9999")
	assert.Contains(t, out, "session_secret: ")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "REDACTED@db:5432")
	assert.NotContains(t, out, testSessionSecret)
	assert.NotContains(t, out, "hunter2")
}

func TestConfigInit(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "ifa.yaml")

	out, _, err := execute(t, nil, "", "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := config.Load(config.LoadOptions{Path: path, Environ: func() []string { return nil }})
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), *cfg)

	_, _, err = execute(t, nil, "", "--config", path, "config", "init")
	errutil.AssertErrorCode(t, err, "CONFIG_EXISTS")

	_, _, err = execute(t, nil, "", "--config", path, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigInit_DefaultsToXDGPath(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, nil, "", "config", "init")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "ifa", "config.yaml"))
	assert.NoError(t, err)
}
