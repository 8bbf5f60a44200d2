package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/sync-remote/pkg/config"
	"github.com/sidkik/sync-remote/pkg/errors"
)

func TestHandleFatalError(t *testing.T) {
	oldExit, oldStderr := exit, stderr
	defer func() {
		exit = oldExit
		stderr = oldStderr
	}()

	var exitCode int
	var out bytes.Buffer
	exit = func(code int) { exitCode = code }
	stderr = &out

	HandleFatalError(errors.WithContext(ErrNotConfigured, "sync"))
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, out.String(), "Syncing isn't configured.")
	assert.NotContains(t, out.String(), "sync:")
}

func TestConfigFlagsLoad(t *testing.T) {
	defer func(old func(string) (config.User, error)) { parseUserConfig = old }(parseUserConfig)

	var parsedPath string
	parseUserConfig = func(path string) (config.User, error) {
		parsedPath = path
		return config.User{
			LocalPath:  "~/a",
			RemotePath: "/srv/a",
			RemoteHost: "web",
			RemoteUser: "deploy",
		}, nil
	}

	tests := []struct {
		name   string
		flags  ConfigFlags
		expCfg config.User
	}{
		{
			name:  "No overrides",
			flags: ConfigFlags{Path: "/cfg.yaml"},
			expCfg: config.User{
				LocalPath:  "~/a",
				RemotePath: "/srv/a",
				RemoteHost: "web",
				RemoteUser: "deploy",
			},
		},
		{
			name: "Overrides",
			flags: ConfigFlags{
				Path:       "/cfg.yaml",
				LocalPath:  "/b",
				RemoteHost: "db",
			},
			expCfg: config.User{
				LocalPath:  "/b",
				RemotePath: "/srv/a",
				RemoteHost: "db",
				RemoteUser: "deploy",
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			cfg, err := test.flags.Load()
			require.NoError(t, err)
			assert.Equal(t, test.expCfg, cfg)
			assert.Equal(t, "/cfg.yaml", parsedPath)
		})
	}
}

func TestConfigFlagsLoadErrors(t *testing.T) {
	defer func(old func(string) (config.User, error)) { parseUserConfig = old }(parseUserConfig)

	parseUserConfig = func(string) (config.User, error) {
		return config.User{}, errors.New("bad yaml")
	}
	_, err := ConfigFlags{}.Load()
	assert.EqualError(t, err, "parse config: bad yaml")

	parseUserConfig = func(string) (config.User, error) {
		return config.User{LocalPath: "/a"}, nil
	}
	_, err = ConfigFlags{}.Load()
	require.Error(t, err)
	assert.Contains(t, errors.GetPrintableMessage(err), "Invalid sync config:")
	assert.Contains(t, errors.GetPrintableMessage(err), "missing required field: remotePath")
}
