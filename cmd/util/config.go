package util

import (
	"github.com/spf13/cobra"

	"github.com/sidkik/sync-remote/pkg/config"
	"github.com/sidkik/sync-remote/pkg/errors"
)

// Mocked for unit testing.
var parseUserConfig = config.ParseUser

// ConfigFlags are the flags shared by commands that read the sync config.
// Flags that are set override the values in the config file.
type ConfigFlags struct {
	Path       string
	LocalPath  string
	RemotePath string
	RemoteHost string
}

// Bind registers the flags on `cmd`.
func (f *ConfigFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Path, "config", "",
		"Path to the config file. Defaults to "+config.UserConfigPath)
	cmd.Flags().StringVar(&f.LocalPath, "local-path", "",
		"Comma separated local directories to sync")
	cmd.Flags().StringVar(&f.RemotePath, "remote-path", "",
		"Comma separated remote directories, paired with --local-path")
	cmd.Flags().StringVar(&f.RemoteHost, "remote-host", "",
		"Comma separated remote hosts, paired with --local-path")
}

// Load reads the config file and applies the flag overrides. It's meant to
// be called once per sync so that edits to the file are picked up.
func (f ConfigFlags) Load() (config.User, error) {
	cfg, err := parseUserConfig(f.Path)
	if err != nil {
		return config.User{}, errors.WithContext(err, "parse config")
	}

	if f.LocalPath != "" {
		cfg.LocalPath = f.LocalPath
	}
	if f.RemotePath != "" {
		cfg.RemotePath = f.RemotePath
	}
	if f.RemoteHost != "" {
		cfg.RemoteHost = f.RemoteHost
	}

	if err := cfg.Validate(); err != nil {
		return config.User{}, errors.NewFriendlyError("Invalid sync config:\n%s", err)
	}
	return cfg, nil
}

// ErrNotConfigured is shown when a command needs a sync config but there
// isn't one.
var ErrNotConfigured = errors.NewFriendlyError("Syncing isn't configured. " +
	"Run `sync-remote config` or pass --local-path, --remote-path and --remote-host.")
