package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"
	multierror "github.com/hashicorp/go-multierror"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/sync-remote/pkg/errors"
	"github.com/sidkik/sync-remote/pkg/mapping"
	"github.com/sidkik/sync-remote/pkg/transfer"
)

const (
	// UserConfigPath is the default path to the sync-remote config.
	UserConfigPath = "~/.sync-remote.yaml"

	// InitialUserConfigVersion is the first version of the config. Config
	// files that do not specify a version will default to this version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the supported version of the config of
	// the current binary.
	SupportedUserConfigVersion = "v1alpha1"

	// DefaultStatusDuration is how long a sync result stays displayed.
	DefaultStatusDuration = 3 * time.Second
)

// User contains the sync configuration. The path and host fields are comma
// separated lists that are paired up by index.
type User struct {
	Version    string `json:"version,omitempty"`
	LocalPath  string `json:"localPath,omitempty"`
	RemotePath string `json:"remotePath,omitempty"`
	RemoteHost string `json:"remoteHost,omitempty"`

	// RemoteUser is used for hosts that don't already specify a user.
	RemoteUser string `json:"remoteUser,omitempty"`

	// SyncOnSave defaults to true.
	SyncOnSave *bool `json:"syncOnSave,omitempty"`

	ConnectTimeout Duration `json:"connectTimeout,omitempty"`
	CommandTimeout Duration `json:"commandTimeout,omitempty"`
	StatusDuration Duration `json:"statusDuration,omitempty"`

	// Ignore contains glob patterns matched against file names. Matching
	// files are never synced on save.
	Ignore []string `json:"ignore,omitempty"`

	// RespectGitignore skips files excluded by .gitignore files in the local
	// paths.
	RespectGitignore bool `json:"respectGitignore,omitempty"`
}

// Duration is a time.Duration that's written as a string such as "5s".
type Duration time.Duration

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.WithContext(err, "duration must be a string")
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Mocked for unit testing.
var (
	fs            = afero.NewOsFs()
	homedirExpand = homedir.Expand
)

const invalidConfigTemplate = "The sync config at %q could not be parsed.\n" +
	"Check that every field is spelled correctly and has the right type, or\n" +
	"rewrite the file with `sync-remote config`.\n\n" +
	"Parser error: %s"

// versionError is returned for config files written by an incompatible
// release.
type versionError struct {
	path, exp, actual string
}

func (err versionError) Error() string {
	return err.FriendlyMessage()
}

func (err versionError) FriendlyMessage() string {
	return fmt.Sprintf("The sync config at %q has version %q, but this "+
		"release of sync-remote only reads %q.", err.path, err.actual, err.exp)
}

// ParseUser parses the config at `path`, or at the default location if
// `path` is empty. A missing file isn't an error: it means that syncing
// hasn't been configured yet.
func ParseUser(path string) (User, error) {
	path, err := GetUserConfigPath(path)
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	raw, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
		log.WithField("path", path).Debug("Config file doesn't exist. Syncing is not configured")
		return User{Version: SupportedUserConfigVersion}, nil
	case err != nil:
		return User{}, errors.WithContext(err, "read")
	}

	cfg, err := decodeUser(path, raw)
	if err != nil {
		return User{}, errors.WithContext(err, "parse")
	}
	return cfg, nil
}

// decodeUser checks the version before rejecting unknown fields, so that a
// file from another release reports the version mismatch rather than the
// fields it doesn't recognize.
func decodeUser(path string, raw []byte) (User, error) {
	cfg := User{Version: InitialUserConfigVersion}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return User{}, errors.NewFriendlyError(invalidConfigTemplate, path, err)
	}

	if cfg.Version != SupportedUserConfigVersion {
		return User{}, versionError{path, SupportedUserConfigVersion, cfg.Version}
	}

	if err := yaml.UnmarshalStrict(raw, &cfg, yaml.DisallowUnknownFields); err != nil {
		return User{}, errors.NewFriendlyError(invalidConfigTemplate, path, err)
	}
	return cfg, nil
}

// WriteUser writes the given config to `path`, or the default location if
// `path` is empty.
func WriteUser(path string, cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath(path)
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the expanded path to the config, so it can be
// directly passed to file operations.
func GetUserConfigPath(path string) (string, error) {
	if path == "" {
		path = UserConfigPath
	}
	return homedirExpand(path)
}

// Mappings parses the configured paths and hosts into sync rules.
func (u User) Mappings() mapping.Set {
	return mapping.Parse(u.LocalPath, u.RemotePath, u.RemoteHost)
}

// Configured returns whether any local paths are set.
func (u User) Configured() bool {
	return !u.Mappings().Empty()
}

// ShouldSyncOnSave returns whether files should be synced when they're saved.
func (u User) ShouldSyncOnSave() bool {
	return u.SyncOnSave == nil || *u.SyncOnSave
}

// GetConnectTimeout returns the configured connection timeout, or the default.
func (u User) GetConnectTimeout() time.Duration {
	if u.ConnectTimeout <= 0 {
		return transfer.DefaultConnectTimeout
	}
	return time.Duration(u.ConnectTimeout)
}

// GetStatusDuration returns how long sync results stay displayed.
func (u User) GetStatusDuration() time.Duration {
	if u.StatusDuration <= 0 {
		return DefaultStatusDuration
	}
	return time.Duration(u.StatusDuration)
}

// Ignored returns whether `path` matches one of the ignore patterns.
func (u User) Ignored(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range u.Ignore {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Validate returns every problem with the config. An unconfigured config is
// valid.
func (u User) Validate() error {
	var result *multierror.Error
	for _, rule := range u.Mappings() {
		if rule.RemoteRoot == "" {
			result = multierror.Append(result, errors.WithContext(
				errors.MissingFieldError{Field: "remotePath"}, rule.LocalRoot))
		}
	}

	durations := []struct {
		name string
		d    Duration
	}{
		{"connectTimeout", u.ConnectTimeout},
		{"commandTimeout", u.CommandTimeout},
		{"statusDuration", u.StatusDuration},
	}
	for _, field := range durations {
		if field.d < 0 {
			result = multierror.Append(result, errors.New("%s must not be negative", field.name))
		}
	}

	for _, pattern := range u.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result = multierror.Append(result, errors.WithContext(err, "ignore pattern "+pattern))
		}
	}
	return result.ErrorOrNil()
}
