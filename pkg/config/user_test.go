package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/sync-remote/pkg/errors"
	"github.com/sidkik/sync-remote/pkg/mapping"
	"github.com/sidkik/sync-remote/pkg/transfer"
)

func TestParseUser(t *testing.T) {
	out := ".sync-remote.yaml"
	userEmptyVersion := User{
		LocalPath:  "~/src",
		RemotePath: "/srv/src",
		RemoteHost: "web",
	}
	userInitialVersion := User{
		Version:    InitialUserConfigVersion,
		LocalPath:  "~/src",
		RemotePath: "/srv/src",
		RemoteHost: "web",
	}
	userCorrectVersion := User{
		Version:    SupportedUserConfigVersion,
		LocalPath:  "~/src",
		RemotePath: "/srv/src",
		RemoteHost: "web",
	}
	userIncorrectVersion := User{
		Version:    "incorrect_version",
		LocalPath:  "~/src",
		RemotePath: "/srv/src",
		RemoteHost: "web",
	}
	userEmptyVersionString, err := yaml.Marshal(userEmptyVersion)
	assert.NoError(t, err)
	userCorrectVersionString, err := yaml.Marshal(userCorrectVersion)
	assert.NoError(t, err)
	userIncorrectVersionString, err := yaml.Marshal(userIncorrectVersion)
	assert.NoError(t, err)

	tests := []struct {
		name      string
		input     []byte
		expConfig User
		expError  error
	}{
		{
			name:      "Missing version",
			input:     userEmptyVersionString,
			expConfig: userInitialVersion,
		},
		{
			name:      "Correct version",
			input:     userCorrectVersionString,
			expConfig: userCorrectVersion,
		},
		{
			name:  "Incorrect version",
			input: userIncorrectVersionString,
			expError: errors.WithContext(versionError{
				path:   out,
				exp:    SupportedUserConfigVersion,
				actual: userIncorrectVersion.Version,
			}, "parse"),
		},
		{
			name: "Incorrect version is reported before extra fields",
			input: []byte(`
version: incorrect_version
extra: fields
`),
			expError: errors.WithContext(versionError{
				path:   out,
				exp:    SupportedUserConfigVersion,
				actual: "incorrect_version",
			}, "parse"),
		},
	}

	fs = afero.NewMemMapFs()
	homedirExpand = func(_ string) (string, error) {
		return out, nil
	}
	for _, test := range tests {
		err := afero.WriteFile(fs, out, test.input, 0644)
		assert.NoError(t, err)
		config, err := ParseUser("")
		assert.Equal(t, test.expConfig, config, test.name)
		assert.Equal(t, test.expError, err, test.name)
	}
}

func TestParseUserExtraFields(t *testing.T) {
	fs = afero.NewMemMapFs()
	homedirExpand = func(path string) (string, error) {
		return path, nil
	}

	input := fmt.Sprintf("version: %s\nextra: fields", SupportedUserConfigVersion)
	require.NoError(t, afero.WriteFile(fs, "/cfg.yaml", []byte(input), 0644))

	_, err := ParseUser("/cfg.yaml")
	require.Error(t, err)
	assert.Contains(t, errors.GetPrintableMessage(err), `unknown field "extra"`)
	assert.Contains(t, errors.GetPrintableMessage(err), `The sync config at "/cfg.yaml" could not be parsed.`)
}

func TestParseUserInvalid(t *testing.T) {
	fs = afero.NewMemMapFs()
	homedirExpand = func(path string) (string, error) {
		return path, nil
	}

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("localPath: [unclosed"), 0644))
	_, err := ParseUser("/bad.yaml")
	require.Error(t, err)
	assert.Contains(t, errors.GetPrintableMessage(err), `The sync config at "/bad.yaml" could not be parsed.`)

	require.NoError(t, afero.WriteFile(fs, "/old.yaml", []byte("version: v0"), 0644))
	_, err = ParseUser("/old.yaml")
	require.Error(t, err)
	assert.Equal(t, `The sync config at "/old.yaml" has version "v0", but this `+
		`release of sync-remote only reads "v1alpha1".`, errors.GetPrintableMessage(err))
}

func TestParseUserMissingFile(t *testing.T) {
	fs = afero.NewMemMapFs()
	homedirExpand = func(path string) (string, error) {
		return path, nil
	}

	cfg, err := ParseUser("/does/not/exist.yaml")
	assert.NoError(t, err)
	assert.False(t, cfg.Configured())
	assert.True(t, cfg.ShouldSyncOnSave())
}

func TestParseUserDurations(t *testing.T) {
	fs = afero.NewMemMapFs()
	homedirExpand = func(path string) (string, error) {
		return path, nil
	}

	input := `
localPath: ~/a, ~/b
remotePath: /srv/a
remoteHost: web
syncOnSave: false
connectTimeout: 10s
commandTimeout: 1m
statusDuration: 500ms
ignore: ["*.swp", ".#*"]
`
	require.NoError(t, afero.WriteFile(fs, "/cfg.yaml", []byte(input), 0644))

	cfg, err := ParseUser("/cfg.yaml")
	require.NoError(t, err)
	assert.False(t, cfg.ShouldSyncOnSave())
	assert.Equal(t, 10*time.Second, cfg.GetConnectTimeout())
	assert.Equal(t, Duration(time.Minute), cfg.CommandTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.GetStatusDuration())
	assert.True(t, cfg.Ignored("/home/kevin/a/.main.go.swp"))
	assert.True(t, cfg.Ignored("/home/kevin/a/.#main.go"))
	assert.False(t, cfg.Ignored("/home/kevin/a/main.go"))
	assert.Equal(t, mapping.Set{
		{LocalRoot: "~/a", RemoteRoot: "/srv/a", RemoteHost: "web"},
		{LocalRoot: "~/b", RemoteRoot: "/srv/a", RemoteHost: "web"},
	}, cfg.Mappings())

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("connectTimeout: soon"), 0644))
	_, err = ParseUser("/bad.yaml")
	assert.Error(t, err)
}

func TestParseWrittenUser(t *testing.T) {
	fs = afero.NewMemMapFs()
	homedirExpand = func(_ string) (string, error) {
		return ".sync-remote.yaml", nil
	}

	syncOnSave := false
	user := User{
		LocalPath:      "~/src",
		RemotePath:     "/srv/src",
		RemoteHost:     "web",
		RemoteUser:     "deploy",
		SyncOnSave:     &syncOnSave,
		ConnectTimeout: Duration(2 * time.Second),
		Ignore:         []string{"*.tmp"},
	}

	// Write the user to disk, and assert that we get the same user config when
	// we parse it.
	assert.NoError(t, WriteUser("", user))

	parsed, err := ParseUser("")
	assert.NoError(t, err)

	user.Version = SupportedUserConfigVersion
	assert.Equal(t, user, parsed)
}

func TestDefaults(t *testing.T) {
	var cfg User
	assert.True(t, cfg.ShouldSyncOnSave())
	assert.Equal(t, transfer.DefaultConnectTimeout, cfg.GetConnectTimeout())
	assert.Equal(t, DefaultStatusDuration, cfg.GetStatusDuration())
	assert.False(t, cfg.Ignored("main.go"))
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := User{
		LocalPath:      "/a",
		ConnectTimeout: Duration(-time.Second),
		Ignore:         []string{"["},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/a: missing required field: remotePath")
	assert.Contains(t, err.Error(), "connectTimeout must not be negative")
	assert.Contains(t, err.Error(), "ignore pattern [")

	cfg = User{LocalPath: "/a,/b", RemotePath: "/srv", RemoteHost: "web"}
	assert.NoError(t, cfg.Validate())

	// A trailing comma doesn't add a rule.
	cfg = User{LocalPath: "/a,", RemotePath: "/srv", RemoteHost: "web"}
	assert.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Mappings(), 1)
}
