package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/sync-remote/cmd/util"
	"github.com/sidkik/sync-remote/pkg/config"
	"github.com/sidkik/sync-remote/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	parseUserConfig               = config.ParseUser
	writeUserConfig               = config.WriteUser
	getWorkingDirectory           = os.Getwd
)

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts config.User
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the sync configuration",
		Long: "Interactively choose the local directory to watch and the remote\n" +
			"host and directory that files are copied to. Several directories\n" +
			"can be synced by separating the paths with commas.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(path, cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&path, "config", "",
		"Path to the config file. Defaults to "+config.UserConfigPath)
	cmd.Flags().StringVar(&cliOpts.LocalPath, "local-path", "",
		"Set the local path in the config. "+
			"Optional: If not set, `sync-remote config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.RemoteHost, "remote-host", "",
		"Set the remote host in the config. "+
			"Optional: If not set, `sync-remote config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.RemotePath, "remote-path", "",
		"Set the remote path in the config. "+
			"Optional: If not set, `sync-remote config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.RemoteUser, "remote-user", "",
		"Set the user to log in to the remote host as.")

	getters := []struct {
		use, short string
		fn         func(config.User) string
	}{
		{
			use:   "get-local-path",
			short: "Get the configured local paths",
			fn:    func(cfg config.User) string { return cfg.LocalPath },
		},
		{
			use:   "get-remote-host",
			short: "Get the configured remote hosts",
			fn:    func(cfg config.User) string { return cfg.RemoteHost },
		},
		{
			use:   "get-remote-path",
			short: "Get the configured remote paths",
			fn:    func(cfg config.User) string { return cfg.RemotePath },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseUserConfig(path)
				if err != nil {
					util.HandleFatalError(errors.WithContext(err, "read config"))
				}
				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig prompts for any fields missing from `cliOpts`, and writes the
// result to `path`.
func SetupConfig(path string, cliOpts config.User) error {
	cfg, err := generateConfig(path, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := cfg.Validate(); err != nil {
		return errors.WithContext(err, "validate")
	}

	if err := writeUserConfig(path, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fullPath, err := config.GetUserConfigPath(path)
	if err != nil {
		return errors.WithContext(err, "get user config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", fullPath)
	return nil
}

// hostPattern matches `host`, `user@host` and `user:password@host`.
var hostPattern = regexp.MustCompile(`^([A-Za-z0-9._-]+(:[^@\s,]+)?@)?[A-Za-z0-9._:\[\]-]+$`)

// hostValidationFn accepts a comma separated list of hosts. An empty answer
// means files are copied within the local machine.
func hostValidationFn(hosts string) (string, bool) {
	if strings.TrimSpace(hosts) == "" {
		return "", true
	}

	for _, host := range strings.Split(hosts, ",") {
		if !hostPattern.MatchString(strings.TrimSpace(host)) {
			return fmt.Sprintf("%q isn't a valid host. Enter a hostname, "+
				"user@hostname or user:password@hostname, separated by commas.", host), false
		}
	}
	return "", true
}

func nonEmptyValidationFn(answer string) (string, bool) {
	if strings.TrimSpace(answer) == "" {
		return "A value is required.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is. Fields that were set on the command line aren't prompted
// for.
func generateConfig(path string, cliOpts config.User) (config.User, error) {
	currConfig, err := parseUserConfig(path)
	if err != nil {
		log.WithError(err).Debug("Failed to read current config")
		currConfig = config.User{}
	}

	cfg := currConfig
	cfg.Version = config.SupportedUserConfigVersion
	if cliOpts.RemoteUser != "" {
		cfg.RemoteUser = cliOpts.RemoteUser
	}

	var defaultLocal string
	if wd, err := getWorkingDirectory(); err == nil {
		defaultLocal = wd
	} else {
		log.WithError(err).Info("Failed to get working directory")
	}

	reader := bufio.NewReader(stdin)
	cfg.LocalPath = cliOpts.LocalPath
	cfg.RemoteHost = cliOpts.RemoteHost
	cfg.RemotePath = cliOpts.RemotePath

	if cfg.LocalPath == "" {
		if err := ask(reader, prompt{
			helpString: "Enter the local directory to watch for saved files.\n" +
				"It defaults to the current directory.",
			prompt:        "Local path",
			defaultAnswer: defaultLocal,
			currAnswer:    currConfig.LocalPath,
			field:         &cfg.LocalPath,
			validationFn:  nonEmptyValidationFn,
		}); err != nil {
			return config.User{}, err
		}
	}

	if cfg.RemoteHost == "" {
		if err := ask(reader, prompt{
			helpString: "Enter the host that files are copied to. It must accept\n" +
				"ssh connections without a password prompt. Leave it empty to\n" +
				"copy files within this machine.",
			prompt:       "Remote host",
			currAnswer:   currConfig.RemoteHost,
			field:        &cfg.RemoteHost,
			validationFn: hostValidationFn,
		}); err != nil {
			return config.User{}, err
		}
	}

	if cfg.RemotePath == "" {
		if err := ask(reader, prompt{
			helpString: "Enter the directory on the remote host that corresponds\n" +
				"to the local path. It defaults to the same path.",
			prompt:        "Remote path",
			defaultAnswer: cfg.LocalPath,
			currAnswer:    currConfig.RemotePath,
			field:         &cfg.RemotePath,
			validationFn:  nonEmptyValidationFn,
		}); err != nil {
			return config.User{}, err
		}
	}

	return cfg, nil
}

// ask prompts until the response passes validation, and stores it in the
// prompt's field.
func ask(reader *bufio.Reader, p prompt) error {
	for {
		resp, err := promptUser(reader, p.helpString, p.prompt, p.defaultAnswer, p.currAnswer)
		if err != nil {
			return errors.WithContext(err, "read response")
		}

		if p.validationFn != nil {
			if msg, ok := p.validationFn(resp); !ok {
				fmt.Fprintln(stdout, msg)
				continue
			}
		}

		*p.field = resp
		return nil
	}
}

func promptUser(reader *bufio.Reader, helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Separate the fields with a blank line.
	defer fmt.Fprintln(stdout)

	var options []string
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	if len(options) > 0 {
		choice, ok, err := chooseOption(reader, options)
		if err != nil || ok {
			return choice, err
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(resp, "\n"), nil
}

// chooseOption lists `options` followed by a manual entry choice. It returns
// false if the user wants to enter the answer manually.
func chooseOption(reader *bufio.Reader, options []string) (string, bool, error) {
	manual := len(options) + 1

	fmt.Fprintln(stdout)
	for i, option := range options {
		if i == 0 {
			option += " (recommended)"
		}
		fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
	}
	fmt.Fprintf(stdout, "\t%d. (Enter manually)\n", manual)
	fmt.Fprintln(stdout)

	for {
		fmt.Fprintf(stdout, "Please choose one [1-%d]: ", manual)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", false, err
		}

		line = strings.TrimRight(line, "\n")
		choice := 1
		if line != "" {
			choice, err = strconv.Atoi(line)
			if err != nil || choice < 1 || choice > manual {
				continue
			}
		}

		if choice == manual {
			return "", false, nil
		}
		return options[choice-1], true, nil
	}
}
