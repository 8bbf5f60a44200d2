package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/sync-remote/cmd/config"
	syncCmd "github.com/sidkik/sync-remote/cmd/sync"
	"github.com/sidkik/sync-remote/cmd/util"
	"github.com/sidkik/sync-remote/cmd/version"
	"github.com/sidkik/sync-remote/cmd/watch"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "SYNC_REMOTE_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "sync-remote",
		Short: "Copy files to a remote host when they're saved",
		Long: "sync-remote maps local directories to directories on remote\n" +
			"hosts, and copies files over scp when they change.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose || os.Getenv(verboseLogKey) == "true" {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log debug messages. Also enabled by setting "+verboseLogKey+"=true.")

	rootCmd.AddCommand(
		configCmd.New(),
		syncCmd.New(),
		version.New(),
		watch.New(),
	)
	return rootCmd
}
