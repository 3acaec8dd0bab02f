package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/tracklistdna"
)

func main() {
	if err := newRootCommand(newCommandContext()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(cc *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:           "tracklistdna",
		Short:         "Identify the tracks played in a DJ set or mix",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cc.verbose {
				logger.GetLogger().SetLevel(logger.DEBUG)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cc.envFile, "env", ".env", "Path to a .env file with ACRCloud credentials")
	flags.StringVar(&cc.dbPath, "db", "", "Path to SQLite database (env: TRACKLIST_DB_PATH, default: tracklistdna.sqlite3)")
	flags.StringVar(&cc.tempDir, "temp", "", "Directory for downloads and conversion (env: TRACKLIST_TEMP_DIR)")
	flags.BoolVarP(&cc.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newIdentifyCommand(cc),
		newShowCommand(cc),
		newListCommand(cc),
		newDeleteCommand(cc),
	)
	return root
}

// commandContext carries the global flags and the factories commands use to
// reach the service and the store.
type commandContext struct {
	envFile string
	dbPath  string
	tempDir string
	verbose bool

	newService  func(opts ...tracklistdna.Option) (tracklistdna.Service, error)
	openStorage func(dbPath string) (tracklistdna.Storage, error)
}

func newCommandContext() *commandContext {
	return &commandContext{
		newService:  tracklistdna.NewService,
		openStorage: tracklistdna.NewSQLiteStorage,
	}
}

// options resolves .env, environment and flags, in increasing precedence.
func (cc *commandContext) options(extra ...tracklistdna.Option) ([]tracklistdna.Option, error) {
	opts, err := tracklistdna.ConfigFromEnv(cc.envFile)
	if err != nil {
		return nil, err
	}
	if cc.dbPath != "" {
		opts = append(opts, tracklistdna.WithDBPath(cc.dbPath))
	}
	if cc.tempDir != "" {
		opts = append(opts, tracklistdna.WithTempDir(cc.tempDir))
	}
	return append(opts, extra...), nil
}

func (cc *commandContext) service(extra ...tracklistdna.Option) (tracklistdna.Service, error) {
	opts, err := cc.options(extra...)
	if err != nil {
		return nil, err
	}
	return cc.newService(opts...)
}

// storage opens only the tracklist store, so browsing needs no credentials.
func (cc *commandContext) storage() (tracklistdna.Storage, error) {
	opts, err := cc.options()
	if err != nil {
		return nil, err
	}
	return cc.openStorage(tracklistdna.NewConfig(opts...).DBPath)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
