// Package commands implements the firewatch command line.
package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ayusman/firewatch/internal/config"
	"github.com/ayusman/firewatch/internal/logger"
	"github.com/ayusman/firewatch/internal/store"
)

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"watch-dir": config.KeyWatchDir,
	"camera":    config.KeyCameraIndex,
	"sound":     config.KeySoundPath,
	"headless":  config.KeyHeadless,
	"listen":    config.KeyListen,
	"tray":      config.KeyTray,
	"log-level": config.KeyLogLevel,
	"log-json":  config.KeyLogJSON,
	"data-dir":  config.KeyDataDir,
}

// NewRootCmd builds the firewatch command tree. Running it without a
// subcommand watches the folder.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "firewatch",
		Short: "Firewatch - fire detection for drone footage and webcams",
		Long: `Firewatch analyzes video frames for fire-colored regions and raises an
audible alarm once enough of the frame looks like fire.

Sources:
  • Newest .mp4/.avi recording in a watched folder (default)
  • Live webcam
The masked frame is shown in a window; press q to switch or stop, Esc to stop.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, watchVariant)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "log JSON lines instead of console text")
	rootCmd.PersistentFlags().String("data-dir", "", "settings directory (default is $HOME/.firewatch)")
	addRunFlags(rootCmd)

	rootCmd.AddCommand(
		newWatchCmd(v),
		newCameraCmd(v),
		newSettingsCmd(v),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// addRunFlags registers the flags shared by the detection commands.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("watch-dir", "", "folder to watch for recordings (default is $HOME/Videos/DroneFeed)")
	cmd.Flags().Int("camera", 0, "camera device index (default is 1)")
	cmd.Flags().String("sound", "", "alarm sound file (default is alarm-sound.mp3)")
	cmd.Flags().Bool("headless", false, "run without a window")
	cmd.Flags().String("listen", "", "serve the HTTP monitor on this address, e.g. :8080")
	cmd.Flags().Bool("tray", false, "show a system tray icon (implies --headless)")
}

// loadConfig binds the flags of cmd to v and resolves the configuration,
// including settings persisted in the data directory. It also applies the
// logging configuration.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (config.Config, error) {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	config.Setup(v, nil)
	persisted, err := readPersisted(config.DatabasePath(v.GetString(config.KeyDataDir)))
	if err != nil {
		return config.Config{}, err
	}
	config.Setup(v, persisted)

	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}

	logger.Init(cfg.LogLevel, cfg.LogJSON)
	logger.Logger.Debug().Str("db", config.DatabasePath(cfg.DataDir)).Int("persisted", len(persisted)).Msg("Configuration loaded")
	return cfg, nil
}

// readPersisted returns the stored settings. A missing database is not
// created here.
func readPersisted(dbPath string) (map[string]string, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	defer st.Close()

	settings, err := st.Settings().Map()
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return settings, nil
}
