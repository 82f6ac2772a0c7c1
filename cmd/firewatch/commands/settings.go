package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ayusman/firewatch/internal/config"
	"github.com/ayusman/firewatch/internal/store"
)

func newSettingsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persisted defaults",
		Long: `Manage defaults stored in the settings database.

Persisted values replace the built-in defaults. Environment variables
(FIREWATCH_*) and flags still take precedence.`,
		Example: `  firewatch settings set watch_dir /srv/drone
  firewatch settings get watch_dir
  firewatch settings list
  firewatch settings unset watch_dir`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist a default",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.ValidateSetting(args[0], args[1]); err != nil {
					return err
				}
				return withStore(cmd, v, func(st *store.Store) error {
					if err := st.Settings().Set(args[0], args[1]); err != nil {
						return fmt.Errorf("failed to save %s: %w", args[0], err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", args[0], args[1])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Show a persisted default",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, v, func(st *store.Store) error {
					value, err := st.Settings().Get(args[0])
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("%s is not set", args[0])
					}
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), value)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List persisted defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, v, func(st *store.Store) error {
					settings, err := st.Settings().List()
					if err != nil {
						return err
					}
					for _, s := range settings {
						fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", s.Key, s.Value)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a persisted default",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, v, func(st *store.Store) error {
					err := st.Settings().Delete(args[0])
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("%s is not set", args[0])
					}
					return err
				})
			},
		},
	)
	return cmd
}

// withStore opens the settings database for the duration of fn.
func withStore(cmd *cobra.Command, v *viper.Viper, fn func(st *store.Store) error) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	st, err := store.New(config.DatabasePath(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	return fn(st)
}
