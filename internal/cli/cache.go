package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local store",
		Long:  "List, sweep and clear cached catalog pages and stored records",
	}

	cmd.AddCommand(
		newCacheKeysCmd(),
		newCacheSweepCmd(),
		newCacheClearCmd(),
	)

	return cmd
}

func newCacheKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Long:  "List record keys and live cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			keys, err := a.store.Keys(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newCacheSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.store.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			logger.Success(fmt.Sprintf("Removed %d expired cache entries", removed))
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all records and cache entries",
		Long: `Delete every downloaded and installed record and every cached page.

Installed files on disk are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New(errors.Validation, "refusing to clear the store without --yes")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ClearAll(cmd.Context()); err != nil {
				return err
			}
			logger.Success("Store cleared", logger.Fields{"path": a.store.Path()})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm clearing the store")

	return cmd
}
