package cli

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/installer"
	"golang.org/x/sync/errgroup"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "install ID...",
		Short: "Install trainers",
		Long: `Download and install one or more trainers from the catalog.

Archives are unpacked into the download directory unless auto_extract is
disabled. Executables are placed as is.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, concurrency)
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Number of parallel installs (0 uses max_concurrency)")

	return cmd
}

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall ID...",
		Aliases: []string{"remove"},
		Short:   "Uninstall trainers",
		Long:    "Remove installed trainers and their install directories",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runUninstall,
	}
}

func runInstall(cmd *cobra.Command, ids []string, concurrency int) error {
	ids = uniqueIDs(ids)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.catalog()
	if err != nil {
		return err
	}

	if concurrency <= 0 {
		concurrency = a.cfg.Settings.MaxConcurrency
	}

	view := newProgressView(cmd.OutOrStdout(), cmd.ErrOrStderr(), len(ids), colorEnabled())
	inst, err := a.installer(view.Hooks())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var (
		mu     sync.Mutex
		failed []string
	)

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			t, err := c.FetchDetail(ctx, id)
			if err == nil {
				_, err = inst.Acquire(ctx, t)
			}
			if err != nil {
				logger.Debug("Install failed", logger.Fields{"id": id, "error": err.Error()})
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}
			return err
		})
	}

	err = g.Wait()
	view.Finish()

	installed := len(ids) - len(failed)
	if installed > 0 {
		logger.Success(fmt.Sprintf("Installed %d trainer(s)", installed))
	}
	if err != nil {
		if len(failed) > 1 {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Failed to install: %v\n", failed)
		}
		return err
	}
	return nil
}

// uniqueIDs drops repeated ids, keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func runUninstall(cmd *cobra.Command, ids []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	inst, err := a.installer(installer.Hooks{})
	if err != nil {
		return err
	}

	var firstErr error
	for _, id := range ids {
		if err := inst.Remove(cmd.Context(), id); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", id, errors.UserMessage(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Success("Trainer uninstalled", logger.Fields{"id": id})
	}
	return firstErr
}
