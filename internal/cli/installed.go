package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/catalog"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
)

// NewInstalledCmd creates the installed command.
func NewInstalledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "List installed trainers",
		Long:  "List all trainers recorded as installed in the local store",
		Args:  cobra.NoArgs,
		RunE:  runInstalled,
	}
}

// NewLaunchCmd creates the launch command.
func NewLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch ID",
		Short: "Launch an installed trainer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			exe, err := a.launcher().Launch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logger.Success("Trainer started", logger.Fields{"id": args[0], "path": exe})
			return nil
		},
	}
}

// NewOutdatedCmd creates the outdated command.
func NewOutdatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List installed trainers with newer catalog versions",
		Args:  cobra.NoArgs,
		RunE:  runOutdated,
	}
}

func runInstalled(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.ListInstalled(cmd.Context())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No trainers installed")
		return nil
	}

	tw := newTable(cmd.OutOrStdout())
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tVERSION\tINSTALLED\tLAST LAUNCH\tSTATUS")
	for _, r := range records {
		status := "ok"
		if !fsutil.Exists(r.InstallPath) {
			status = "missing"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			truncate(r.Name, MaxNameLength),
			orDash(r.Version),
			formatWhen(&r.InstallTime),
			formatWhen(r.LastLaunchTime),
			status,
		)
	}
	_ = tw.Flush()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%s installed\n", humanize.Comma(int64(len(records))))
	return nil
}

func runOutdated(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.catalog()
	if err != nil {
		return err
	}
	records, err := a.store.ListInstalled(cmd.Context())
	if err != nil {
		return err
	}

	updates, err := catalog.Outdated(cmd.Context(), c, records)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "All installed trainers are up to date")
		return nil
	}

	tw := newTable(cmd.OutOrStdout())
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tINSTALLED\tAVAILABLE")
	for _, u := range updates {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, truncate(u.Name, MaxNameLength), orDash(u.Installed), u.Available)
	}
	return tw.Flush()
}
