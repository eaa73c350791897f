package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate SNAPSHOT.json",
		Short: "Import a legacy key-value snapshot",
		Long: `Import records and cache entries from a JSON object of legacy storage keys.

Known keys are installedTrainers, downloadedTrainers, trainerList_<page> and
searchResults_<query>_<page>. Expired cache entries and unknown keys are
dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, args[0])
		},
	}
}

func runMigrate(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.E(errors.IO, "read snapshot", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.E(errors.JSON, "decode snapshot", err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.store.Migrate(cmd.Context(), entries)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, dropped %d\n", report.Imported, report.Dropped)
	for _, k := range report.DroppedKeys {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  dropped %s\n", k)
	}
	return nil
}
