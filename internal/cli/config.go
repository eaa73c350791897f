package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/config"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
	"github.com/xinggaoya/GameModMaster/pkg/hook"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and modify gmm configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigGetCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration, including environment overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	return cmd
}

// Number of arguments expected by the set command.
const setCommandArgs = 2

func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration key to a specific value and save the file",
		Args:  cobra.ExactArgs(setCommandArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Get a configuration value",
		Long:  "Get the value of a specific configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		hooks bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long: `Create a default configuration file.

With --hooks, template post-install and post-remove scripts are written to
the hooks directory next to the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(force, hooks)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&hooks, "hooks", false, "Also write hook script templates")

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tabWriter := newTable(cmd.OutOrStdout())
	_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(tabWriter, "-------\t-----")

	settingsMap := cfg.ToMap()
	for _, key := range config.Keys {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", key, orDash(settingsMap[key]))
	}

	_ = tabWriter.Flush()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nConfig file: %s\n", getConfigPath())
	return nil
}

// runConfigSet edits the file itself, so environment overrides are not
// written back.
func runConfigSet(key, value string) error {
	configPath := getConfigPath()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := cfg.SetValue(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.SaveConfig(configPath); err != nil {
		return err
	}

	logger.Success("Configuration updated", logger.Fields{"key": key, "value": value})

	if _, overridden := os.LookupEnv(config.EnvName(key)); overridden {
		logger.Warn("Setting is overridden by the environment", logger.Fields{"variable": config.EnvName(key)})
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	value, err := cfg.GetValue(key)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigInit(force, hooks bool) error {
	configPath := getConfigPath()

	if fsutil.Exists(configPath) && !force {
		return errors.Newf(errors.Validation, "configuration file already exists at %s (use --force to overwrite)", configPath)
	}

	if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
		return err
	}
	logger.Success("Configuration file created", logger.Fields{"path": configPath})

	if !hooks {
		return nil
	}

	hooksDir := filepath.Join(filepath.Dir(configPath), HooksDir)
	for _, t := range []hook.Type{hook.PostInstall, hook.PostRemove} {
		path := filepath.Join(hooksDir, string(t)+hook.ScriptExtension)
		if fsutil.Exists(path) && !force {
			logger.Info("Hook script exists, skipping", logger.Fields{"path": path})
			continue
		}
		if err := fsutil.EnsureDir(hooksDir); err != nil {
			return errors.E(errors.IO, "create hooks directory", err)
		}
		if err := os.WriteFile(path, []byte(hook.Template(t)), fsutil.FileModeDefault); err != nil {
			return errors.E(errors.IO, "write hook template", err)
		}
		logger.Success("Hook template created", logger.Fields{"path": path})
	}
	return nil
}
