package cli

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Download a file through the download engine",
		Long: `Download a single URL with progress reporting, without installing it.

The file is written to --output, or into the download directory under the
last path segment of the URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file path")

	return cmd
}

func runFetch(cmd *cobra.Command, rawURL, output string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	transferID := uuid.NewString()
	if output == "" {
		output = filepath.Join(a.cfg.Settings.DownloadPath, defaultFetchName(rawURL, transferID))
	}

	view := newProgressView(cmd.OutOrStdout(), cmd.ErrOrStderr(), 1, colorEnabled())
	logger.Debug("Starting fetch", logger.Fields{"url": rawURL, "transfer": transferID, "dest": output})

	err = a.downloads.Start(cmd.Context(), rawURL, transferID, output, view.Progress)
	view.Finish()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s", output)
	if info, err := os.Stat(output); err == nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), " (%s)", formatSize(info.Size()))
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func defaultFetchName(rawURL, transferID string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			return fsutil.SanitizeFilename(base)
		}
	}
	return transferID + ".bin"
}
