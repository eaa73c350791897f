package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trainers in the catalog",
		Long: `List one page of the remote trainer catalog.

Pages are cached locally for 15 minutes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, page)
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", DefaultPage, "Catalog page to show")

	return cmd
}

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the catalog",
		Long:  "Search the remote trainer catalog by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), page)
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", DefaultPage, "Result page to show")

	return cmd
}

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show trainer details",
		Long:  "Display the catalog entry of a single trainer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}
}

func runList(cmd *cobra.Command, page int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.catalog()
	if err != nil {
		return err
	}
	result, err := c.FetchListing(cmd.Context(), page)
	if err != nil {
		return err
	}

	printPage(cmd.OutOrStdout(), result, page)
	return nil
}

func runSearch(cmd *cobra.Command, query string, page int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.catalog()
	if err != nil {
		return err
	}
	result, err := c.Search(cmd.Context(), query, page)
	if err != nil {
		return err
	}

	if len(result.Trainers) == 0 {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No trainers found matching %q\n", query)
		return nil
	}
	printPage(cmd.OutOrStdout(), result, page)
	return nil
}

func runShow(cmd *cobra.Command, id string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.catalog()
	if err != nil {
		return err
	}
	t, err := c.FetchDetail(cmd.Context(), id)
	if err != nil {
		return err
	}

	tw := newTable(cmd.OutOrStdout())
	_, _ = fmt.Fprintf(tw, "ID:\t%s\n", t.ID)
	_, _ = fmt.Fprintf(tw, "Name:\t%s\n", t.Name)
	_, _ = fmt.Fprintf(tw, "Version:\t%s\n", orDash(t.Version))
	_, _ = fmt.Fprintf(tw, "Game version:\t%s\n", orDash(t.GameVersion))
	_, _ = fmt.Fprintf(tw, "Downloads:\t%s\n", humanize.Comma(int64(t.DownloadCount)))
	_, _ = fmt.Fprintf(tw, "Last update:\t%s\n", orDash(t.LastUpdate))
	_, _ = fmt.Fprintf(tw, "Download URL:\t%s\n", orDash(t.DownloadURL))
	_ = tw.Flush()

	if d := strings.TrimSpace(t.Description); d != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", d)
	}
	return nil
}

func printPage(w io.Writer, p model.Page, page int) {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tVERSION\tDOWNLOADS\tDESCRIPTION")
	_, _ = fmt.Fprintln(tw, "--\t----\t-------\t---------\t-----------")
	for _, t := range p.Trainers {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			truncate(t.Name, MaxNameLength),
			orDash(t.Version),
			humanize.Comma(int64(t.DownloadCount)),
			truncate(t.Description, MaxDescriptionLength),
		)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w, "\nPage %d, %d of %d trainers shown\n", page, len(p.Trainers), p.Total)
}
