package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/ui"

	"github.com/spf13/cobra"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "List the chapters found on the listing page in processing order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logSvc := ui.NewLogger(cfg.Debug)
		client, err := newClient(cfg, logSvc)
		if err != nil {
			return err
		}

		scr, err := newScraper(cfg, client, logSvc)
		if err != nil {
			return err
		}

		raw, err := scr.GetChapters(context.Background(), cfg.BaseURL)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "#\tCHAPTER\tURL")
		for _, ch := range chapters.Wrap(raw) {
			label := ch.Label()
			if !ch.HasNumber {
				label += " (no number)"
			}
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", ch.Index, label, ch.URL)
		}

		return w.Flush()
	},
}

func init() {
	chaptersCmd.Flags().StringVar(&flagURL, "url", "", "chapter listing page URL")
	rootCmd.AddCommand(chaptersCmd)
}
