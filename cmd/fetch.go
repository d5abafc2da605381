package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-cli/internal/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a results page and save the raw HTML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		render, _ := cmd.Flags().GetBool("render")
		dir, _ := cmd.Flags().GetString("dir")
		name, _ := cmd.Flags().GetString("out")
		if dir == "" {
			dir = cfg.Source.RawDir
		}
		if name == "" {
			name = fetcher.TimestampedName(time.Now())
		}

		content, err := initFetcher(render).Fetch(ctx, buildQuery(cmd))
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		path, err := fetcher.SaveFile(dir, name, content)
		if err != nil {
			return err
		}

		zap.L().Info("saved results page", zap.String("path", path), zap.Int("bytes", len(content)))
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	addQueryFlags(fetchCmd)
	fetchCmd.Flags().Bool("render", false, "render the page in headless Chrome")
	fetchCmd.Flags().String("dir", "", "output directory (default from config source.raw_dir)")
	fetchCmd.Flags().String("out", "", "output file name (default results-<timestamp>.html)")
	rootCmd.AddCommand(fetchCmd)
}
