package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-cli/internal/config"
	"github.com/sells-group/inspection-cli/internal/export"
	"github.com/sells-group/inspection-cli/internal/fetcher"
	"github.com/sells-group/inspection-cli/internal/geoenrich"
	"github.com/sells-group/inspection-cli/internal/inspection"
	"github.com/sells-group/inspection-cli/internal/model"
	"github.com/sells-group/inspection-cli/internal/store"
)

type scrapeOptions struct {
	Source   string
	Encoding string
	Limit    int
	Workers  int
	Format   export.Format
	GeoJSON  io.Writer
}

type scrapeResult struct {
	Records  []model.Record
	Features []*model.Feature
	Stats    geoenrich.Stats
	RunID    string
}

// scrape extracts records from content and writes them to out. When
// enricher is set the records are geocoded and, if opts.GeoJSON is set,
// written as a FeatureCollection. When st is set the run is persisted.
func scrape(ctx context.Context, content []byte, opts scrapeOptions, out io.Writer, enricher *geoenrich.Enricher, st store.Store) (*scrapeResult, error) {
	var run *model.Run
	if st != nil {
		r, err := st.CreateRun(ctx, opts.Source)
		if err != nil {
			return nil, eris.Wrap(err, "scrape: create run")
		}
		run = r
	}

	res, err := scrapeRecords(ctx, content, opts, out, enricher, st, run)
	if run != nil {
		status := model.RunStatusComplete
		if err != nil {
			status = model.RunStatusFailed
		}
		if ferr := st.FinishRun(context.WithoutCancel(ctx), run.ID, status, err); ferr != nil {
			zap.L().Error("scrape: finish run", zap.String("run_id", run.ID), zap.Error(ferr))
		}
	}
	return res, err
}

func scrapeRecords(ctx context.Context, content []byte, opts scrapeOptions, out io.Writer, enricher *geoenrich.Enricher, st store.Store, run *model.Run) (*scrapeResult, error) {
	extractor := inspection.NewExtractor(
		inspection.WithWorkers(opts.Workers),
		inspection.WithLimit(opts.Limit),
	)
	records, err := extractor.Run(ctx, content, opts.Encoding)
	if err != nil {
		return nil, err
	}

	res := &scrapeResult{Records: records}
	if run != nil {
		res.RunID = run.ID
		if err := st.SaveRecords(ctx, run.ID, records); err != nil {
			return res, eris.Wrap(err, "scrape: save records")
		}
	}

	w, err := export.New(opts.Format)
	if err != nil {
		return res, err
	}
	if err := w.Write(out, records); err != nil {
		return res, eris.Wrap(err, "scrape: export records")
	}

	if enricher == nil {
		return res, nil
	}

	outcomes := enricher.EnrichAll(ctx, records)
	res.Features = geoenrich.Features(outcomes)
	res.Stats = geoenrich.Summarize(outcomes)

	if run != nil {
		if err := st.SaveFeatures(ctx, run.ID, res.Features); err != nil {
			return res, eris.Wrap(err, "scrape: save features")
		}
	}
	if opts.GeoJSON != nil {
		if err := geoenrich.WriteFeatureCollection(opts.GeoJSON, res.Features); err != nil {
			return res, eris.Wrap(err, "scrape: write feature collection")
		}
	}
	return res, nil
}

// scrapeLimit prefers an explicit --limit over extract.limit. Zero from
// either source means all listings.
func scrapeLimit(cmd *cobra.Command) int {
	if cmd.Flags().Changed("limit") {
		limit, _ := cmd.Flags().GetInt("limit")
		return limit
	}
	return cfg.Extract.Limit
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract restaurant records from a results page",
	Long:  "Parses a saved or freshly fetched results page, prints one record per listing, and optionally geocodes the records into a GeoJSON FeatureCollection.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		geojsonPath, _ := cmd.Flags().GetString("geojson")
		if geojsonPath != "" {
			cfg.Geo.Enabled = true
		}
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		encoding, _ := cmd.Flags().GetString("encoding")
		formatFlag, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		persist, _ := cmd.Flags().GetBool("store")
		render, _ := cmd.Flags().GetBool("render")

		format, err := export.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		limit := scrapeLimit(cmd)
		workers := cfg.Extract.Workers
		if cmd.Flags().Changed("workers") {
			workers, _ = cmd.Flags().GetInt("workers")
		}
		if encoding == "" {
			encoding = cfg.Source.Encoding
		}

		var content []byte
		var source string
		if file != "" {
			source = fetcher.ResolvePagePath(file)
			content, err = fetcher.LoadFile(file)
		} else {
			q := buildQuery(cmd)
			source, err = q.URL()
			if err == nil {
				content, err = initFetcher(render).Fetch(ctx, q)
			}
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrapf(err, "scrape: create %s", outPath)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		opts := scrapeOptions{
			Source:   source,
			Encoding: encoding,
			Limit:    limit,
			Workers:  workers,
			Format:   format,
		}

		var enricher *geoenrich.Enricher
		if cfg.Geo.Enabled {
			enricher = initEnricher()
		}
		if geojsonPath != "" {
			f, err := os.Create(geojsonPath)
			if err != nil {
				return eris.Wrapf(err, "scrape: create %s", geojsonPath)
			}
			defer f.Close() //nolint:errcheck
			opts.GeoJSON = f
		}

		var st store.Store
		if persist {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		res, err := scrape(ctx, content, opts, out, enricher, st)
		if err != nil {
			return err
		}

		fields := []zap.Field{
			zap.String("source", source),
			zap.Int("records", len(res.Records)),
		}
		if enricher != nil {
			fields = append(fields,
				zap.Int("located", res.Stats.Located),
				zap.Int("unmatched", res.Stats.Unmatched),
				zap.Int("failed", res.Stats.Failed),
			)
		}
		if res.RunID != "" {
			fields = append(fields, zap.String("run_id", res.RunID))
		}
		zap.L().Info("scrape complete", fields...)
		return nil
	},
}

func init() {
	addQueryFlags(scrapeCmd)
	f := scrapeCmd.Flags()
	f.String("file", "", `read a saved results page instead of fetching ("file" means inspection_page.html)`)
	f.String("encoding", "", "page encoding (default from config source.encoding)")
	f.Int("limit", config.DefaultExtractLimit, "maximum listings to extract (0 = all)")
	f.Int("workers", 0, "parallel listing workers (default NumCPU)")
	f.String("format", "jsonl", "output format: jsonl, json, yaml, xlsx, markdown")
	f.String("out", "", "write records to this file instead of stdout")
	f.String("geojson", "", "geocode records and write a FeatureCollection to this file")
	f.Bool("store", false, "persist the run, records and features")
	f.Bool("render", false, "render the page in headless Chrome when fetching")
	rootCmd.AddCommand(scrapeCmd)
}
