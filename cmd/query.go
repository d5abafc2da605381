package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-cli/internal/fetcher"
)

// queryFlags maps shorthand flags to results page parameters.
var queryFlags = map[string]string{
	"name":    fetcher.ParamBusinessName,
	"address": fetcher.ParamBusinessAddress,
	"city":    fetcher.ParamCity,
	"zip":     fetcher.ParamZipCode,
	"type":    fetcher.ParamInspectionType,
	"start":   fetcher.ParamInspectionStart,
	"end":     fetcher.ParamInspectionEnd,
}

func addQueryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "business name filter")
	f.String("address", "", "business address filter")
	f.String("city", "", "city filter")
	f.String("zip", "", "zip code filter")
	f.String("type", "", "inspection type (default from config)")
	f.String("start", "", "inspection start date (M/D/YYYY)")
	f.String("end", "", "inspection end date (M/D/YYYY)")
	f.StringToString("param", nil, "raw query parameter override (key=value, repeatable)")
}

// buildQuery layers the config query defaults, --param overrides and the
// shorthand flags, in that order.
func buildQuery(cmd *cobra.Command) *fetcher.Query {
	q := fetcher.NewQuery(cfg.Source.BaseURL, cfg.Source.Path)

	overrides := make(map[string]string, len(cfg.Query))
	for k, v := range cfg.Query {
		overrides[k] = v
	}
	if raw, err := cmd.Flags().GetStringToString("param"); err == nil {
		for k, v := range raw {
			overrides[k] = v
		}
	}
	for flag, param := range queryFlags {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			overrides[param] = v
		}
	}

	if ignored := q.Apply(overrides); len(ignored) > 0 {
		zap.L().Warn("ignoring unknown query parameters", zap.Strings("params", ignored))
	}
	return q
}
