// Command quakeexport runs one earthquake query and writes the matching
// events to a file.
//
// Usage:
//
//	go run ./cmd/quakeexport \
//	  -start 2023-02-02 -end 2023-03-03 \
//	  -minmag 6 -maxmag 8 \
//	  -region turkey \
//	  -o turkey.xlsx
//
// With -input, events are read from a saved USGS GeoJSON response instead of
// the live service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/quake-explorer/internal/adapter/resilience"
	"github.com/couchcryptid/quake-explorer/internal/adapter/usgs"
	"github.com/couchcryptid/quake-explorer/internal/config"
	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/export"
	"github.com/couchcryptid/quake-explorer/internal/observability"
	"github.com/couchcryptid/quake-explorer/internal/pipeline"
	"github.com/couchcryptid/quake-explorer/internal/regions"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "quakeexport:", err)
		}
		os.Exit(1)
	}
}

// options holds parsed command-line flags.
type options struct {
	start, end     string
	minMag, maxMag string
	orderBy        string
	alertLevel     string
	regionNames    string
	bboxes         []domain.BoundingBox
	presetsFile    string
	input          string
	output         string
	format         string
}

func parseFlags(args []string, stderr io.Writer, cfg *config.Config) (options, error) {
	opts := options{
		minMag:  formatMag(cfg.DefaultMinMagnitude),
		maxMag:  formatMag(cfg.DefaultMaxMagnitude),
		orderBy: domain.OrderTime,
	}
	fs := flag.NewFlagSet("quakeexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.start, "start", "", "start time, RFC 3339 or YYYY-MM-DD (default: now minus DEFAULT_LOOKBACK)")
	fs.StringVar(&opts.end, "end", "", "end time, RFC 3339 or YYYY-MM-DD; a date includes the whole day (default: now)")
	fs.StringVar(&opts.minMag, "minmag", opts.minMag, "minimum magnitude; empty for no lower bound")
	fs.StringVar(&opts.maxMag, "maxmag", opts.maxMag, "maximum magnitude; empty for no upper bound")
	fs.StringVar(&opts.orderBy, "orderby", opts.orderBy, "time, time-asc, magnitude or magnitude-asc")
	fs.StringVar(&opts.alertLevel, "alertlevel", "", "PAGER alert level: green, yellow, orange or red")
	fs.StringVar(&opts.regionNames, "region", "", "comma-separated region preset names")
	fs.Func("bbox", "minLat,minLon,maxLat,maxLon rectangle; repeatable", func(s string) error {
		box, err := domain.ParseBoundingBox(s)
		if err != nil {
			return err
		}
		opts.bboxes = append(opts.bboxes, box)
		return nil
	})
	fs.StringVar(&opts.presetsFile, "presets", cfg.RegionPresetsFile, "YAML file of additional region presets")
	fs.StringVar(&opts.input, "input", "", "read a saved USGS GeoJSON response instead of querying the service")
	fs.StringVar(&opts.output, "o", "", "output file; - writes to stdout")
	fs.StringVar(&opts.format, "format", "", "csv, xlsx, parquet or geojson (default: from the output extension)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.output == "" {
		fs.Usage()
		return options{}, errors.New("-o is required")
	}
	return opts, nil
}

// resolveFormat picks the export format from -format or the output extension.
func resolveFormat(opts options) (export.Format, error) {
	name := opts.format
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(opts.output), ".")
	}
	if name == "" {
		return export.FormatCSV, nil
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		return "", err
	}
	if f == export.FormatJSON {
		return export.FormatGeoJSON, nil
	}
	return f, nil
}

func buildCriteria(opts options, cfg *config.Config, presets *regions.Catalog) (domain.Criteria, error) {
	c := domain.DefaultCriteriaNow(cfg.DefaultLookback, cfg.DefaultMinMagnitude, cfg.DefaultMaxMagnitude)
	var errs []error

	if opts.start != "" {
		t, err := domain.ParseTimeBound(opts.start, false)
		errs = append(errs, err)
		c.Start = t
	}
	if opts.end != "" {
		t, err := domain.ParseTimeBound(opts.end, true)
		errs = append(errs, err)
		c.End = t
	}
	var err error
	c.MinMagnitude, err = domain.ParseMagnitude(opts.minMag)
	errs = append(errs, err)
	c.MaxMagnitude, err = domain.ParseMagnitude(opts.maxMag)
	errs = append(errs, err)
	c.OrderBy = opts.orderBy
	c.AlertLevel = opts.alertLevel

	if opts.regionNames != "" {
		region, err := presets.Resolve(strings.Split(opts.regionNames, ","))
		errs = append(errs, err)
		c.Regions = append(c.Regions, region...)
	}
	for _, box := range opts.bboxes {
		c.Regions = append(c.Regions, box.Polygon())
	}

	if err := errors.Join(errs...); err != nil {
		return domain.Criteria{}, err
	}
	return c, nil
}

// fileFetcher serves features from a saved GeoJSON response.
type fileFetcher struct {
	path string
}

func (f fileFetcher) FetchEvents(_ context.Context, _ domain.Query) ([]domain.RawFeature, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &domain.FetchError{Op: "read " + f.path, Err: err}
	}
	var fc domain.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, &domain.FetchError{Op: "read " + f.path, Err: fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)}
	}
	return fc.Features, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts, err := parseFlags(args, stderr, cfg)
	if err != nil {
		return err
	}
	format, err := resolveFormat(opts)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewUnregisteredMetrics()

	presets, err := regions.Load(opts.presetsFile)
	if err != nil {
		return err
	}
	criteria, err := buildCriteria(opts, cfg, presets)
	if err != nil {
		return err
	}

	var fetcher domain.EventFetcher
	if opts.input != "" {
		fetcher = fileFetcher{path: opts.input}
	} else {
		client := resilience.NewClient(resilience.ClientConfig{
			Name:       "usgs",
			Timeout:    cfg.USGSTimeout,
			MaxRetries: uint64(cfg.USGSMaxRetries),
		}, logger)
		fetcher = usgs.NewClient(client, usgs.Options{
			BaseURL:           cfg.USGSBaseURL,
			RequestsPerSecond: cfg.USGSRateLimit,
			Deadline:          cfg.USGSFetchDeadline,
		}, metrics, logger)
	}

	res, err := pipeline.New(fetcher, cfg.USGSResultLimit, logger, metrics).Run(ctx, criteria)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		logger.Warn(w)
	}

	if err := writeOutput(opts.output, format, res, stdout); err != nil {
		return err
	}
	logSummary(logger, opts.output, format, res)
	return nil
}

func writeOutput(path string, format export.Format, res pipeline.Result, stdout io.Writer) error {
	if path == "-" {
		return export.Write(stdout, format, res.Events, res.Stats)
	}
	if format == export.FormatParquet {
		return export.WriteParquetFile(path, res.Events)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.Write(f, format, res.Events, res.Stats); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func logSummary(logger *slog.Logger, path string, format export.Format, res pipeline.Result) {
	s := res.Stats
	attrs := []any{
		"output", path,
		"format", format,
		"count", s.Count,
		"dropped", res.Dropped,
		"mean_magnitude", s.MeanMagnitude.String(),
	}
	if e := s.MaxMagnitudeEvent; e != nil {
		attrs = append(attrs, "largest", fmt.Sprintf("M%s %s (%s)", e.Magnitude, e.Place, e.ID))
	}
	if e := s.MaxDepthEvent; e != nil {
		attrs = append(attrs, "deepest", fmt.Sprintf("%s km %s (%s)", e.Depth, e.Place, e.ID))
	}
	logger.Info("export complete", attrs...)
}

func formatMag(v float64) string {
	return fmt.Sprintf("%g", v)
}
