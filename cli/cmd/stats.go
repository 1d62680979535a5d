package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	lodeapi "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/chipstream/cli/reader"
	"github.com/pithecene-io/chipstream/cli/render"
	"github.com/pithecene-io/chipstream/cli/tui"
	"github.com/pithecene-io/chipstream/lode"
)

// statsReadTimeout bounds Lode reads for the stats command.
const statsReadTimeout = 30 * time.Second

// StatsCommand returns the stats command.
// Stats reads a processed run from its output directory or its Lode mirror.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show run totals and per-chip record counts",
		ArgsUsage: "<output-dir>",
		Flags: append(append(ReadOnlyFlags(), storageReadFlags()...),
			&cli.StringFlag{Name: "run-id", Usage: "Read the Lode mirror of this run ID"},
			&cli.StringFlag{Name: "input", Usage: "Filter Lode reads by input partition"},
		),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	rd, err := buildStatsReader(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, statsReadTimeout)
	defer cancel()

	stats, err := rd.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsOutput, stats)
	}

	return r.Render(stats)
}

// buildStatsReader selects the directory reader or, with --lode-backend and
// --lode-path, the Lode reader.
func buildStatsReader(c *cli.Context) (reader.Reader, error) {
	backend := c.String("lode-backend")
	path := c.String("lode-path")

	if backend == "" && path == "" {
		if c.NArg() < 1 {
			return nil, cli.Exit("output-dir required (or --lode-backend and --lode-path)", 1)
		}
		return reader.NewDirReader(c.Args().First()), nil
	}
	if backend == "" || path == "" {
		return nil, errors.New("both --lode-backend and --lode-path are required for Lode reads")
	}

	ds, err := buildReadDataset(c.Context, c.String("lode-dataset"), backend, path, lode.S3Config{
		Region:       c.String("lode-s3-region"),
		Endpoint:     c.String("lode-s3-endpoint"),
		UsePathStyle: c.Bool("lode-s3-path-style"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage reader: %w", err)
	}
	return reader.NewLodeReader(ds, c.String("run-id"), c.String("input")), nil
}

// buildReadDataset creates a Lode Dataset for reading. For s3, bucket and
// prefix come from path and the rest from s3cfg.
func buildReadDataset(ctx context.Context, dataset, backend, path string, s3cfg lode.S3Config) (lodeapi.Dataset, error) {
	switch backend {
	case "fs":
		return lode.NewReadDatasetFS(dataset, path)
	case "s3":
		s3cfg.Bucket, s3cfg.Prefix = lode.ParseS3Path(path)
		return lode.NewReadDatasetS3(ctx, dataset, s3cfg)
	default:
		return nil, fmt.Errorf("unsupported lode-backend: %s (must be fs or s3)", backend)
	}
}
