// Package cmd provides CLI commands for the chipstream binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/chipstream/lode"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (inspect, stats).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		TUIFlag,
	}
}

// storageReadFlags returns the flags selecting a Lode dataset to read from.
func storageReadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "lode-dataset", Usage: "Lode dataset ID", Value: lode.DefaultDataset},
		&cli.StringFlag{Name: "lode-backend", Usage: "Lode storage backend: fs or s3"},
		&cli.StringFlag{Name: "lode-path", Usage: "Lode storage path (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "lode-s3-region", Usage: "AWS region for S3 backend"},
		&cli.StringFlag{Name: "lode-s3-endpoint", Usage: "Custom S3 endpoint URL (MinIO, R2)"},
		&cli.BoolFlag{Name: "lode-s3-path-style", Usage: "Force path-style S3 addressing"},
	}
}
