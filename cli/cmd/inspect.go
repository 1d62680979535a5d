package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/chipstream/cli/reader"
	"github.com/pithecene-io/chipstream/cli/render"
	"github.com/pithecene-io/chipstream/cli/tui"
	"github.com/pithecene-io/chipstream/source"
)

// InspectCommand returns the inspect command.
// Inspect validates every chip of an input file without writing anything.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Dry-run chip validation over a decoded-event file",
		ArgsUsage: "<input-file>",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of events to inspect (0 = no limit)",
			},
		),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("input-file required", 1)
	}
	input := c.Args().First()

	limit := c.Int("limit")
	if limit < 0 {
		return cli.Exit(fmt.Sprintf("--limit must be >= 0, got %d", limit), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	src, err := source.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = src.Close() }()

	report, err := reader.Inspect(c.Context, input, src, limit)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", input, err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectInput, report)
	}

	return r.Render(report)
}
