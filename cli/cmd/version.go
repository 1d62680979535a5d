package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/chipstream/cli/render"
	"github.com/pithecene-io/chipstream/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version       string `json:"version"`
	FormatVersion string `json:"format_version"`
	Commit        string `json:"commit"`
}

// VersionCommand returns the version command.
// FormatVersion is the decoded-event file format the binary reads.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		// TUI not supported for version command
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", 1)
		}

		resp := VersionResponse{
			Version:       types.Version,
			FormatVersion: types.FormatVersion,
			Commit:        commit,
		}

		return r.Render(resp)
	}
}
