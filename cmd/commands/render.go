package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lojasmm/discordui/internal/components"
)

// NewRenderCommand returns the render subcommand.
func NewRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Validate a YAML layout and print its action rows as JSON",
		ArgsUsage: "<layout.yaml>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("render needs a layout file")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading layout: %w", err)
			}
			out, err := render(data)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func render(layout []byte) ([]byte, error) {
	comps, err := components.ParseLayout(layout)
	if err != nil {
		return nil, err
	}
	rows, err := components.BuildRows(comps...)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(rows, "", "  ")
}
