package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewRunCommand returns the run subcommand.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Connect to the gateway and serve the bot",
		Flags: []cli.Flag{rolesFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			off := a.ui.Attach(a.host)
			defer off()

			if err := a.registerCommands(ctx); err != nil {
				return err
			}
			if err := a.host.Open(); err != nil {
				return fmt.Errorf("opening gateway: %w", err)
			}
			defer a.host.Close()
			a.log.Info("discordui: connected", "app", a.cfg.DiscordAppID)

			go a.maintain(ctx)

			<-ctx.Done()
			a.log.Info("discordui: shutting down...")
			return nil
		},
	}
}
