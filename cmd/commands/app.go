package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/urfave/cli/v3"

	"github.com/lojasmm/discordui/internal/bot"
	"github.com/lojasmm/discordui/internal/config"
	"github.com/lojasmm/discordui/internal/customid"
	"github.com/lojasmm/discordui/internal/discord"
	"github.com/lojasmm/discordui/internal/dispatch"
	"github.com/lojasmm/discordui/internal/events"
	"github.com/lojasmm/discordui/internal/session"
	"github.com/lojasmm/discordui/internal/store"
)

const (
	eventHistory     = 256
	messageRetention = 7 * 24 * time.Hour
)

var rolesFlag = &cli.StringFlag{
	Name:  "roles",
	Usage: "YAML file listing the roles /role-picker offers",
}

// app holds everything run and serve share.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	host   *discordgo.Session
	client *discord.Client
	db     *store.BoltStore
	bus    *events.Bus
	locks  *session.Manager
	ui     *dispatch.Components
	offBot func()
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !cmd.Bool("debug") {
		setupLogging(cfg.LogLevel)
	}
	logger := slog.Default()

	var roles []bot.RoleOption
	if path := cmd.String("roles"); path != "" {
		if roles, err = bot.LoadRoles(path); err != nil {
			return nil, err
		}
	}

	codec, err := customid.NewCodec([]byte(cfg.StateKey))
	if err != nil {
		return nil, fmt.Errorf("state codec: %w", err)
	}

	host, err := discordgo.New(cfg.BotToken())
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	host.Identify.Intents = discordgo.IntentsGuilds

	db, err := store.NewBoltStore(filepath.Join(cfg.DataDir, "discordui.db"))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	a := &app{
		cfg:    cfg,
		log:    logger,
		host:   host,
		client: discord.NewClient(host, cfg.DiscordAppID),
		db:     db,
		bus:    events.NewBus(eventHistory),
		locks:  session.NewManager(),
	}
	a.ui = dispatch.New(a.client, a.bus, db, a.locks, dispatch.Options{
		AutoDefer:       cfg.AutoDefer,
		AutoDeferHidden: cfg.AutoDeferHidden,
		Logger:          logger,
	})
	a.offBot = bot.NewHandler(a.ui, a.client, db, codec, roles, logger).Register()
	return a, nil
}

// registerCommands publishes the bot's slash commands, to the configured
// guild when there is one (guild commands update instantly).
func (a *app) registerCommands(ctx context.Context) error {
	cmds, err := a.client.OverwriteCommands(ctx, a.cfg.DiscordGuildID, bot.Commands())
	if err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	a.log.Info("commands registered", "count", len(cmds), "guild", a.cfg.DiscordGuildID)
	return nil
}

// maintain drops stale message locks and old layout records until ctx ends.
func (a *app) maintain(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.locks.Cleanup(1 * time.Hour)
			n, err := a.db.PruneMessages(messageRetention)
			if err != nil {
				a.log.Warn("pruning message records", "error", err)
				continue
			}
			if n > 0 {
				a.log.Debug("pruned message records", "count", n)
			}
		}
	}
}

func (a *app) Close() {
	a.offBot()
	a.ui.Close()
	a.bus.Close()
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
}
