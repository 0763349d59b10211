// Package bot is a small application built on the component adapter: a
// button calculator and a role picker.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/yaml.v3"

	"github.com/lojasmm/discordui/internal/customid"
	"github.com/lojasmm/discordui/internal/dispatch"
	"github.com/lojasmm/discordui/internal/store"
)

const (
	CommandCalculator = "calculator"
	CommandRolePicker = "role-picker"
)

// RoleGranter adds guild roles to members. *discord.Client implements it.
type RoleGranter interface {
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
}

// RoleOption is one pickable role.
type RoleOption struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// DefaultRoles are offered when no role file is given.
var DefaultRoles = []RoleOption{
	{ID: "867715564155568158", Name: "javascript", Description: "I'm a javascript programmer"},
	{ID: "867715628504186911", Name: "java", Description: "I'm a java programmer"},
	{ID: "867715582903582743", Name: "python", Description: "I'm a python programmer"},
	{ID: "867715674386071602", Name: "ruby", Description: "I'm a ruby programmer"},
}

// LoadRoles reads a YAML list of roles:
//
//	- {id: "867715564155568158", name: javascript, description: "I'm a javascript programmer"}
func LoadRoles(path string) ([]RoleOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roles: %w", err)
	}
	var roles []RoleOption
	if err := yaml.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("parsing roles: %w", err)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%s lists no roles", path)
	}
	return roles, nil
}

type Handler struct {
	ui    *dispatch.Components
	roles RoleGranter
	store store.Store
	codec *customid.Codec
	log   *slog.Logger

	pickable    []RoleOption
	idleTimeout time.Duration
	pickTimeout time.Duration
}

func NewHandler(ui *dispatch.Components, roles RoleGranter, s store.Store, codec *customid.Codec, pickable []RoleOption, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(pickable) == 0 {
		pickable = DefaultRoles
	}
	return &Handler{
		ui:          ui,
		roles:       roles,
		store:       s,
		codec:       codec,
		log:         logger.With("component", "bot"),
		pickable:    pickable,
		idleTimeout: 20 * time.Second,
		pickTimeout: 20 * time.Second,
	}
}

// Register subscribes the command handlers and returns the func removing
// them.
func (h *Handler) Register() func() {
	offCalc := h.ui.OnCommand(CommandCalculator, h.HandleCalculator)
	offRoles := h.ui.OnCommand(CommandRolePicker, h.HandleRolePicker)
	return func() {
		offCalc()
		offRoles()
	}
}

// Commands returns the slash commands Register handles.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandCalculator,
			Type:        discordgo.ChatApplicationCommand,
			Description: "opens a calculator that closes after 20 seconds without input",
		},
		{
			Name:        CommandRolePicker,
			Type:        discordgo.ChatApplicationCommand,
			Description: "lets you pick roles",
		},
	}
}
