package interaction

import (
	"encoding/json"
	"fmt"

	"github.com/lojasmm/discordui/internal/discord"
)

// CommandInteraction is a slash or context-menu command invocation.
type CommandInteraction struct {
	*Interaction
	CommandID   string
	Name        string
	CommandType discord.CommandType
	// Path holds the sub-command group and sub-command names, outermost first.
	Path     []string
	Options  map[string]json.RawMessage
	TargetID string
}

func NewCommand(raw *discord.Interaction, r Responder) (*CommandInteraction, error) {
	if raw.Type != discord.InteractionApplicationCommand {
		return nil, fmt.Errorf("interaction %s: type %d is not a command", raw.ID, raw.Type)
	}
	data, err := raw.CommandData()
	if err != nil {
		return nil, fmt.Errorf("interaction %s: decoding command data: %w", raw.ID, err)
	}

	c := &CommandInteraction{
		Interaction: New(raw, r),
		CommandID:   data.ID,
		Name:        data.Name,
		CommandType: data.Type,
		Options:     make(map[string]json.RawMessage),
		TargetID:    data.TargetID,
	}
	if c.CommandType == 0 {
		c.CommandType = discord.CommandChatInput
	}
	c.flatten(data.Options)
	return c, nil
}

func (c *CommandInteraction) flatten(opts []discord.CommandOption) {
	for _, o := range opts {
		if o.Type == discord.OptionSubCommand || o.Type == discord.OptionSubCommandGroup {
			c.Path = append(c.Path, o.Name)
			c.flatten(o.Options)
			continue
		}
		c.Options[o.Name] = o.Value
	}
}

// String returns a string option.
func (c *CommandInteraction) String(name string) (string, bool) {
	var s string
	if !c.option(name, &s) {
		return "", false
	}
	return s, true
}

// Int returns an integer option.
func (c *CommandInteraction) Int(name string) (int64, bool) {
	var n int64
	if !c.option(name, &n) {
		return 0, false
	}
	return n, true
}

// Bool returns a boolean option.
func (c *CommandInteraction) Bool(name string) (bool, bool) {
	var b bool
	if !c.option(name, &b) {
		return false, false
	}
	return b, true
}

func (c *CommandInteraction) option(name string, v any) bool {
	raw, ok := c.Options[name]
	if !ok || len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
