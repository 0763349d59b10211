package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/interaction"
)

const pickerPrefix = "roles"

// pickerState travels inside the menu's custom id.
type pickerState struct {
	Owner string `msgpack:"o"`
	Nonce string `msgpack:"n"`
}

func (h *Handler) roleMenu(customID string) components.SelectMenu {
	menu := components.NewSelectMenu(customID)
	menu.Placeholder = "Select your programming language"
	for _, r := range h.pickable {
		menu.Options = append(menu.Options, components.NewSelectOption(r.ID, r.Name, r.Description))
	}
	menu.MaxValues = min(4, len(menu.Options))
	return menu
}

// HandleRolePicker answers /role-picker with a hidden menu and grants the
// picked roles. Only the invoking user's selection counts.
func (h *Handler) HandleRolePicker(ctx context.Context, cmd *interaction.CommandInteraction) {
	log := h.log.With("command", CommandRolePicker, "interaction", cmd.ID)

	if cmd.GuildID == "" || cmd.Author == nil {
		if _, err := cmd.Respond(ctx, interaction.MessageOptions{Content: "roles can only be picked in a server", Hidden: true}); err != nil {
			log.Error("responding", "error", err)
		}
		return
	}

	customID, err := h.codec.Encode(pickerPrefix, pickerState{Owner: cmd.Author.ID, Nonce: cmd.ID})
	if err != nil {
		log.Error("encoding menu id", "error", err)
		return
	}
	_, err = cmd.Respond(ctx, interaction.MessageOptions{
		Content:    "pick your roles",
		Components: []components.Component{h.roleMenu(customID)},
		Hidden:     true,
	})
	if err != nil {
		log.Error("sending role menu", "error", err)
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.pickTimeout)
	defer cancel()
	comp, err := h.ui.WaitFor(waitCtx, "", components.TypeSelectMenu, func(c interaction.Component) bool {
		return h.ownsMenu(c, customID)
	})
	if errors.Is(err, context.DeadlineExceeded) {
		if _, err := cmd.FollowUp(ctx, interaction.MessageOptions{Content: "you took too long to choose", Hidden: true}); err != nil {
			log.Error("sending timeout notice", "error", err)
		}
		return
	}
	if err != nil {
		log.Warn("waiting for a selection", "error", err)
		return
	}

	sel := comp.(*interaction.SelectInteraction)
	// with auto-defer on, the adapter has acknowledged the selection already
	if !sel.Acknowledged() {
		if err := sel.Defer(ctx, true); err != nil && !errors.Is(err, interaction.ErrAlreadyDeferred) {
			log.Error("deferring selection", "error", err)
			return
		}
	}
	var given []string
	for _, opt := range sel.SelectedOptions() {
		if err := h.roles.AddMemberRole(ctx, cmd.GuildID, sel.Author.ID, opt.Value); err != nil {
			log.Warn("granting role", "role", opt.Value, "error", err)
			continue
		}
		name := opt.Label
		if name == "" {
			name = opt.Value
		}
		given = append(given, name)
	}

	content := "I could not give you any of those roles"
	if len(given) > 0 {
		content = "I gave you following roles: `" + strings.Join(given, "`, `") + "`"
	}
	if _, err := sel.Respond(ctx, interaction.MessageOptions{Content: content, Hidden: true}); err != nil {
		log.Error("confirming roles", "error", err)
	}
}

// ownsMenu accepts selections on the menu sent to the invoking user, by that
// user. The signature check rejects forged custom ids.
func (h *Handler) ownsMenu(c interaction.Component, customID string) bool {
	cc := c.Context()
	if cc.CustomID != customID || cc.Author == nil {
		return false
	}
	var st pickerState
	if err := h.codec.Decode(cc.CustomID, &st); err != nil {
		return false
	}
	return st.Owner == cc.Author.ID
}
