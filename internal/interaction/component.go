package interaction

import (
	"fmt"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/discord"
)

// Component is a component interaction of any kind.
type Component interface {
	Context() *ComponentContext
}

// ComponentContext is what every component interaction carries.
type ComponentContext struct {
	*Interaction
	CustomID      string
	ComponentType components.ComponentType
	Values        []string
	// Used is the declaration of the pressed/selected component, nil when the
	// message layout is unknown.
	Used components.Component
}

func (c *ComponentContext) Context() *ComponentContext { return c }

// ButtonInteraction is a button press.
type ButtonInteraction struct {
	*ComponentContext
	Button components.Button
}

// Label returns the pressed button's label, empty when it could not be
// resolved.
func (b *ButtonInteraction) Label() string { return b.Button.Label }

// SelectInteraction is a selection in a select menu.
type SelectInteraction struct {
	*ComponentContext
	Menu components.SelectMenu
}

// SelectedValues returns the values the user picked, in the order Discord
// sent them.
func (s *SelectInteraction) SelectedValues() []string {
	return append([]string(nil), s.Values...)
}

// SelectedOptions maps the picked values back to their declared options.
// Values missing from the declaration come back with only Value set.
func (s *SelectInteraction) SelectedOptions() []components.SelectOption {
	out := make([]components.SelectOption, 0, len(s.Values))
	for _, v := range s.Values {
		if opt, ok := s.Menu.Option(v); ok {
			out = append(out, opt)
			continue
		}
		out = append(out, components.SelectOption{Value: v})
	}
	return out
}

// NewComponent builds the typed object for a component interaction. The used
// component is looked up in layout, or in the interaction's message when
// layout is nil.
func NewComponent(raw *discord.Interaction, r Responder, layout []components.ActionRow) (Component, error) {
	if raw.Type != discord.InteractionMessageComponent {
		return nil, fmt.Errorf("interaction %s: type %d is not a component interaction", raw.ID, raw.Type)
	}
	data, err := raw.ComponentData()
	if err != nil {
		return nil, fmt.Errorf("interaction %s: decoding component data: %w", raw.ID, err)
	}
	if layout == nil && raw.Message != nil {
		layout = raw.Message.Components
	}

	ctx := &ComponentContext{
		Interaction:   New(raw, r),
		CustomID:      data.CustomID,
		ComponentType: data.ComponentType,
		Values:        data.Values,
	}
	if used, ok := components.Find(layout, data.CustomID); ok {
		ctx.Used = used
	}

	switch data.ComponentType {
	case components.TypeButton:
		b := &ButtonInteraction{ComponentContext: ctx, Button: components.Button{CustomID: data.CustomID}}
		if btn, ok := ctx.Used.(components.Button); ok {
			b.Button = btn
		}
		return b, nil
	case components.TypeSelectMenu:
		s := &SelectInteraction{ComponentContext: ctx, Menu: components.SelectMenu{CustomID: data.CustomID}}
		if menu, ok := ctx.Used.(components.SelectMenu); ok {
			s.Menu = menu
		}
		return s, nil
	}
	return ctx, nil
}
