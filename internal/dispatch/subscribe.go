package dispatch

import (
	"context"

	"github.com/lojasmm/discordui/internal/events"
	"github.com/lojasmm/discordui/internal/interaction"
)

// Bus returns the bus interactions are published on.
func (c *Components) Bus() *events.Bus { return c.bus }

// subscribe runs fn for matching events with a context that lives as long as
// the interaction token.
func (c *Components) subscribe(fn func(context.Context, any), types ...events.EventType) func() {
	return c.bus.Subscribe(func(e events.Event) {
		ctx, cancel := context.WithTimeout(c.ctx, interactionLifetime)
		defer cancel()
		fn(ctx, e.Payload)
	}, types...)
}

func (c *Components) OnButtonPress(fn func(context.Context, *interaction.ButtonInteraction)) func() {
	return c.subscribe(func(ctx context.Context, p any) {
		if b, ok := p.(*interaction.ButtonInteraction); ok {
			fn(ctx, b)
		}
	}, events.EventButtonPress)
}

func (c *Components) OnMenuSelect(fn func(context.Context, *interaction.SelectInteraction)) func() {
	return c.subscribe(func(ctx context.Context, p any) {
		if s, ok := p.(*interaction.SelectInteraction); ok {
			fn(ctx, s)
		}
	}, events.EventMenuSelect)
}

// OnComponent receives every component interaction.
func (c *Components) OnComponent(fn func(context.Context, interaction.Component)) func() {
	return c.subscribe(func(ctx context.Context, p any) {
		if comp, ok := p.(interaction.Component); ok {
			fn(ctx, comp)
		}
	}, events.EventComponent)
}

// OnCommand receives slash and context-menu commands named name, or every
// command when name is empty.
func (c *Components) OnCommand(name string, fn func(context.Context, *interaction.CommandInteraction)) func() {
	return c.subscribe(func(ctx context.Context, p any) {
		cmd, ok := p.(*interaction.CommandInteraction)
		if !ok || (name != "" && cmd.Name != name) {
			return
		}
		fn(ctx, cmd)
	}, events.EventSlashCommand, events.EventContextCommand)
}
