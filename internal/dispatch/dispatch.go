// Package dispatch turns raw interaction events into typed interaction
// objects and hands them to listeners.
//
// For a component interaction the order is: optional auto-defer, pending
// WaitFor calls, then under the message lock the interaction_received,
// component and button_press/menu_select events on the bus, listening
// components in registration order and finally the Listener attached to the
// message. Waiters are served outside the lock, so a callback may wait for
// the next interaction on its own message.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/discord"
	"github.com/lojasmm/discordui/internal/events"
	"github.com/lojasmm/discordui/internal/interaction"
	"github.com/lojasmm/discordui/internal/session"
	"github.com/lojasmm/discordui/internal/store"
)

// Interaction tokens stay valid for 15 minutes.
const interactionLifetime = 15 * time.Minute

// API is the REST surface the dispatcher sends through. *discord.Client
// implements it.
type API interface {
	interaction.Responder
	SendMessage(ctx context.Context, channelID string, msg *discord.MessageSend) (*discord.Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, edit *discord.MessageEdit) (*discord.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	CreateDM(ctx context.Context, userID string) (string, error)
	ExecuteWebhook(ctx context.Context, webhookID, token string, msg *discord.WebhookMessage) (*discord.Message, error)
}

// Host is where raw gateway events come from. *discordgo.Session implements
// it.
type Host interface {
	AddHandler(handler interface{}) func()
}

type Options struct {
	// AutoDefer acknowledges every component interaction before any listener
	// runs.
	AutoDefer       bool
	AutoDeferHidden bool
	Logger          *slog.Logger
}

// Components is the component adapter.
type Components struct {
	api   API
	bus   *events.Bus
	store store.Store
	locks *session.Manager
	opts  Options
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	listening []*ListeningComponent
	listeners map[string]*Listener
	waiters   map[*waiter]struct{}
}

// New creates the adapter. st and locks may be nil; without a store
// interactions on messages that arrive without components (ephemeral ones)
// cannot be resolved to their declaration.
func New(api API, bus *events.Bus, st store.Store, locks *session.Manager, opts Options) *Components {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if locks == nil {
		locks = session.NewManager()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Components{
		api:       api,
		bus:       bus,
		store:     st,
		locks:     locks,
		opts:      opts,
		log:       logger.With("component", "dispatch"),
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[string]*Listener),
		waiters:   make(map[*waiter]struct{}),
	}
}

// Close stops listener timers and cancels the contexts handed to bus
// subscribers.
func (c *Components) Close() {
	c.ClearListeners()
	c.cancel()
}

// Attach registers the adapter on host and returns the func removing it.
func (c *Components) Attach(host Host) func() {
	return host.AddHandler(func(_ *discordgo.Session, e *discordgo.Event) {
		if e.Type != discord.EventInteractionCreate {
			return
		}
		ctx, cancel := context.WithTimeout(c.ctx, interactionLifetime)
		defer cancel()
		if err := c.HandleRaw(ctx, e.Type, e.RawData); err != nil {
			c.log.Error("handling interaction", "error", err)
		}
	})
}

// HandleRaw handles one raw dispatch event. Everything but
// INTERACTION_CREATE is ignored.
func (c *Components) HandleRaw(ctx context.Context, eventType string, data json.RawMessage) error {
	if eventType != discord.EventInteractionCreate {
		return nil
	}
	var raw discord.Interaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding interaction: %w", err)
	}
	return c.HandleInteraction(ctx, &raw)
}

// HandleGatewayPayload handles a full gateway frame.
func (c *Components) HandleGatewayPayload(ctx context.Context, frame []byte) error {
	var p discord.GatewayPayload
	if err := json.Unmarshal(frame, &p); err != nil {
		return fmt.Errorf("decoding gateway payload: %w", err)
	}
	if p.Op != 0 {
		return nil
	}
	return c.HandleRaw(ctx, p.Type, p.Data)
}

// HandleInteraction dispatches a decoded interaction.
func (c *Components) HandleInteraction(ctx context.Context, raw *discord.Interaction) error {
	switch raw.Type {
	case discord.InteractionMessageComponent:
		key := raw.ID
		if raw.Message != nil && raw.Message.ID != "" {
			key = raw.Message.ID
		}
		comp, err := c.prepareComponent(ctx, raw)
		if err != nil {
			return err
		}
		c.notifyWaiters(comp)
		return c.locks.WithLock(key, func() error {
			c.dispatchComponent(ctx, comp)
			return nil
		})
	case discord.InteractionApplicationCommand:
		return c.dispatchCommand(raw)
	case discord.InteractionPing:
		c.log.Debug("ignoring ping outside of the HTTP endpoint")
		return nil
	}
	c.log.Debug("ignoring interaction", "type", raw.Type, "id", raw.ID)
	return nil
}

func (c *Components) dispatchCommand(raw *discord.Interaction) error {
	cmd, err := interaction.NewCommand(raw, c.responderFor(raw))
	if err != nil {
		return err
	}
	c.publish(events.NewEvent(events.EventInteractionReceived, cmd))
	typ := events.EventSlashCommand
	if cmd.CommandType != discord.CommandChatInput {
		typ = events.EventContextCommand
	}
	c.publish(events.NewEvent(typ, cmd))
	return nil
}

// prepareComponent builds the typed object and auto-defers it. Deferring
// happens outside the message lock so a busy message cannot push it past the
// three second callback window.
func (c *Components) prepareComponent(ctx context.Context, raw *discord.Interaction) (interaction.Component, error) {
	comp, err := interaction.NewComponent(raw, c.responderFor(raw), c.storedLayout(raw))
	if err != nil {
		return nil, err
	}
	if c.opts.AutoDefer {
		if err := comp.Context().Defer(ctx, c.opts.AutoDeferHidden); err != nil {
			c.log.Warn("auto-defer failed", "interaction", raw.ID, "error", err)
		}
	}
	return comp, nil
}

func (c *Components) dispatchComponent(ctx context.Context, comp interaction.Component) {
	cc := comp.Context()
	msgID := messageID(cc.Interaction)
	log := c.log.With("custom_id", cc.CustomID, "message", msgID)

	c.publish(events.NewMessageEvent(events.EventInteractionReceived, msgID, comp))
	c.publish(events.NewMessageEvent(events.EventComponent, msgID, comp))
	switch comp.(type) {
	case *interaction.ButtonInteraction:
		c.publish(events.NewMessageEvent(events.EventButtonPress, msgID, comp))
	case *interaction.SelectInteraction:
		c.publish(events.NewMessageEvent(events.EventMenuSelect, msgID, comp))
	}

	for _, lc := range c.matchingListening(comp) {
		if err := lc.Callback(ctx, comp); err != nil {
			log.Error("listening component failed", "listening", lc.id, "error", err)
		}
	}

	c.mu.RLock()
	l := c.listeners[msgID]
	c.mu.RUnlock()
	if l != nil {
		if err := l.handle(ctx, comp); err != nil {
			log.Error("message listener failed", "error", err)
		}
	}
}

func (c *Components) publish(e events.Event) {
	if _, err := c.bus.Publish(e); err != nil {
		c.log.Debug("event not published", "type", e.Type, "error", err)
	}
}

func messageID(in *interaction.Interaction) string {
	if in.Message == nil {
		return ""
	}
	return in.Message.ID
}

// storedLayout returns the recorded components of the interaction's message
// when the payload does not carry them.
func (c *Components) storedLayout(raw *discord.Interaction) []components.ActionRow {
	if c.store == nil || raw.Message == nil || len(raw.Message.Components) > 0 {
		return nil
	}
	keys := []string{raw.Message.ID}
	if raw.Message.Interaction != nil {
		keys = append(keys, originalKey(raw.Message.Interaction.ID))
	}
	for i, k := range keys {
		rec, err := c.store.GetMessage(k)
		if err != nil {
			c.log.Warn("loading stored layout", "key", k, "error", err)
			continue
		}
		if rec == nil {
			continue
		}
		if i > 0 {
			// now that the message id is known, file the layout under it
			rec.ID = raw.Message.ID
			c.record(*rec)
		}
		return rec.Components
	}
	return nil
}
