package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/discord"
	"github.com/lojasmm/discordui/internal/interaction"
)

type listenerHandler struct {
	customID string // "" matches any custom id
	kind     components.ComponentType
	fn       Handler
}

// Listener handles the components of a single message. Timeout is an idle
// timeout: it restarts whenever the listener handles an interaction, and when
// it fires the listener is detached and OnTimeout runs.
type Listener struct {
	Timeout time.Duration
	// Users restricts the listener to these invoking users when non-empty.
	Users     []string
	OnTimeout func(messageID string)
	// Components is what PutListener puts on a message that has none.
	Components []components.Component

	mu       sync.Mutex
	handlers []listenerHandler
	timer    *time.Timer
}

func NewListener(timeout time.Duration, comps ...components.Component) *Listener {
	return &Listener{Timeout: timeout, Components: comps}
}

// OnButton handles presses of the button with customID, or of any button when
// customID is empty.
func (l *Listener) OnButton(customID string, h Handler) *Listener {
	return l.on(customID, components.TypeButton, h)
}

// OnSelect handles selections in the menu with customID, or in any menu when
// customID is empty.
func (l *Listener) OnSelect(customID string, h Handler) *Listener {
	return l.on(customID, components.TypeSelectMenu, h)
}

// OnAny handles every component interaction on the message.
func (l *Listener) OnAny(h Handler) *Listener {
	return l.on("", 0, h)
}

func (l *Listener) on(customID string, kind components.ComponentType, h Handler) *Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, listenerHandler{customID: customID, kind: kind, fn: h})
	return l
}

// handle runs every matching handler in registration order.
func (l *Listener) handle(ctx context.Context, comp interaction.Component) error {
	cc := comp.Context()
	if len(l.Users) > 0 && (cc.Author == nil || !slices.Contains(l.Users, cc.Author.ID)) {
		return nil
	}

	l.mu.Lock()
	var run []Handler
	for _, h := range l.handlers {
		if h.kind != 0 && h.kind != cc.ComponentType {
			continue
		}
		if h.customID != "" && h.customID != cc.CustomID {
			continue
		}
		run = append(run, h.fn)
	}
	if len(run) > 0 && l.timer != nil {
		l.timer.Reset(l.Timeout)
	}
	l.mu.Unlock()

	var errs []error
	for _, fn := range run {
		if err := fn(ctx, comp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// start (re)arms the idle timer. A listener has one timer: attaching it again
// replaces the earlier one.
func (l *Listener) start(expire func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.Timeout > 0 {
		l.timer = time.AfterFunc(l.Timeout, expire)
	}
}

func (l *Listener) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// AttachListener attaches l to an already sent message, replacing any
// listener it had. A listener serves one message at a time; attaching it
// elsewhere moves it.
func (c *Components) AttachListener(messageID string, l *Listener) {
	c.mu.Lock()
	for id, other := range c.listeners {
		if other == l && id != messageID {
			delete(c.listeners, id)
		}
	}
	old := c.listeners[messageID]
	c.listeners[messageID] = l
	c.mu.Unlock()

	if old != nil && old != l {
		old.stop()
	}
	l.start(func() { c.expireListener(messageID, l) })
}

// PutListener attaches l to msg and, when msg has no components, edits it to
// show l.Components.
func (c *Components) PutListener(ctx context.Context, msg *discord.Message, l *Listener) error {
	if len(msg.Components) == 0 && len(l.Components) > 0 {
		rows, err := components.BuildRows(l.Components...)
		if err != nil {
			return err
		}
		edited, err := c.api.EditMessage(ctx, msg.ChannelID, msg.ID, &discord.MessageEdit{Components: &rows})
		if err != nil {
			return fmt.Errorf("putting listener on %s: %w", msg.ID, err)
		}
		if len(edited.Components) == 0 {
			edited.Components = rows
		}
		c.recordMessage(edited, "")
	}
	c.AttachListener(msg.ID, l)
	return nil
}

// RemoveListener detaches the listener of messageID.
func (c *Components) RemoveListener(messageID string) {
	c.mu.Lock()
	l := c.listeners[messageID]
	delete(c.listeners, messageID)
	c.mu.Unlock()
	if l != nil {
		l.stop()
	}
}

// Listener returns the listener attached to messageID.
func (c *Components) Listener(messageID string) (*Listener, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.listeners[messageID]
	return l, ok
}

// ClearListeners detaches every message listener without firing timeouts.
func (c *Components) ClearListeners() {
	c.mu.Lock()
	old := c.listeners
	c.listeners = make(map[string]*Listener)
	c.mu.Unlock()
	for _, l := range old {
		l.stop()
	}
}

func (c *Components) expireListener(messageID string, l *Listener) {
	c.mu.Lock()
	current := c.listeners[messageID] == l
	if current {
		delete(c.listeners, messageID)
	}
	c.mu.Unlock()
	if !current {
		return
	}
	l.stop()
	c.log.Debug("listener timed out", "message", messageID)
	if l.OnTimeout != nil {
		l.OnTimeout(messageID)
	}
}
