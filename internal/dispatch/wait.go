package dispatch

import (
	"context"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/interaction"
)

type waiter struct {
	messageID string
	kind      components.ComponentType
	check     func(interaction.Component) bool
	ch        chan interaction.Component
}

func (w *waiter) matches(comp interaction.Component) bool {
	cc := comp.Context()
	if w.messageID != "" && messageID(cc.Interaction) != w.messageID {
		return false
	}
	if w.kind != 0 && cc.ComponentType != w.kind {
		return false
	}
	return w.check == nil || w.check(comp)
}

// WaitFor blocks until a component interaction on messageID matching kind (0
// for any) and check arrives, or ctx ends. An empty messageID matches every
// message. It may be called from a listener callback on the same message.
func (c *Components) WaitFor(ctx context.Context, messageID string, kind components.ComponentType, check func(interaction.Component) bool) (interaction.Component, error) {
	w := &waiter{messageID: messageID, kind: kind, check: check, ch: make(chan interaction.Component, 1)}

	c.mu.Lock()
	c.waiters[w] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.waiters, w)
		c.mu.Unlock()
	}()

	select {
	case comp := <-w.ch:
		return comp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// notifyWaiters hands comp to every matching waiter. Each waiter is served
// once.
func (c *Components) notifyWaiters(comp interaction.Component) {
	c.mu.RLock()
	pending := make([]*waiter, 0, len(c.waiters))
	for w := range c.waiters {
		pending = append(pending, w)
	}
	c.mu.RUnlock()

	for _, w := range pending {
		if !w.matches(comp) {
			continue
		}
		c.mu.Lock()
		_, ok := c.waiters[w]
		delete(c.waiters, w)
		c.mu.Unlock()
		if ok {
			w.ch <- comp
		}
	}
}
