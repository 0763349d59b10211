package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/interaction"
)

var (
	ErrMissingCustomID = errors.New("dispatch: listening component needs a custom id")
	ErrMissingCallback = errors.New("dispatch: listening component needs a callback")
)

// Handler reacts to a component interaction.
type Handler func(ctx context.Context, c interaction.Component) error

// ParseKind maps "button"/"2" and "select"/"3" to a component type. The empty
// string means any kind and parses to 0.
func ParseKind(s string) (components.ComponentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "button":
		return components.TypeButton, nil
	case "select", "select_menu", "menu":
		return components.TypeSelectMenu, nil
	}
	n, err := strconv.Atoi(s)
	if err == nil && (n == int(components.TypeButton) || n == int(components.TypeSelectMenu)) {
		return components.ComponentType(n), nil
	}
	return 0, fmt.Errorf("unknown component kind %q", s)
}

// ListeningComponent runs Callback for every interaction whose custom id
// matches, no matter which message it comes from.
type ListeningComponent struct {
	CustomID string
	// Prefix matches every custom id starting with CustomID.
	Prefix bool
	// Messages and Users restrict the source message and invoking user when
	// non-empty.
	Messages []string
	Users    []string
	Kind     components.ComponentType
	Check    func(interaction.Component) bool
	Callback Handler

	id string
}

func (lc *ListeningComponent) ID() string { return lc.id }

func (lc *ListeningComponent) matches(comp interaction.Component) bool {
	cc := comp.Context()
	if lc.Prefix {
		if !strings.HasPrefix(cc.CustomID, lc.CustomID) {
			return false
		}
	} else if cc.CustomID != lc.CustomID {
		return false
	}
	if lc.Kind != 0 && cc.ComponentType != lc.Kind {
		return false
	}
	if len(lc.Messages) > 0 && !slices.Contains(lc.Messages, messageID(cc.Interaction)) {
		return false
	}
	if len(lc.Users) > 0 && (cc.Author == nil || !slices.Contains(lc.Users, cc.Author.ID)) {
		return false
	}
	return lc.Check == nil || lc.Check(comp)
}

// AddListeningComponent registers lc and returns its id.
func (c *Components) AddListeningComponent(lc ListeningComponent) (string, error) {
	if lc.CustomID == "" {
		return "", ErrMissingCustomID
	}
	if lc.Callback == nil {
		return "", ErrMissingCallback
	}
	lc.id = uuid.NewString()
	lc.Messages = slices.Clone(lc.Messages)
	lc.Users = slices.Clone(lc.Users)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listening = append(c.listening, &lc)
	return lc.id, nil
}

// RemoveListeningComponent removes one registration and reports whether it
// existed.
func (c *Components) RemoveListeningComponent(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, lc := range c.listening {
		if lc.id == id {
			c.listening = slices.Delete(c.listening, i, i+1)
			return true
		}
	}
	return false
}

// RemoveListeningComponents removes every registration for customID and
// returns how many were removed.
func (c *Components) RemoveListeningComponents(customID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.listening)
	c.listening = slices.DeleteFunc(c.listening, func(lc *ListeningComponent) bool {
		return lc.CustomID == customID
	})
	return before - len(c.listening)
}

// ListeningComponents returns the registrations in order.
func (c *Components) ListeningComponents() []ListeningComponent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ListeningComponent, len(c.listening))
	for i, lc := range c.listening {
		out[i] = *lc
	}
	return out
}

func (c *Components) matchingListening(comp interaction.Component) []*ListeningComponent {
	c.mu.RLock()
	snapshot := slices.Clone(c.listening)
	c.mu.RUnlock()

	var out []*ListeningComponent
	for _, lc := range snapshot {
		if lc.matches(comp) {
			out = append(out, lc)
		}
	}
	return out
}
