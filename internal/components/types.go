package components

import (
	"fmt"
	"strconv"
	"strings"
)

// ComponentType is the wire "type" of a message component.
// Reference: https://discord.com/developers/docs/interactions/message-components#component-object-component-types
type ComponentType int

const (
	TypeActionRow  ComponentType = 1
	TypeButton     ComponentType = 2
	TypeSelectMenu ComponentType = 3
)

func (t ComponentType) String() string {
	switch t {
	case TypeActionRow:
		return "action_row"
	case TypeButton:
		return "button"
	case TypeSelectMenu:
		return "select"
	default:
		return "component(" + strconv.Itoa(int(t)) + ")"
	}
}

// ButtonStyle is the color of a button. Link buttons always use StyleLink.
type ButtonStyle int

const (
	StylePrimary   ButtonStyle = 1
	StyleSecondary ButtonStyle = 2
	StyleSuccess   ButtonStyle = 3
	StyleDanger    ButtonStyle = 4
	StyleLink      ButtonStyle = 5
)

func (s ButtonStyle) String() string {
	switch s {
	case StylePrimary:
		return "primary"
	case StyleSecondary:
		return "secondary"
	case StyleSuccess:
		return "success"
	case StyleDanger:
		return "danger"
	case StyleLink:
		return "link"
	default:
		return "style(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseButtonStyle accepts a style name, one of its color aliases
// (blurple, grey/gray, green, red, url) or its numeric value.
func ParseButtonStyle(s string) (ButtonStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blurple", "primary", "1":
		return StylePrimary, nil
	case "grey", "gray", "secondary", "2":
		return StyleSecondary, nil
	case "green", "success", "succes", "3":
		return StyleSuccess, nil
	case "red", "danger", "4":
		return StyleDanger, nil
	case "url", "link", "5":
		return StyleLink, nil
	}
	return 0, fmt.Errorf("unknown button style %q", s)
}

// Emoji is either a unicode emoji (Name only) or a custom guild emoji (ID set).
type Emoji struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

// ParseEmoji accepts a unicode emoji or a custom emoji mention such as
// <:name:id> or <a:name:id>.
func ParseEmoji(s string) (*Emoji, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty emoji")
	}
	if !strings.HasPrefix(s, "<") {
		return &Emoji{Name: s}, nil
	}
	if !strings.HasSuffix(s, ">") {
		return nil, fmt.Errorf("malformed custom emoji %q", s)
	}
	parts := strings.Split(strings.Trim(s, "<>"), ":")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("malformed custom emoji %q", s)
	}
	if _, err := strconv.ParseUint(parts[2], 10, 64); err != nil {
		return nil, fmt.Errorf("custom emoji id %q is not a snowflake", parts[2])
	}
	switch parts[0] {
	case "":
		return &Emoji{ID: parts[2], Name: parts[1]}, nil
	case "a":
		return &Emoji{ID: parts[2], Name: parts[1], Animated: true}, nil
	}
	return nil, fmt.Errorf("malformed custom emoji %q", s)
}

// Component is anything that can be placed in a message's component list.
type Component interface {
	Type() ComponentType
	Validate() error
}
