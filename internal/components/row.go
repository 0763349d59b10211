package components

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ActionRow groups up to five buttons or a single select menu.
type ActionRow struct {
	Components []Component
}

// Row builds an action row from the given components.
func Row(components ...Component) ActionRow {
	return ActionRow{Components: components}
}

func (r ActionRow) Type() ComponentType { return TypeActionRow }

func (r ActionRow) Validate() error {
	if len(r.Components) == 0 || len(r.Components) > MaxRowComponents {
		return invalid(TypeActionRow, "components", "must hold between 1 and %d entries, got %d", MaxRowComponents, len(r.Components))
	}
	for _, c := range r.Components {
		switch c.Type() {
		case TypeActionRow:
			return invalid(TypeActionRow, "components", "cannot contain another action row")
		case TypeSelectMenu:
			if len(r.Components) > 1 {
				return invalid(TypeActionRow, "components", "a select menu must be alone in its row")
			}
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type wireRow struct {
	Type       ComponentType `json:"type"`
	Components []Component   `json:"components"`
}

func (r ActionRow) MarshalJSON() ([]byte, error) {
	comps := r.Components
	if comps == nil {
		comps = []Component{}
	}
	return json.Marshal(wireRow{Type: TypeActionRow, Components: comps})
}

// wireComponent is the union of every component field used when decoding.
type wireComponent struct {
	Type        ComponentType     `json:"type"`
	Style       ButtonStyle       `json:"style"`
	Label       string            `json:"label"`
	Emoji       *Emoji            `json:"emoji"`
	CustomID    string            `json:"custom_id"`
	URL         string            `json:"url"`
	Disabled    bool              `json:"disabled"`
	Options     []SelectOption    `json:"options"`
	Placeholder string            `json:"placeholder"`
	MinValues   *int              `json:"min_values"`
	MaxValues   *int              `json:"max_values"`
	Components  []json.RawMessage `json:"components"`
}

func (r *ActionRow) UnmarshalJSON(data []byte) error {
	var w wireComponent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != TypeActionRow {
		return fmt.Errorf("decoding action row: unexpected component type %d", w.Type)
	}
	r.Components = make([]Component, 0, len(w.Components))
	for _, raw := range w.Components {
		c, err := decodeComponent(raw)
		if err != nil {
			return err
		}
		r.Components = append(r.Components, c)
	}
	return nil
}

func decodeComponent(raw json.RawMessage) (Component, error) {
	var w wireComponent
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decoding component: %w", err)
	}
	switch w.Type {
	case TypeButton:
		if w.Style == StyleLink {
			return LinkButton{URL: w.URL, Label: w.Label, Emoji: w.Emoji, Disabled: w.Disabled}, nil
		}
		return Button{CustomID: w.CustomID, Label: w.Label, Style: w.Style, Emoji: w.Emoji, Disabled: w.Disabled}, nil
	case TypeSelectMenu:
		m := SelectMenu{
			CustomID:    w.CustomID,
			Options:     w.Options,
			Placeholder: w.Placeholder,
			MinValues:   1,
			MaxValues:   1,
			Disabled:    w.Disabled,
		}
		if w.MinValues != nil {
			m.MinValues = *w.MinValues
		}
		if w.MaxValues != nil {
			m.MaxValues = *w.MaxValues
		}
		return m, nil
	case TypeActionRow:
		return nil, fmt.Errorf("decoding component: nested action row")
	}
	return Unknown{Kind: w.Type, CustomID: w.CustomID, Raw: append(json.RawMessage(nil), raw...)}, nil
}

// Unknown keeps a component type this package does not model, so messages
// carrying newer components still decode and round-trip.
type Unknown struct {
	Kind     ComponentType
	CustomID string
	Raw      json.RawMessage
}

func (u Unknown) Type() ComponentType { return u.Kind }

func (u Unknown) Validate() error { return nil }

func (u Unknown) MarshalJSON() ([]byte, error) { return u.Raw, nil }

// UnmarshalRows decodes a message's "components" array.
func UnmarshalRows(data []byte) ([]ActionRow, error) {
	var rows []ActionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// BuildRows flattens a component list into action rows.
//
// ActionRow items are kept as-is. A select menu always starts a fresh row.
// Buttons fill the current row until it holds five components, holds a select
// menu, or a button asks for a new line. Buttons without a custom id get a
// generated one.
func BuildRows(items ...Component) ([]ActionRow, error) {
	var (
		rows    []ActionRow
		current []Component
	)
	flush := func() {
		if len(current) > 0 {
			rows = append(rows, ActionRow{Components: current})
			current = nil
		}
	}

	for i, item := range items {
		switch c := item.(type) {
		case nil:
			return nil, invalid(TypeActionRow, fmt.Sprintf("components[%d]", i), "is nil")
		case ActionRow:
			flush()
			rows = append(rows, ActionRow{Components: withCustomIDs(c.Components)})
		case *ActionRow:
			flush()
			rows = append(rows, ActionRow{Components: withCustomIDs(c.Components)})
		case SelectMenu:
			flush()
			rows = append(rows, ActionRow{Components: []Component{c}})
		case Button:
			if c.CustomID == "" {
				c.CustomID = generateCustomID()
			}
			if c.NewLine || len(current) == MaxRowComponents {
				flush()
			}
			current = append(current, c)
		case LinkButton:
			if c.NewLine || len(current) == MaxRowComponents {
				flush()
			}
			current = append(current, c)
		default:
			flush()
			rows = append(rows, ActionRow{Components: []Component{c}})
		}
	}
	flush()

	if len(rows) > MaxRows {
		return nil, fmt.Errorf("%w: %d rows, at most %d allowed", ErrTooManyRows, len(rows), MaxRows)
	}
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return rows, nil
}

func withCustomIDs(comps []Component) []Component {
	out := make([]Component, len(comps))
	for i, c := range comps {
		if b, ok := c.(Button); ok && b.CustomID == "" {
			b.CustomID = generateCustomID()
			c = b
		}
		out[i] = c
	}
	return out
}

func generateCustomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Find returns the component with the given custom id.
func Find(rows []ActionRow, customID string) (Component, bool) {
	for _, r := range rows {
		for _, c := range r.Components {
			if CustomID(c) == customID && customID != "" {
				return c, true
			}
		}
	}
	return nil, false
}

// CustomID returns the custom id of c, or "" for components without one.
func CustomID(c Component) string {
	switch v := c.(type) {
	case Button:
		return v.CustomID
	case SelectMenu:
		return v.CustomID
	case Unknown:
		return v.CustomID
	}
	return ""
}

// Buttons returns every interactive button found in rows.
func Buttons(rows []ActionRow) []Button {
	var out []Button
	for _, r := range rows {
		for _, c := range r.Components {
			if b, ok := c.(Button); ok {
				out = append(out, b)
			}
		}
	}
	return out
}

// SelectMenus returns every select menu found in rows.
func SelectMenus(rows []ActionRow) []SelectMenu {
	var out []SelectMenu
	for _, r := range rows {
		for _, c := range r.Components {
			if m, ok := c.(SelectMenu); ok {
				out = append(out, m)
			}
		}
	}
	return out
}
