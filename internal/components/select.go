package components

import "encoding/json"

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Emoji       *Emoji `json:"emoji,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// NewSelectOption returns an option whose label doubles as a description when
// one is given.
func NewSelectOption(value, label, description string) SelectOption {
	return SelectOption{Value: value, Label: label, Description: description}
}

// SelectMenu is a dropdown. It always occupies an action row of its own.
//
// A zero MaxValues is sent as max(1, MinValues). A zero MinValues allows the
// user to clear the selection; use NewSelectMenu for Discord's 1..1 default.
type SelectMenu struct {
	CustomID    string
	Options     []SelectOption
	Placeholder string
	MinValues   int
	MaxValues   int
	Disabled    bool
}

// NewSelectMenu returns a single-choice menu.
func NewSelectMenu(customID string, options ...SelectOption) SelectMenu {
	return SelectMenu{CustomID: customID, Options: options, MinValues: 1, MaxValues: 1}
}

func (m SelectMenu) Type() ComponentType { return TypeSelectMenu }

func (m SelectMenu) maxValues() int {
	if m.MaxValues == 0 {
		return max(1, m.MinValues)
	}
	return m.MaxValues
}

func (m SelectMenu) Validate() error {
	if err := checkLength(TypeSelectMenu, "custom_id", m.CustomID, 1, MaxCustomIDLength); err != nil {
		return err
	}
	if len(m.Options) == 0 || len(m.Options) > MaxSelectOptions {
		return invalid(TypeSelectMenu, "options", "must hold between 1 and %d entries, got %d", MaxSelectOptions, len(m.Options))
	}
	if err := checkLength(TypeSelectMenu, "placeholder", m.Placeholder, 0, MaxPlaceholderLength); err != nil {
		return err
	}
	maxValues := m.maxValues()
	if m.MinValues < 0 || m.MinValues > MaxSelectOptions {
		return invalid(TypeSelectMenu, "min_values", "must be between 0 and %d, got %d", MaxSelectOptions, m.MinValues)
	}
	if maxValues < 1 || maxValues > MaxSelectOptions {
		return invalid(TypeSelectMenu, "max_values", "must be between 1 and %d, got %d", MaxSelectOptions, maxValues)
	}
	if m.MinValues > maxValues {
		return invalid(TypeSelectMenu, "min_values", "(%d) exceeds max_values (%d)", m.MinValues, maxValues)
	}
	if maxValues > len(m.Options) {
		return invalid(TypeSelectMenu, "max_values", "(%d) exceeds the number of options (%d)", maxValues, len(m.Options))
	}

	seen := make(map[string]bool, len(m.Options))
	defaults := 0
	for _, o := range m.Options {
		if err := checkLength(TypeSelectMenu, "option label", o.Label, 1, MaxOptionLength); err != nil {
			return err
		}
		if err := checkLength(TypeSelectMenu, "option value", o.Value, 1, MaxOptionLength); err != nil {
			return err
		}
		if err := checkLength(TypeSelectMenu, "option description", o.Description, 0, MaxOptionLength); err != nil {
			return err
		}
		if seen[o.Value] {
			return invalid(TypeSelectMenu, "option value", "%q is used twice", o.Value)
		}
		seen[o.Value] = true
		if o.Default {
			defaults++
		}
	}
	if defaults > maxValues {
		return invalid(TypeSelectMenu, "options", "mark %d defaults but at most %d values can be selected", defaults, maxValues)
	}
	return nil
}

// Option returns the option with the given value.
func (m SelectMenu) Option(value string) (SelectOption, bool) {
	for _, o := range m.Options {
		if o.Value == value {
			return o, true
		}
	}
	return SelectOption{}, false
}

type wireSelect struct {
	Type        ComponentType  `json:"type"`
	CustomID    string         `json:"custom_id"`
	Options     []SelectOption `json:"options"`
	Placeholder string         `json:"placeholder,omitempty"`
	MinValues   int            `json:"min_values"`
	MaxValues   int            `json:"max_values"`
	Disabled    bool           `json:"disabled,omitempty"`
}

func (m SelectMenu) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireSelect{
		Type:        TypeSelectMenu,
		CustomID:    m.CustomID,
		Options:     m.Options,
		Placeholder: m.Placeholder,
		MinValues:   m.MinValues,
		MaxValues:   m.maxValues(),
		Disabled:    m.Disabled,
	})
}
