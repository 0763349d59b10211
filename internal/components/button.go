package components

import (
	"encoding/json"
	"net/url"
)

// Button is a clickable component that sends an interaction back to the bot.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	Emoji    *Emoji
	Disabled bool

	// NewLine forces the button onto a fresh row when rows are built.
	NewLine bool
}

// NewButton returns an enabled button with the given custom id, label and style.
func NewButton(customID, label string, style ButtonStyle) Button {
	return Button{CustomID: customID, Label: label, Style: style}
}

func (b Button) Type() ComponentType { return TypeButton }

func (b Button) Validate() error {
	if b.Style < StylePrimary || b.Style > StyleDanger {
		return invalid(TypeButton, "style", "must be between 1 and 4, got %d", b.Style)
	}
	if err := checkLength(TypeButton, "custom_id", b.CustomID, 1, MaxCustomIDLength); err != nil {
		return err
	}
	if b.Label == "" && b.Emoji == nil {
		return invalid(TypeButton, "label", "or emoji is required")
	}
	return checkLength(TypeButton, "label", b.Label, 0, MaxLabelLength)
}

type wireButton struct {
	Type     ComponentType `json:"type"`
	Style    ButtonStyle   `json:"style"`
	Label    string        `json:"label,omitempty"`
	Emoji    *Emoji        `json:"emoji,omitempty"`
	CustomID string        `json:"custom_id,omitempty"`
	URL      string        `json:"url,omitempty"`
	Disabled bool          `json:"disabled,omitempty"`
}

func (b Button) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireButton{
		Type:     TypeButton,
		Style:    b.Style,
		Label:    b.Label,
		Emoji:    b.Emoji,
		CustomID: b.CustomID,
		Disabled: b.Disabled,
	})
}

// LinkButton opens a URL and never produces an interaction.
type LinkButton struct {
	URL      string
	Label    string
	Emoji    *Emoji
	Disabled bool
	NewLine  bool
}

// NewLinkButton returns a link button pointing at rawURL.
func NewLinkButton(rawURL, label string) LinkButton {
	return LinkButton{URL: rawURL, Label: label}
}

func (b LinkButton) Type() ComponentType { return TypeButton }

func (b LinkButton) Validate() error {
	if b.URL == "" {
		return invalid(TypeButton, "url", "is required for link buttons")
	}
	u, err := url.Parse(b.URL)
	if err != nil {
		return invalid(TypeButton, "url", "is not a valid url: %v", err)
	}
	switch u.Scheme {
	case "http", "https", "discord":
	default:
		return invalid(TypeButton, "url", "must use http, https or discord scheme")
	}
	if b.Label == "" && b.Emoji == nil {
		return invalid(TypeButton, "label", "or emoji is required")
	}
	return checkLength(TypeButton, "label", b.Label, 0, MaxLabelLength)
}

func (b LinkButton) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireButton{
		Type:     TypeButton,
		Style:    StyleLink,
		Label:    b.Label,
		Emoji:    b.Emoji,
		URL:      b.URL,
		Disabled: b.Disabled,
	})
}
