package components

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Layout files describe a component list in YAML:
//
//	components:
//	  - button: {custom_id: "yes", label: "Yes", style: green}
//	  - button: {custom_id: "no", label: "No", style: red}
//	  - link: {url: "https://example.com", label: Docs, new_line: true}
//	  - select:
//	      custom_id: lang
//	      max_values: 2
//	      options:
//	        - {value: go, label: Go}
//	        - {value: py, label: Python}
//	  - row:
//	      - button: {custom_id: a, label: A}
type layoutFile struct {
	Components []layoutItem `yaml:"components"`
}

type layoutItem struct {
	Button *layoutButton `yaml:"button"`
	Link   *layoutLink   `yaml:"link"`
	Select *layoutSelect `yaml:"select"`
	Row    []layoutItem  `yaml:"row"`
}

type layoutButton struct {
	CustomID string `yaml:"custom_id"`
	Label    string `yaml:"label"`
	Style    string `yaml:"style"`
	Emoji    string `yaml:"emoji"`
	Disabled bool   `yaml:"disabled"`
	NewLine  bool   `yaml:"new_line"`
}

type layoutLink struct {
	URL      string `yaml:"url"`
	Label    string `yaml:"label"`
	Emoji    string `yaml:"emoji"`
	Disabled bool   `yaml:"disabled"`
	NewLine  bool   `yaml:"new_line"`
}

type layoutSelect struct {
	CustomID    string         `yaml:"custom_id"`
	Placeholder string         `yaml:"placeholder"`
	MinValues   *int           `yaml:"min_values"`
	MaxValues   *int           `yaml:"max_values"`
	Disabled    bool           `yaml:"disabled"`
	Options     []layoutOption `yaml:"options"`
}

type layoutOption struct {
	Value       string `yaml:"value"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Emoji       string `yaml:"emoji"`
	Default     bool   `yaml:"default"`
}

// ParseLayout decodes a YAML layout document into a component list ready for
// BuildRows. Components are not validated here.
func ParseLayout(data []byte) ([]Component, error) {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	out := make([]Component, 0, len(f.Components))
	for i, item := range f.Components {
		c, err := item.component(true)
		if err != nil {
			return nil, fmt.Errorf("components[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (it layoutItem) component(allowRow bool) (Component, error) {
	set := 0
	for _, ok := range []bool{it.Button != nil, it.Link != nil, it.Select != nil, it.Row != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of button, link, select or row must be set")
	}

	switch {
	case it.Button != nil:
		style := StylePrimary
		if it.Button.Style != "" {
			s, err := ParseButtonStyle(it.Button.Style)
			if err != nil {
				return nil, err
			}
			if s == StyleLink {
				return nil, fmt.Errorf("button %q: use a link entry for url buttons", it.Button.CustomID)
			}
			style = s
		}
		emoji, err := optionalEmoji(it.Button.Emoji)
		if err != nil {
			return nil, err
		}
		return Button{
			CustomID: it.Button.CustomID,
			Label:    it.Button.Label,
			Style:    style,
			Emoji:    emoji,
			Disabled: it.Button.Disabled,
			NewLine:  it.Button.NewLine,
		}, nil

	case it.Link != nil:
		emoji, err := optionalEmoji(it.Link.Emoji)
		if err != nil {
			return nil, err
		}
		return LinkButton{
			URL:      it.Link.URL,
			Label:    it.Link.Label,
			Emoji:    emoji,
			Disabled: it.Link.Disabled,
			NewLine:  it.Link.NewLine,
		}, nil

	case it.Select != nil:
		m := NewSelectMenu(it.Select.CustomID)
		m.Placeholder = it.Select.Placeholder
		m.Disabled = it.Select.Disabled
		if it.Select.MinValues != nil {
			m.MinValues = *it.Select.MinValues
		}
		if it.Select.MaxValues != nil {
			m.MaxValues = *it.Select.MaxValues
		}
		for _, o := range it.Select.Options {
			emoji, err := optionalEmoji(o.Emoji)
			if err != nil {
				return nil, err
			}
			m.Options = append(m.Options, SelectOption{
				Value:       o.Value,
				Label:       o.Label,
				Description: o.Description,
				Emoji:       emoji,
				Default:     o.Default,
			})
		}
		return m, nil
	}

	if !allowRow {
		return nil, fmt.Errorf("rows cannot be nested")
	}
	row := ActionRow{Components: make([]Component, 0, len(it.Row))}
	for j, sub := range it.Row {
		c, err := sub.component(false)
		if err != nil {
			return nil, fmt.Errorf("row[%d]: %w", j, err)
		}
		row.Components = append(row.Components, c)
	}
	return row, nil
}

func optionalEmoji(s string) (*Emoji, error) {
	if s == "" {
		return nil, nil
	}
	return ParseEmoji(s)
}
