package discord

import (
	"encoding/json"

	"github.com/bwmarrin/discordgo"

	"github.com/lojasmm/discordui/internal/components"
)

// --- Incoming interaction payload ---
// Reference: https://discord.com/developers/docs/interactions/receiving-and-responding#interaction-object

type InteractionType int

const (
	InteractionPing                           InteractionType = 1
	InteractionApplicationCommand             InteractionType = 2
	InteractionMessageComponent               InteractionType = 3
	InteractionApplicationCommandAutocomplete InteractionType = 4
	InteractionModalSubmit                    InteractionType = 5
)

// GatewayPayload is a raw gateway frame as seen on the socket.
type GatewayPayload struct {
	Op       int             `json:"op"`
	Type     string          `json:"t"`
	Sequence int64           `json:"s"`
	Data     json.RawMessage `json:"d"`
}

const EventInteractionCreate = "INTERACTION_CREATE"

type Interaction struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          InteractionType `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	GuildID       string          `json:"guild_id,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
	Token         string          `json:"token"`
	Version       int             `json:"version"`
	Message       *Message        `json:"message,omitempty"`
	Locale        string          `json:"locale,omitempty"`
	GuildLocale   string          `json:"guild_locale,omitempty"`
}

// Author returns the invoking user. Guild interactions carry it inside member.
func (i *Interaction) Author() *User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// ComponentData is the "data" of a message component interaction.
type ComponentData struct {
	CustomID      string                   `json:"custom_id"`
	ComponentType components.ComponentType `json:"component_type"`
	Values        []string                 `json:"values,omitempty"`
}

// ComponentData decodes Data for a message component interaction.
func (i *Interaction) ComponentData() (*ComponentData, error) {
	var d ComponentData
	if err := json.Unmarshal(i.Data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type CommandType int

const (
	CommandChatInput CommandType = 1
	CommandUser      CommandType = 2
	CommandMessage   CommandType = 3
)

// CommandData is the "data" of an application command interaction.
type CommandData struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     CommandType     `json:"type"`
	Options  []CommandOption `json:"options,omitempty"`
	TargetID string          `json:"target_id,omitempty"`
	GuildID  string          `json:"guild_id,omitempty"`
}

// Option types that nest other options.
const (
	OptionSubCommand      = 1
	OptionSubCommandGroup = 2
)

type CommandOption struct {
	Name    string          `json:"name"`
	Type    int             `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	Options []CommandOption `json:"options,omitempty"`
	Focused bool            `json:"focused,omitempty"`
}

// CommandData decodes Data for an application command interaction.
func (i *Interaction) CommandData() (*CommandData, error) {
	var d CommandData
	if err := json.Unmarshal(i.Data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	GlobalName    string `json:"global_name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	Bot           bool   `json:"bot,omitempty"`
}

// DisplayName prefers the global display name over the username.
func (u *User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

type Member struct {
	User        *User    `json:"user,omitempty"`
	Nick        string   `json:"nick,omitempty"`
	Roles       []string `json:"roles"`
	JoinedAt    string   `json:"joined_at,omitempty"`
	Permissions string   `json:"permissions,omitempty"`
}

type MessageFlags int

const FlagEphemeral MessageFlags = 1 << 6

type Message struct {
	ID          string                 `json:"id"`
	ChannelID   string                 `json:"channel_id"`
	GuildID     string                 `json:"guild_id,omitempty"`
	Author      *User                  `json:"author,omitempty"`
	Content     string                 `json:"content"`
	Timestamp   string                 `json:"timestamp,omitempty"`
	Flags       MessageFlags           `json:"flags,omitempty"`
	Components  []components.ActionRow `json:"components,omitempty"`
	WebhookID   string                 `json:"webhook_id,omitempty"`
	Interaction *MessageInteraction    `json:"interaction,omitempty"`
}

// MessageInteraction identifies the interaction a message answers.
type MessageInteraction struct {
	ID   string          `json:"id"`
	Type InteractionType `json:"type"`
	Name string          `json:"name"`
	User *User           `json:"user,omitempty"`
}

// Ephemeral reports whether only the invoking user can see the message.
func (m *Message) Ephemeral() bool { return m.Flags&FlagEphemeral != 0 }

// --- Outgoing messages ---
// Reference: https://discord.com/developers/docs/resources/channel#create-message

type MessageSend struct {
	Content          string                            `json:"content,omitempty"`
	TTS              bool                              `json:"tts,omitempty"`
	Embeds           []*discordgo.MessageEmbed         `json:"embeds,omitempty"`
	Components       []components.ActionRow            `json:"components,omitempty"`
	AllowedMentions  *discordgo.MessageAllowedMentions `json:"allowed_mentions,omitempty"`
	MessageReference *discordgo.MessageReference       `json:"message_reference,omitempty"`
	Flags            MessageFlags                      `json:"flags,omitempty"`
	Nonce            string                            `json:"nonce,omitempty"`
}

// MessageEdit leaves nil fields untouched. A non-nil empty Components clears
// the message's components.
type MessageEdit struct {
	Content         *string                           `json:"content,omitempty"`
	Embeds          *[]*discordgo.MessageEmbed        `json:"embeds,omitempty"`
	Components      *[]components.ActionRow           `json:"components,omitempty"`
	AllowedMentions *discordgo.MessageAllowedMentions `json:"allowed_mentions,omitempty"`
	Flags           MessageFlags                      `json:"flags,omitempty"`
}

// WebhookMessage is the body of an execute-webhook call.
type WebhookMessage struct {
	Content         string                            `json:"content,omitempty"`
	Username        string                            `json:"username,omitempty"`
	AvatarURL       string                            `json:"avatar_url,omitempty"`
	TTS             bool                              `json:"tts,omitempty"`
	Embeds          []*discordgo.MessageEmbed         `json:"embeds,omitempty"`
	Components      []components.ActionRow            `json:"components,omitempty"`
	AllowedMentions *discordgo.MessageAllowedMentions `json:"allowed_mentions,omitempty"`
}

// --- Interaction responses ---
// Reference: https://discord.com/developers/docs/interactions/receiving-and-responding#interaction-response-object

type ResponseType int

const (
	ResponsePong                   ResponseType = 1
	ResponseChannelMessage         ResponseType = 4
	ResponseDeferredChannelMessage ResponseType = 5
	ResponseDeferredMessageUpdate  ResponseType = 6
	ResponseMessageUpdate          ResponseType = 7
	ResponseAutocompleteResult     ResponseType = 8
)

type InteractionResponse struct {
	Type ResponseType  `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

// ResponseData mirrors MessageEdit: Components is a pointer so an update can
// clear them.
type ResponseData struct {
	Content         string                            `json:"content,omitempty"`
	TTS             bool                              `json:"tts,omitempty"`
	Embeds          []*discordgo.MessageEmbed         `json:"embeds,omitempty"`
	Components      *[]components.ActionRow           `json:"components,omitempty"`
	AllowedMentions *discordgo.MessageAllowedMentions `json:"allowed_mentions,omitempty"`
	Flags           MessageFlags                      `json:"flags,omitempty"`
}
