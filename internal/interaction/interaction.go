// Package interaction wraps incoming Discord interactions in typed objects
// that know how to answer them.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/discord"
)

var (
	ErrAlreadyDeferred   = errors.New("interaction: already deferred")
	ErrAlreadyResponded  = errors.New("interaction: already responded")
	ErrNotAcknowledged   = errors.New("interaction: no initial response sent yet")
	ErrEphemeralDeletion = errors.New("interaction: hidden responses cannot be deleted")
	ErrNotComponent      = errors.New("interaction: only component interactions can update their message")
)

// Responder is the REST surface an interaction answers through.
// *discord.Client implements it.
type Responder interface {
	RespondInteraction(ctx context.Context, interactionID, token string, resp *discord.InteractionResponse) error
	EditOriginal(ctx context.Context, token string, edit *discord.MessageEdit) (*discord.Message, error)
	DeleteOriginal(ctx context.Context, token string) error
	FollowUp(ctx context.Context, token string, msg *discord.MessageSend) (*discord.Message, error)
	EditFollowUp(ctx context.Context, token, messageID string, edit *discord.MessageEdit) (*discord.Message, error)
	DeleteFollowUp(ctx context.Context, token, messageID string) error
}

// MessageOptions describes the body of a response, follow-up or edit.
// Components go through components.BuildRows.
type MessageOptions struct {
	Content         string
	Embeds          []*discordgo.MessageEmbed
	Components      []components.Component
	TTS             bool
	Hidden          bool
	ClearComponents bool
	AllowedMentions *discordgo.MessageAllowedMentions
}

func (o MessageOptions) rows() (*[]components.ActionRow, error) {
	if o.ClearComponents {
		empty := []components.ActionRow{}
		return &empty, nil
	}
	if len(o.Components) == 0 {
		return nil, nil
	}
	rows, err := components.BuildRows(o.Components...)
	if err != nil {
		return nil, err
	}
	return &rows, nil
}

func (o MessageOptions) flags() discord.MessageFlags {
	if o.Hidden {
		return discord.FlagEphemeral
	}
	return 0
}

func (o MessageOptions) responseData() (*discord.ResponseData, error) {
	rows, err := o.rows()
	if err != nil {
		return nil, err
	}
	return &discord.ResponseData{
		Content:         o.Content,
		TTS:             o.TTS,
		Embeds:          o.Embeds,
		Components:      rows,
		AllowedMentions: o.AllowedMentions,
		Flags:           o.flags(),
	}, nil
}

func (o MessageOptions) send() (*discord.MessageSend, error) {
	rows, err := o.rows()
	if err != nil {
		return nil, err
	}
	msg := &discord.MessageSend{
		Content:         o.Content,
		TTS:             o.TTS,
		Embeds:          o.Embeds,
		AllowedMentions: o.AllowedMentions,
		Flags:           o.flags(),
	}
	if rows != nil {
		msg.Components = *rows
	}
	return msg, nil
}

func (o MessageOptions) edit() (*discord.MessageEdit, error) {
	rows, err := o.rows()
	if err != nil {
		return nil, err
	}
	edit := &discord.MessageEdit{Components: rows, AllowedMentions: o.AllowedMentions}
	if o.Content != "" {
		content := o.Content
		edit.Content = &content
	}
	if o.Embeds != nil {
		embeds := o.Embeds
		edit.Embeds = &embeds
	}
	return edit, nil
}

// Interaction is the common part of every typed interaction.
type Interaction struct {
	ID            string
	Token         string
	ApplicationID string
	Type          discord.InteractionType
	GuildID       string
	ChannelID     string
	Author        *discord.User
	Member        *discord.Member
	Message       *discord.Message
	Locale        string
	Raw           *discord.Interaction

	responder Responder

	mu             sync.Mutex
	deferred       bool
	deferredUpdate bool
	responded      bool
	hidden         bool
}

// New wraps raw. Responses go through r.
func New(raw *discord.Interaction, r Responder) *Interaction {
	return &Interaction{
		ID:            raw.ID,
		Token:         raw.Token,
		ApplicationID: raw.ApplicationID,
		Type:          raw.Type,
		GuildID:       raw.GuildID,
		ChannelID:     raw.ChannelID,
		Author:        raw.Author(),
		Member:        raw.Member,
		Message:       raw.Message,
		Locale:        raw.Locale,
		Raw:           raw,
		responder:     r,
	}
}

func (i *Interaction) Deferred() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deferred
}

func (i *Interaction) Responded() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.responded
}

// Acknowledged reports whether the initial callback has been sent.
func (i *Interaction) Acknowledged() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deferred || i.responded
}

// Defer acknowledges the interaction without a visible answer yet. A
// component interaction deferred without hidden keeps its message as is;
// anything else shows a "thinking" placeholder, ephemeral when hidden.
func (i *Interaction) Defer(ctx context.Context, hidden bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.responded {
		return ErrAlreadyResponded
	}
	if i.deferred {
		return ErrAlreadyDeferred
	}

	resp := &discord.InteractionResponse{Type: discord.ResponseDeferredChannelMessage}
	update := i.Type == discord.InteractionMessageComponent && !hidden
	if update {
		resp.Type = discord.ResponseDeferredMessageUpdate
	} else if hidden {
		resp.Data = &discord.ResponseData{Flags: discord.FlagEphemeral}
	}
	if err := i.responder.RespondInteraction(ctx, i.ID, i.Token, resp); err != nil {
		return err
	}
	i.deferred = true
	i.deferredUpdate = update
	i.hidden = hidden
	return nil
}

// Respond answers with a new message. The first answer uses the callback
// endpoint (the returned message is nil then), an answer to a deferred
// placeholder edits it, and anything later is sent as a follow-up.
func (i *Interaction) Respond(ctx context.Context, opts MessageOptions) (*discord.Message, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch {
	case !i.deferred && !i.responded:
		data, err := opts.responseData()
		if err != nil {
			return nil, err
		}
		resp := &discord.InteractionResponse{Type: discord.ResponseChannelMessage, Data: data}
		if err := i.responder.RespondInteraction(ctx, i.ID, i.Token, resp); err != nil {
			return nil, err
		}
		i.responded = true
		i.hidden = opts.Hidden
		return nil, nil

	case i.deferred && !i.responded && !i.deferredUpdate:
		edit, err := opts.edit()
		if err != nil {
			return nil, err
		}
		msg, err := i.responder.EditOriginal(ctx, i.Token, edit)
		if err != nil {
			return nil, err
		}
		i.responded = true
		return msg, nil
	}

	msg, err := i.followUp(ctx, opts)
	if err != nil {
		return nil, err
	}
	i.responded = true
	return msg, nil
}

// Update edits the message the component is attached to.
func (i *Interaction) Update(ctx context.Context, opts MessageOptions) error {
	if i.Type != discord.InteractionMessageComponent {
		return ErrNotComponent
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.responded {
		return ErrAlreadyResponded
	}

	if i.deferred {
		edit, err := opts.edit()
		if err != nil {
			return err
		}
		if _, err := i.responder.EditOriginal(ctx, i.Token, edit); err != nil {
			return err
		}
		i.responded = true
		return nil
	}

	data, err := opts.responseData()
	if err != nil {
		return err
	}
	data.Flags = 0
	resp := &discord.InteractionResponse{Type: discord.ResponseMessageUpdate, Data: data}
	if err := i.responder.RespondInteraction(ctx, i.ID, i.Token, resp); err != nil {
		return err
	}
	i.responded = true
	return nil
}

// FollowUp sends an additional message. The interaction must have been
// acknowledged first.
func (i *Interaction) FollowUp(ctx context.Context, opts MessageOptions) (*discord.Message, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.deferred && !i.responded {
		return nil, ErrNotAcknowledged
	}
	return i.followUp(ctx, opts)
}

func (i *Interaction) followUp(ctx context.Context, opts MessageOptions) (*discord.Message, error) {
	msg, err := opts.send()
	if err != nil {
		return nil, err
	}
	return i.responder.FollowUp(ctx, i.Token, msg)
}

// EditOriginal edits the initial response.
func (i *Interaction) EditOriginal(ctx context.Context, opts MessageOptions) (*discord.Message, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.deferred && !i.responded {
		return nil, ErrNotAcknowledged
	}
	edit, err := opts.edit()
	if err != nil {
		return nil, err
	}
	return i.responder.EditOriginal(ctx, i.Token, edit)
}

// DeleteOriginal deletes the initial response.
func (i *Interaction) DeleteOriginal(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.deferred && !i.responded {
		return ErrNotAcknowledged
	}
	if i.hidden {
		return ErrEphemeralDeletion
	}
	if err := i.responder.DeleteOriginal(ctx, i.Token); err != nil {
		return fmt.Errorf("interaction %s: %w", i.ID, err)
	}
	return nil
}

// EditFollowUp edits a follow-up sent for this interaction.
func (i *Interaction) EditFollowUp(ctx context.Context, messageID string, opts MessageOptions) (*discord.Message, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.deferred && !i.responded {
		return nil, ErrNotAcknowledged
	}
	edit, err := opts.edit()
	if err != nil {
		return nil, err
	}
	return i.responder.EditFollowUp(ctx, i.Token, messageID, edit)
}

// DeleteFollowUp deletes a follow-up sent for this interaction.
func (i *Interaction) DeleteFollowUp(ctx context.Context, messageID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.deferred && !i.responded {
		return ErrNotAcknowledged
	}
	if err := i.responder.DeleteFollowUp(ctx, i.Token, messageID); err != nil {
		return fmt.Errorf("interaction %s: %w", i.ID, err)
	}
	return nil
}
