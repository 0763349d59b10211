package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Requester performs an authenticated REST call. *discordgo.Session satisfies
// it, which keeps bucket rate limiting in the host library.
type Requester interface {
	RequestWithBucketID(method, urlStr string, data interface{}, bucketID string, options ...discordgo.RequestOption) ([]byte, error)
}

// Client sends the raw component payloads that discordgo's typed helpers
// cannot express.
type Client struct {
	rest  Requester
	appID string
}

func NewClient(rest Requester, appID string) *Client {
	return &Client{rest: rest, appID: appID}
}

// ApplicationID returns the application the interaction webhooks belong to.
func (c *Client) ApplicationID() string { return c.appID }

func (c *Client) SendMessage(ctx context.Context, channelID string, msg *MessageSend) (*Message, error) {
	endpoint := discordgo.EndpointChannelMessages(channelID)
	var out Message
	if err := c.do(ctx, http.MethodPost, endpoint, endpoint, msg, &out); err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	return &out, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, edit *MessageEdit) (*Message, error) {
	var out Message
	err := c.do(ctx, http.MethodPatch,
		discordgo.EndpointChannelMessage(channelID, messageID),
		discordgo.EndpointChannelMessage(channelID, ""),
		edit, &out)
	if err != nil {
		return nil, fmt.Errorf("editing message %s: %w", messageID, err)
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := c.do(ctx, http.MethodDelete,
		discordgo.EndpointChannelMessage(channelID, messageID),
		discordgo.EndpointChannelMessage(channelID, ""),
		nil, nil)
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", messageID, err)
	}
	return nil
}

// CreateDM opens (or reuses) the direct message channel with userID.
func (c *Client) CreateDM(ctx context.Context, userID string) (string, error) {
	endpoint := discordgo.EndpointUserChannels("@me")
	var ch struct {
		ID string `json:"id"`
	}
	body := map[string]string{"recipient_id": userID}
	if err := c.do(ctx, http.MethodPost, endpoint, endpoint, body, &ch); err != nil {
		return "", fmt.Errorf("opening DM with %s: %w", userID, err)
	}
	return ch.ID, nil
}

// RespondInteraction sends the initial callback. It must happen within three
// seconds of the interaction being created.
func (c *Client) RespondInteraction(ctx context.Context, interactionID, token string, resp *InteractionResponse) error {
	endpoint := discordgo.EndpointInteractionResponse(interactionID, token)
	if err := c.do(ctx, http.MethodPost, endpoint, endpoint, resp, nil); err != nil {
		return fmt.Errorf("responding to interaction %s: %w", interactionID, err)
	}
	return nil
}

func (c *Client) EditOriginal(ctx context.Context, token string, edit *MessageEdit) (*Message, error) {
	endpoint := discordgo.EndpointInteractionResponseActions(c.appID, token)
	var out Message
	if err := c.do(ctx, http.MethodPatch, endpoint, endpoint, edit, &out); err != nil {
		return nil, fmt.Errorf("editing original response: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteOriginal(ctx context.Context, token string) error {
	endpoint := discordgo.EndpointInteractionResponseActions(c.appID, token)
	if err := c.do(ctx, http.MethodDelete, endpoint, endpoint, nil, nil); err != nil {
		return fmt.Errorf("deleting original response: %w", err)
	}
	return nil
}

func (c *Client) FollowUp(ctx context.Context, token string, msg *MessageSend) (*Message, error) {
	endpoint := discordgo.EndpointFollowupMessage(c.appID, token)
	var out Message
	if err := c.do(ctx, http.MethodPost, endpoint, endpoint, msg, &out); err != nil {
		return nil, fmt.Errorf("sending follow-up: %w", err)
	}
	return &out, nil
}

func (c *Client) EditFollowUp(ctx context.Context, token, messageID string, edit *MessageEdit) (*Message, error) {
	endpoint := discordgo.EndpointFollowupMessageActions(c.appID, token, messageID)
	var out Message
	err := c.do(ctx, http.MethodPatch, endpoint, discordgo.EndpointFollowupMessage(c.appID, token), edit, &out)
	if err != nil {
		return nil, fmt.Errorf("editing follow-up %s: %w", messageID, err)
	}
	return &out, nil
}

func (c *Client) DeleteFollowUp(ctx context.Context, token, messageID string) error {
	endpoint := discordgo.EndpointFollowupMessageActions(c.appID, token, messageID)
	if err := c.do(ctx, http.MethodDelete, endpoint, discordgo.EndpointFollowupMessage(c.appID, token), nil, nil); err != nil {
		return fmt.Errorf("deleting follow-up %s: %w", messageID, err)
	}
	return nil
}

// ExecuteWebhook posts through a channel webhook and waits for the created
// message so its id can be tracked.
func (c *Client) ExecuteWebhook(ctx context.Context, webhookID, token string, msg *WebhookMessage) (*Message, error) {
	endpoint := discordgo.EndpointWebhookToken(webhookID, token)
	var out Message
	if err := c.do(ctx, http.MethodPost, endpoint+"?wait=true", endpoint, msg, &out); err != nil {
		return nil, fmt.Errorf("executing webhook %s: %w", webhookID, err)
	}
	return &out, nil
}

func (c *Client) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	endpoint := discordgo.EndpointGuildMemberRole(guildID, userID, roleID)
	err := c.do(ctx, http.MethodPut, endpoint, discordgo.EndpointGuildMemberRole(guildID, "", ""), nil, nil)
	if err != nil {
		return fmt.Errorf("adding role %s to %s: %w", roleID, userID, err)
	}
	return nil
}

// OverwriteCommands replaces the application's commands. An empty guildID
// targets the global command list.
func (c *Client) OverwriteCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	endpoint := discordgo.EndpointApplicationGlobalCommands(c.appID)
	if guildID != "" {
		endpoint = discordgo.EndpointApplicationGuildCommands(c.appID, guildID)
	}
	var out []*discordgo.ApplicationCommand
	if err := c.do(ctx, http.MethodPut, endpoint, endpoint, cmds, &out); err != nil {
		return nil, fmt.Errorf("registering commands: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, bucket string, body, out any) error {
	raw, err := c.rest.RequestWithBucketID(method, endpoint, body, bucket, discordgo.WithContext(ctx))
	if err != nil {
		return ClassifyError(err)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
