package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// EventKind names the variant of an Event.
type EventKind string

const (
	// ReadyKind is the kind of *ReadyEvent.
	ReadyKind EventKind = "ready"
	// SlashCommandKind is the kind of *SlashCommandEvent.
	SlashCommandKind EventKind = "slash_command"
	// MessageCreateKind is the kind of *MessageEvent.
	MessageCreateKind EventKind = "message_create"
	// ButtonClickKind is the kind of *ButtonClickEvent.
	ButtonClickKind EventKind = "button_click"
)

// Event is an inbound gateway event translated into plain values.
type Event interface {
	// EventID is unique per delivered event.
	EventID() string
	Kind() EventKind
}

var (
	_ Event = (*ReadyEvent)(nil)
	_ Event = (*SlashCommandEvent)(nil)
	_ Event = (*MessageEvent)(nil)
	_ Event = (*ButtonClickEvent)(nil)
)

// ReadyEvent is delivered each time the gateway handshake completes.
type ReadyEvent struct {
	ID        string
	SessionID string
	BotID     string
	BotName   string
	Guilds    int
}

// EventID returns the event's unique id.
func (e *ReadyEvent) EventID() string { return e.ID }

// Kind returns ReadyKind.
func (e *ReadyEvent) Kind() EventKind { return ReadyKind }

// SlashCommandEvent is delivered when a user invokes a registered slash command.
type SlashCommandEvent struct {
	ID            string
	CommandName   string
	IssuingUser   string
	IssuingUserID string
	ChannelID     string
	GuildID       string
}

// EventID returns the event's unique id.
func (e *SlashCommandEvent) EventID() string { return e.ID }

// Kind returns SlashCommandKind.
func (e *SlashCommandEvent) Kind() EventKind { return SlashCommandKind }

// SlashCommandReply is the answer sent back over the originating interaction.
type SlashCommandReply struct {
	Reply Message
}

// SlashCommandHandler computes the reply for a slash command on the consumer context.
type SlashCommandHandler func(event *SlashCommandEvent) *SlashCommandReply

// DefaultSlashCommandReply is used when no SlashCommandHandler is given or the handler returns nil.
func DefaultSlashCommandReply(_ *SlashCommandEvent) *SlashCommandReply {
	return &SlashCommandReply{
		Reply: Message{
			Content:   "This is a generic reply, this message will appear for every command. Supply a SlashCommandHandler to change it.",
			Ephemeral: true,
		},
	}
}

// MessageEvent is delivered when someone other than the bot posts a message.
type MessageEvent struct {
	ID        string
	Message   Message
	Creator   string
	CreatorID string
	GuildID   string
	SentAt    time.Time
}

// EventID returns the event's unique id.
func (e *MessageEvent) EventID() string { return e.ID }

// Kind returns MessageCreateKind.
func (e *MessageEvent) Kind() EventKind { return MessageCreateKind }

// ButtonClickEvent is delivered when a user clicks a button.
// Pass it back to Bridge.ButtonClickReply to answer the click.
type ButtonClickEvent struct {
	ID            string
	CustomID      string
	IssuingUser   string
	IssuingUserID string
	ChannelID     string
	GuildID       string

	interaction *discordgo.Interaction
}

// EventID returns the event's unique id.
func (e *ButtonClickEvent) EventID() string { return e.ID }

// Kind returns ButtonClickKind.
func (e *ButtonClickEvent) Kind() EventKind { return ButtonClickKind }

// ButtonClickReply answers a ButtonClickEvent.
type ButtonClickReply struct {
	Reply Message

	// EditInteractedMessage replaces the message carrying the button instead of posting a new one.
	EditInteractedMessage bool
}

func newReadyEvent(r *discordgo.Ready) *ReadyEvent {
	event := &ReadyEvent{
		ID:        uuid.NewString(),
		SessionID: r.SessionID,
		Guilds:    len(r.Guilds),
	}
	if r.User != nil {
		event.BotID = r.User.ID
		event.BotName = displayName(r.User)
	}
	return event
}

func newSlashCommandEvent(i *discordgo.InteractionCreate) *SlashCommandEvent {
	event := &SlashCommandEvent{
		ID:          uuid.NewString(),
		CommandName: i.ApplicationCommandData().Name,
		ChannelID:   i.ChannelID,
		GuildID:     i.GuildID,
	}
	if user := interactionUser(i.Interaction); user != nil {
		event.IssuingUser = displayName(user)
		event.IssuingUserID = user.ID
	}
	return event
}

func newButtonClickEvent(i *discordgo.InteractionCreate) *ButtonClickEvent {
	event := &ButtonClickEvent{
		ID:          uuid.NewString(),
		CustomID:    i.MessageComponentData().CustomID,
		ChannelID:   i.ChannelID,
		GuildID:     i.GuildID,
		interaction: i.Interaction,
	}
	if user := interactionUser(i.Interaction); user != nil {
		event.IssuingUser = displayName(user)
		event.IssuingUserID = user.ID
	}
	return event
}

// MessageToEvent converts a *discordgo.MessageCreate event to *MessageEvent.
func MessageToEvent(m *discordgo.MessageCreate) (*MessageEvent, error) {
	if m.Author == nil || m.Author.ID == "" {
		return nil, ErrNoAuthor
	}

	return &MessageEvent{
		ID: uuid.NewString(),
		Message: Message{
			ChannelID: m.ChannelID,
			Content:   m.Content,
		},
		Creator:   displayName(m.Author),
		CreatorID: m.Author.ID,
		GuildID:   m.GuildID,
		SentAt:    m.Timestamp,
	}, nil
}

// interactionUser returns the member's user in guilds and the plain user in direct messages.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
