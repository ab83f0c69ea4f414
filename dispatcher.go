package discord

import (
	"runtime/debug"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// The handlers below run on discordgo's goroutines. They only convert events and
// post them to the Loop, so the gateway never waits on consumer code.

func (b *Bridge) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	defer recoverHandler(string(ReadyKind))

	event := newReadyEvent(r)

	b.mu.Lock()
	if b.state != StateStarting && b.state != StateConnected {
		b.mu.Unlock()
		logger.Debugf("Ignoring Ready while the bot is %s.", b.state)
		return
	}
	b.state = StateConnected
	b.botID = event.BotID
	s, config := b.session, b.config
	b.mu.Unlock()

	// Without an application id nothing can be registered; a later Ready may carry one.
	if event.BotID == "" {
		logger.Errorf("Ready carried no application id. Slash command registration is postponed.")
	} else if b.latch.Fire() {
		b.registerCommands(s, config, event.BotID)
	}

	logger.Infof("Discord session is ready as %s (%s) in %d guild(s).", event.BotName, event.BotID, event.Guilds)

	if b.onReady != nil {
		b.loop.Post(func() { b.onReady(event) })
	}
}

func (b *Bridge) registerCommands(s session, config *Config, appID string) {
	commands := b.registry.Drain()
	registered, err := s.ApplicationCommandBulkOverwrite(appID, config.GuildID, toApplicationCommands(commands))
	if err != nil {
		logger.Errorf("Failed to register slash commands: %+v", err)
		return
	}

	logger.Infof("Registered %d slash command(s).", len(registered))
}

func (b *Bridge) handleInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler("interaction")

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchSlashCommand(i)

	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().ComponentType != discordgo.ButtonComponent {
			return
		}
		b.dispatchButtonClick(i)

	default:
		logger.Debugf("Ignoring interaction of type %s.", i.Type)
	}
}

// dispatchSlashCommand computes the reply on the Loop and sends it from a separate goroutine.
// Nothing about the interaction is kept once the reply is sent.
func (b *Bridge) dispatchSlashCommand(i *discordgo.InteractionCreate) {
	event := newSlashCommandEvent(i)
	interaction := i.Interaction

	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return
	}

	b.loop.Post(func() {
		var reply *SlashCommandReply
		if b.onSlashCommand != nil {
			reply = b.onSlashCommand(event)
		}
		if reply == nil {
			reply = DefaultSlashCommandReply(event)
		}

		answer := reply.Reply
		go func() {
			defer recoverHandler(string(SlashCommandKind))

			response := &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: answer.toResponseData(),
			}
			if err := s.InteractionRespond(interaction, response); err != nil {
				logger.Errorf("Failed to reply to /%s (event %s): %+v", event.CommandName, event.ID, err)
			}
		}()
	})
}

func (b *Bridge) dispatchButtonClick(i *discordgo.InteractionCreate) {
	if b.onButtonClick == nil {
		return
	}

	event := newButtonClickEvent(i)
	b.loop.Post(func() { b.onButtonClick(event) })
}

func (b *Bridge) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer recoverHandler(string(MessageCreateKind))

	event, err := MessageToEvent(m)
	if err != nil {
		// MessageToEvent returns ErrNoAuthor for system messages with no author.
		logger.Debugf("Skipping message: %+v", err)
		return
	}

	// Ignore messages from the bot itself.
	if self := b.selfID(s); self != "" && event.CreatorID == self {
		return
	}

	if b.onMessage == nil {
		return
	}
	b.loop.Post(func() { b.onMessage(event) })
}

// selfID returns the bot's user id, or an empty string before Ready.
func (b *Bridge) selfID(s *discordgo.Session) string {
	b.mu.Lock()
	id := b.botID
	b.mu.Unlock()
	if id != "" {
		return id
	}

	if s != nil && s.State != nil && s.State.User != nil {
		return s.State.User.ID
	}
	return ""
}

func recoverHandler(what string) {
	if r := recover(); r != nil {
		logger.Errorf("Recovered from panic while handling %s: %+v\n%s", what, r, debug.Stack())
	}
}
