package discord

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func newReady(botID string) *discordgo.Ready {
	return &discordgo.Ready{
		SessionID: "session-1",
		User:      &discordgo.User{ID: botID, Username: "bot"},
		Guilds:    []*discordgo.Guild{{ID: "1"}, {ID: "2"}},
	}
}

func newSlashCommand(name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:        "interaction-1",
			Type:      discordgo.InteractionApplicationCommand,
			ChannelID: "111",
			GuildID:   "222",
			Data:      discordgo.ApplicationCommandInteractionData{Name: name},
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "7", Username: "alice", GlobalName: "Alice"},
			},
		},
	}
}

func newButtonClick(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:        "interaction-2",
			Type:      discordgo.InteractionMessageComponent,
			ChannelID: "111",
			Data: discordgo.MessageComponentInteractionData{
				CustomID:      customID,
				ComponentType: discordgo.ButtonComponent,
			},
			User: &discordgo.User{ID: "8", Username: "bob"},
		},
	}
}

func TestBridge_handleReady(t *testing.T) {
	t.Run("before Start", func(t *testing.T) {
		var readies int
		bridge := newConfiguredBridge(t, &mockSession{}, WithReadyHandler(func(*ReadyEvent) {
			readies++
		}))

		bridge.handleReady(nil, newReady("100"))
		bridge.Loop().Drain()

		if bridge.State() != StateConfigured {
			t.Errorf("Expected state %s, got %s", StateConfigured, bridge.State())
		}
		if readies != 0 {
			t.Errorf("Ready should not be delivered before Start, got %d", readies)
		}
	})

	t.Run("registers commands once", func(t *testing.T) {
		var calls int
		var gotAppID, gotGuildID string
		var gotCommands []*discordgo.ApplicationCommand
		mock := &mockSession{
			applicationCommandBulkOverwriteFunc: func(appID string, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
				calls++
				gotAppID, gotGuildID, gotCommands = appID, guildID, commands
				return commands, nil
			},
		}

		var events []*ReadyEvent
		bridge := NewBridge(withMockSession(mock), WithRegistrationLatch(NewLatch()), WithReadyHandler(func(event *ReadyEvent) {
			events = append(events, event)
		}))
		bridge.CreateCommands([]CommandDescriptor{
			{Name: "hello", Description: "Greets you"},
			{Name: "menu", Description: "Shows a few buttons"},
		})
		if err := bridge.Create(&Config{Token: "test-token", GuildID: "222"}); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if err := bridge.Start(); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		t.Cleanup(bridge.Teardown)

		bridge.handleReady(nil, newReady("100"))
		bridge.handleReady(nil, newReady("100"))

		if calls != 1 {
			t.Fatalf("Expected one registration, got %d", calls)
		}
		if gotAppID != "100" {
			t.Errorf("Expected application id %q, got %q", "100", gotAppID)
		}
		if gotGuildID != "222" {
			t.Errorf("Expected guild id %q, got %q", "222", gotGuildID)
		}
		if len(gotCommands) != 2 || gotCommands[0].Name != "hello" || gotCommands[1].Name != "menu" {
			t.Errorf("Unexpected commands %+v", gotCommands)
		}
		if bridge.registry.Len() != 0 {
			t.Error("Expected registry to be drained")
		}

		if n := bridge.Loop().Drain(); n != 2 {
			t.Errorf("Expected 2 queued Ready events, got %d", n)
		}
		if len(events) != 2 {
			t.Fatalf("Expected 2 Ready events, got %d", len(events))
		}
		if events[0].ID == events[1].ID {
			t.Error("Expected distinct event ids")
		}
		if events[0].BotID != "100" || events[0].BotName != "bot" || events[0].Guilds != 2 || events[0].SessionID != "session-1" {
			t.Errorf("Unexpected event %+v", events[0])
		}
		if bridge.State() != StateConnected {
			t.Errorf("Expected state %s, got %s", StateConnected, bridge.State())
		}
	})

	t.Run("shared latch registers once per process", func(t *testing.T) {
		var calls atomic.Int32
		newMock := func() *mockSession {
			return &mockSession{
				applicationCommandBulkOverwriteFunc: func(_ string, _ string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
					calls.Add(1)
					return commands, nil
				},
			}
		}

		latch := NewLatch()
		first := newConnectedBridge(t, newMock(), WithRegistrationLatch(latch))
		second := newConnectedBridge(t, newMock(), WithRegistrationLatch(latch))
		second.handleReady(nil, newReady("100"))

		if calls.Load() != 1 {
			t.Errorf("Expected one registration across bridges, got %d", calls.Load())
		}
		if !first.Alive() || !second.Alive() {
			t.Error("Expected both bridges to be connected")
		}
	})

	t.Run("Ready without application id postpones registration", func(t *testing.T) {
		var gotAppID string
		var gotCommands []*discordgo.ApplicationCommand
		mock := &mockSession{
			applicationCommandBulkOverwriteFunc: func(appID string, _ string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
				gotAppID, gotCommands = appID, commands
				return commands, nil
			},
		}

		latch := NewLatch()
		bridge := newConfiguredBridge(t, mock, WithRegistrationLatch(latch))
		bridge.CreateCommand(CommandDescriptor{Name: "hello", Description: "Greets you"})
		if err := bridge.Start(); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		t.Cleanup(bridge.Teardown)

		bridge.handleReady(nil, &discordgo.Ready{SessionID: "session-1"})

		if gotCommands != nil {
			t.Fatalf("Expected no registration, got %+v", gotCommands)
		}
		if latch.Fired() {
			t.Error("Expected the Latch to stay armed")
		}
		if bridge.registry.Len() != 1 {
			t.Fatalf("Expected the command to stay pending, got %d", bridge.registry.Len())
		}

		bridge.handleReady(nil, newReady("100"))

		if gotAppID != "100" {
			t.Errorf("Expected application id %q, got %q", "100", gotAppID)
		}
		if len(gotCommands) != 1 || gotCommands[0].Name != "hello" {
			t.Errorf("Unexpected commands %+v", gotCommands)
		}
		if !latch.Fired() {
			t.Error("Expected the Latch to fire")
		}
	})

	t.Run("registration failure is not fatal", func(t *testing.T) {
		mock := &mockSession{
			applicationCommandBulkOverwriteFunc: func(string, string, []*discordgo.ApplicationCommand, ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
				return nil, errors.New("invalid form body")
			},
		}
		bridge := newConnectedBridge(t, mock)

		if !bridge.Alive() {
			t.Error("Expected bridge to stay connected")
		}
	})
}

func TestBridge_handleInteraction_slashCommand(t *testing.T) {
	t.Run("custom handler", func(t *testing.T) {
		responses := make(chan *discordgo.InteractionResponse, 1)
		mock := &mockSession{
			interactionRespondFunc: func(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
				if interaction.ID != "interaction-1" {
					t.Errorf("Unexpected interaction %s", interaction.ID)
				}
				responses <- resp
				return nil
			},
		}

		var given *SlashCommandEvent
		bridge := newConnectedBridge(t, mock, WithSlashCommandHandler(func(event *SlashCommandEvent) *SlashCommandReply {
			given = event
			return &SlashCommandReply{Reply: Message{Content: "Hello, " + event.IssuingUser}}
		}))

		bridge.handleInteraction(nil, newSlashCommand("hello"))

		select {
		case <-responses:
			t.Fatal("Reply must be computed on the Loop first")
		default:
		}

		if n := bridge.Loop().Drain(); n != 1 {
			t.Fatalf("Expected one queued function, got %d", n)
		}

		if given == nil {
			t.Fatal("Expected handler to be called")
		}
		if given.CommandName != "hello" || given.IssuingUser != "Alice" || given.IssuingUserID != "7" {
			t.Errorf("Unexpected event %+v", given)
		}
		if given.ChannelID != "111" || given.GuildID != "222" || given.ID == "" {
			t.Errorf("Unexpected event %+v", given)
		}

		resp := waitFor(t, responses)
		if resp.Type != discordgo.InteractionResponseChannelMessageWithSource {
			t.Errorf("Unexpected response type %d", resp.Type)
		}
		if resp.Data.Content != "Hello, Alice" {
			t.Errorf("Expected content %q, got %q", "Hello, Alice", resp.Data.Content)
		}
		if resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0 {
			t.Error("Reply should not be ephemeral")
		}
	})

	t.Run("nil reply falls back to the default", func(t *testing.T) {
		responses := make(chan *discordgo.InteractionResponse, 1)
		mock := &mockSession{
			interactionRespondFunc: func(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
				responses <- resp
				return nil
			},
		}
		bridge := newConnectedBridge(t, mock, WithSlashCommandHandler(func(*SlashCommandEvent) *SlashCommandReply {
			return nil
		}))

		bridge.handleInteraction(nil, newSlashCommand("unknown"))
		bridge.Loop().Drain()

		resp := waitFor(t, responses)
		expected := DefaultSlashCommandReply(nil).Reply.Content
		if resp.Data.Content != expected {
			t.Errorf("Expected content %q, got %q", expected, resp.Data.Content)
		}
		if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
			t.Error("Default reply should be ephemeral")
		}
	})

	t.Run("default handler", func(t *testing.T) {
		responses := make(chan *discordgo.InteractionResponse, 1)
		mock := &mockSession{
			interactionRespondFunc: func(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
				responses <- resp
				return nil
			},
		}
		bridge := newConnectedBridge(t, mock)

		bridge.handleInteraction(nil, newSlashCommand("hello"))
		bridge.Loop().Drain()

		resp := waitFor(t, responses)
		if resp.Data.Content != DefaultSlashCommandReply(nil).Reply.Content {
			t.Errorf("Unexpected content %q", resp.Data.Content)
		}
	})

	t.Run("panicking handler", func(t *testing.T) {
		mock := &mockSession{
			interactionRespondFunc: func(*discordgo.Interaction, *discordgo.InteractionResponse, ...discordgo.RequestOption) error {
				t.Error("No reply should be sent when the handler panics")
				return nil
			},
		}
		bridge := newConnectedBridge(t, mock, WithSlashCommandHandler(func(*SlashCommandEvent) *SlashCommandReply {
			panic("boom")
		}))

		bridge.handleInteraction(nil, newSlashCommand("hello"))

		// Should not panic -- the Loop recovers
		bridge.Loop().Drain()
	})

	t.Run("without session", func(t *testing.T) {
		bridge := NewBridge()

		bridge.handleInteraction(nil, newSlashCommand("hello"))

		if n := bridge.Loop().Drain(); n != 0 {
			t.Errorf("Expected nothing queued, got %d", n)
		}
	})
}

func TestBridge_handleInteraction_buttonClick(t *testing.T) {
	t.Run("button", func(t *testing.T) {
		var given *ButtonClickEvent
		bridge := newConnectedBridge(t, &mockSession{}, WithButtonClickHandler(func(event *ButtonClickEvent) {
			given = event
		}))

		bridge.handleInteraction(nil, newButtonClick("pick_red"))
		bridge.Loop().Drain()

		if given == nil {
			t.Fatal("Expected handler to be called")
		}
		if given.CustomID != "pick_red" || given.IssuingUser != "bob" || given.IssuingUserID != "8" || given.ChannelID != "111" {
			t.Errorf("Unexpected event %+v", given)
		}
		if given.interaction == nil || given.interaction.ID != "interaction-2" {
			t.Error("Expected the originating interaction to be kept")
		}
	})

	t.Run("select menu is ignored", func(t *testing.T) {
		bridge := newConnectedBridge(t, &mockSession{}, WithButtonClickHandler(func(*ButtonClickEvent) {
			t.Error("Select menus should not be delivered as button clicks")
		}))

		i := newButtonClick("menu")
		i.Data = discordgo.MessageComponentInteractionData{
			CustomID:      "menu",
			ComponentType: discordgo.SelectMenuComponent,
		}
		bridge.handleInteraction(nil, i)

		if n := bridge.Loop().Drain(); n != 0 {
			t.Errorf("Expected nothing queued, got %d", n)
		}
	})

	t.Run("without handler", func(t *testing.T) {
		bridge := newConnectedBridge(t, &mockSession{})

		bridge.handleInteraction(nil, newButtonClick("pick_red"))

		if n := bridge.Loop().Drain(); n != 0 {
			t.Errorf("Expected nothing queued, got %d", n)
		}
	})
}

func TestBridge_handleMessageCreate(t *testing.T) {
	newMessage := func(author *discordgo.User, content string) *discordgo.MessageCreate {
		return &discordgo.MessageCreate{
			Message: &discordgo.Message{
				ID:        "msg-1",
				ChannelID: "111",
				GuildID:   "222",
				Content:   content,
				Author:    author,
			},
		}
	}

	tests := []struct {
		name      string
		author    *discordgo.User
		connected bool
		delivered bool
	}{
		{
			name:      "regular message",
			author:    &discordgo.User{ID: "7", Username: "alice"},
			connected: true,
			delivered: true,
		},
		{
			name:      "message from the bot itself",
			author:    &discordgo.User{ID: "100", Username: "bot"},
			connected: true,
			delivered: false,
		},
		{
			name:      "message without author",
			author:    nil,
			connected: true,
			delivered: false,
		},
		{
			name:      "author without id",
			author:    &discordgo.User{Username: "system"},
			connected: true,
			delivered: false,
		},
		{
			name:      "message before Ready",
			author:    &discordgo.User{ID: "100", Username: "bot"},
			connected: false,
			delivered: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var given *MessageEvent
			handler := WithMessageHandler(func(event *MessageEvent) {
				given = event
			})

			var bridge *Bridge
			if tt.connected {
				bridge = newConnectedBridge(t, &mockSession{}, handler)
			} else {
				bridge = newConfiguredBridge(t, &mockSession{}, handler)
			}

			bridge.handleMessageCreate(nil, newMessage(tt.author, "hello"))
			bridge.Loop().Drain()

			if tt.delivered && given == nil {
				t.Fatal("Expected message to be delivered")
			}
			if !tt.delivered && given != nil {
				t.Fatalf("Expected message to be skipped, got %+v", given)
			}
			if given != nil && (given.Message.Content != "hello" || given.Message.ChannelID != "111" || given.CreatorID != tt.author.ID) {
				t.Errorf("Unexpected event %+v", given)
			}
		})
	}

	t.Run("self id from session state", func(t *testing.T) {
		var delivered int
		bridge := newConfiguredBridge(t, &mockSession{}, WithMessageHandler(func(*MessageEvent) {
			delivered++
		}))

		s := &discordgo.Session{State: discordgo.NewState()}
		s.State.User = &discordgo.User{ID: "100"}

		bridge.handleMessageCreate(s, newMessage(&discordgo.User{ID: "100"}, "echo"))
		bridge.handleMessageCreate(s, newMessage(&discordgo.User{ID: "7"}, "hi"))
		bridge.Loop().Drain()

		if delivered != 1 {
			t.Errorf("Expected one delivered message, got %d", delivered)
		}
	})

	t.Run("without handler", func(t *testing.T) {
		bridge := newConnectedBridge(t, &mockSession{})

		bridge.handleMessageCreate(nil, newMessage(&discordgo.User{ID: "7"}, "hello"))

		if n := bridge.Loop().Drain(); n != 0 {
			t.Errorf("Expected nothing queued, got %d", n)
		}
	})
}

func TestMessageToEvent(t *testing.T) {
	t.Run("regular message", func(t *testing.T) {
		m := &discordgo.MessageCreate{
			Message: &discordgo.Message{
				ChannelID: "111",
				GuildID:   "222",
				Content:   "Hello",
				Author:    &discordgo.User{ID: "7", Username: "alice", GlobalName: "Alice"},
			},
		}

		event, err := MessageToEvent(m)
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		if event.ID == "" {
			t.Error("Expected an event id")
		}
		if event.Kind() != MessageCreateKind {
			t.Errorf("Unexpected kind %s", event.Kind())
		}
		if event.Creator != "Alice" {
			t.Errorf("Expected global name to be preferred, got %q", event.Creator)
		}
		if event.Message.Content != "Hello" || event.Message.ChannelID != "111" || event.GuildID != "222" {
			t.Errorf("Unexpected event %+v", event)
		}
	})

	t.Run("nil author", func(t *testing.T) {
		m := &discordgo.MessageCreate{
			Message: &discordgo.Message{ChannelID: "111", Content: "system"},
		}

		if _, err := MessageToEvent(m); !errors.Is(err, ErrNoAuthor) {
			t.Errorf("Expected ErrNoAuthor, got %+v", err)
		}
	})
}
