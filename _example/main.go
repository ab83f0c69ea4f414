// This is an example bot that demonstrates how to use go-discord-bridge.
// It registers two slash commands, echoes plain messages, and answers button clicks.
//
// Usage:
//
//	export DISCORD_TOKEN="your-bot-token"
//	go run .
//
// Then, in a Discord channel where the bot is present, use:
//
//	/hello
//	/menu
//	any text, which is echoed back
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklahomer/go-kasumi/logger"

	discord "github.com/oklahomer/go-discord-bridge"
)

func main() {
	config, err := discord.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read configuration: %s\n", err)
		os.Exit(1)
	}
	if config.Token == "" {
		fmt.Fprintln(os.Stderr, "DISCORD_TOKEN environment variable is required")
		os.Exit(1)
	}

	var bridge *discord.Bridge
	bridge = discord.NewBridge(
		discord.WithReadyHandler(func(event *discord.ReadyEvent) {
			logger.Infof("Ready as %s.", event.BotName)
			err := bridge.SetPresence(discord.Status{
				Type:     discord.PresenceOnline,
				Activity: discord.ActivityListening,
				Text:     "/hello",
			})
			if err != nil {
				logger.Warnf("Failed to set presence: %+v", err)
			}
		}),
		discord.WithSlashCommandHandler(func(event *discord.SlashCommandEvent) *discord.SlashCommandReply {
			switch event.CommandName {
			case "hello":
				return &discord.SlashCommandReply{
					Reply: discord.Message{Content: fmt.Sprintf("Hello, %s!", event.IssuingUser)},
				}

			case "menu":
				return &discord.SlashCommandReply{
					Reply: discord.Message{
						Content: "Pick one.",
						ComponentRows: []discord.ComponentRow{
							{Components: []discord.Component{
								{Label: "Red", ID: "pick_red", Enabled: true},
								{Label: "Blue", ID: "pick_blue", Enabled: true},
								{Label: "Sold out", ID: "pick_none", Enabled: false},
							}},
						},
						Ephemeral: true,
					},
				}

			default:
				return nil
			}
		}),
		discord.WithMessageHandler(func(event *discord.MessageEvent) {
			bridge.SendMessage(&discord.Message{
				ChannelID: event.Message.ChannelID,
				Content:   event.Message.Content,
			}, func(success bool) {
				if !success {
					logger.Warnf("Failed to echo message %s.", event.ID)
				}
			})
		}),
		discord.WithButtonClickHandler(func(event *discord.ButtonClickEvent) {
			err := bridge.ButtonClickReply(event, &discord.ButtonClickReply{
				Reply:                 discord.Message{Content: fmt.Sprintf("%s picked %s.", event.IssuingUser, event.CustomID)},
				EditInteractedMessage: true,
			})
			if err != nil {
				logger.Warnf("Failed to answer button click: %+v", err)
			}
		}),
	)

	bridge.CreateCommands([]discord.CommandDescriptor{
		{Name: "hello", Description: "Greets you"},
		{Name: "menu", Description: "Shows a few buttons"},
	})

	if err := bridge.Create(config); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create bot: %s\n", err)
		os.Exit(1)
	}

	// Set up a context that cancels on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := bridge.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start bot: %s\n", err)
		os.Exit(1)
	}

	logger.Infof("Bot is running. Press Ctrl+C to stop.")

	// The main goroutine is the consumer context until shutdown.
	bridge.Loop().Run(ctx)

	bridge.Teardown()
	logger.Infof("Bot stopped.")
}
