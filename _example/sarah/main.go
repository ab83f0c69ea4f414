// This example runs the bridge as a go-sarah adapter.
// Plain messages go through go-sarah's command matching; button clicks stay on the bridge.
//
// Usage:
//
//	export DISCORD_TOKEN="your-bot-token"
//	go run .
//
// Then, in a Discord channel where the bot is present, type:
//
//	.echo Hello, World!
//	.vote
//	.help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	discord "github.com/oklahomer/go-discord-bridge"
)

func main() {
	config, err := discord.ConfigFromEnv()
	if err != nil || config.Token == "" {
		fmt.Fprintln(os.Stderr, "DISCORD_TOKEN environment variable is required")
		os.Exit(1)
	}

	var adapter *discord.Adapter
	adapter, err = discord.NewAdapter(config, discord.WithBridgeOptions(
		discord.WithButtonClickHandler(func(event *discord.ButtonClickEvent) {
			err := adapter.Bridge().ButtonClickReply(event, &discord.ButtonClickReply{
				Reply: discord.Message{Content: fmt.Sprintf("%s voted %s.", event.IssuingUser, event.CustomID)},
			})
			if err != nil {
				logger.Warnf("Failed to answer vote: %+v", err)
			}
		}),
	))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create adapter: %s\n", err)
		os.Exit(1)
	}

	storage := sarah.NewUserContextStorage(sarah.NewCacheConfig())
	sarah.RegisterBot(sarah.NewBot(adapter, sarah.BotWithStorage(storage)))

	registerEchoCommand()
	registerVoteCommand()

	// Set up a context that cancels on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sarah.Run(ctx, sarah.NewConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run: %s\n", err)
		os.Exit(1)
	}

	logger.Infof("Bot is running. Press Ctrl+C to stop.")

	<-ctx.Done()
}

var echoPattern = regexp.MustCompile(`^\.echo`)

func registerEchoCommand() {
	props := sarah.NewCommandPropsBuilder().
		BotType(discord.DISCORD).
		Identifier("echo").
		MatchPattern(echoPattern).
		Func(func(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			msg := sarah.StripMessage(echoPattern, input.Message())
			if msg == "" {
				msg = "Usage: .echo <message>"
			}
			return discord.NewResponse(input, msg)
		}).
		Instruction("Input .echo <message> to have the bot echo your message back.").
		MustBuild()

	sarah.RegisterCommandProps(props)
}

func registerVoteCommand() {
	props := sarah.NewCommandPropsBuilder().
		BotType(discord.DISCORD).
		Identifier("vote").
		MatchPattern(regexp.MustCompile(`^\.vote`)).
		Func(func(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			return discord.NewResponse(input, "Cast your vote.", discord.RespWithComponents(discord.ComponentRow{
				Components: []discord.Component{
					{Label: "Yes", ID: "yes", Enabled: true},
					{Label: "No", ID: "no", Enabled: true},
				},
			}))
		}).
		Instruction("Input .vote to start a vote with buttons.").
		MustBuild()

	sarah.RegisterCommandProps(props)
}
