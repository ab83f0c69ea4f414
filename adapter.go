package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
)

const (
	// DISCORD is a designated sarah.BotType for Discord integration.
	DISCORD sarah.BotType = "discord"
)

// ChannelID represents a Discord channel as sarah.OutputDestination.
type ChannelID string

var _ sarah.OutputDestination = ChannelID("")

// AdapterOption defines a function signature for Adapter's functional options.
type AdapterOption func(adapter *Adapter)

// WithBridgeOptions passes options to the Bridge the Adapter runs on.
// The Adapter installs its own message and error handlers.
func WithBridgeOptions(options ...BridgeOption) AdapterOption {
	return func(adapter *Adapter) {
		adapter.bridgeOptions = append(adapter.bridgeOptions, options...)
	}
}

// Adapter is a sarah.Adapter implementation backed by a Bridge.
// Text messages become sarah.Input; slash commands and buttons stay on the Bridge's handlers.
type Adapter struct {
	config        *Config
	bridge        *Bridge
	bridgeOptions []BridgeOption
	enqueueInput  func(sarah.Input) error
	failed        chan error
}

var _ sarah.Adapter = (*Adapter)(nil)

// NewAdapter creates a new Adapter with the given Config and options.
func NewAdapter(config *Config, options ...AdapterOption) (*Adapter, error) {
	adapter := &Adapter{
		config: config,
		failed: make(chan error, 1),
	}

	for _, opt := range options {
		opt(adapter)
	}

	bridgeOptions := append(adapter.bridgeOptions,
		WithMessageHandler(adapter.handleMessage),
		WithErrorHandler(adapter.handleError),
	)
	adapter.bridge = NewBridge(bridgeOptions...)

	if err := adapter.bridge.Create(config); err != nil {
		return nil, err
	}

	return adapter, nil
}

// Bridge returns the underlying Bridge for slash commands, buttons, presence and voice.
func (a *Adapter) Bridge() *Bridge {
	return a.bridge
}

// BotType returns a designated BotType for Discord integration.
func (a *Adapter) BotType() sarah.BotType {
	return DISCORD
}

// Run establishes a connection with Discord and blocks until the context is canceled
// or the connection cannot be established.
func (a *Adapter) Run(ctx context.Context, enqueueInput func(sarah.Input) error, notifyErr func(error)) {
	a.enqueueInput = enqueueInput

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.bridge.Loop().Run(loopCtx)

	if err := a.bridge.Start(); err != nil {
		notifyErr(sarah.NewBotNonContinuableError(fmt.Sprintf("failed to start Discord session: %s", err.Error())))
		return
	}

	select {
	case <-ctx.Done():

	case err := <-a.failed:
		notifyErr(sarah.NewBotNonContinuableError(err.Error()))
	}

	a.bridge.Teardown()
}

func (a *Adapter) handleError(err error) {
	select {
	case a.failed <- err:
	default:
		logger.Errorf("Dropping Discord error: %+v", err)
	}
}

// handleMessage routes an incoming MessageEvent to enqueueInput. It runs on the Bridge's Loop.
func (a *Adapter) handleMessage(event *MessageEvent) {
	if a.enqueueInput == nil {
		logger.Warnf("Message %s arrived before Run. Dropping.", event.ID)
		return
	}

	input := EventToInput(event)

	var enqueueErr error
	trimmed := strings.TrimSpace(input.Message())
	if a.config.HelpCommand != "" && trimmed == a.config.HelpCommand {
		enqueueErr = a.enqueueInput(sarah.NewHelpInput(input))
	} else if a.config.AbortCommand != "" && trimmed == a.config.AbortCommand {
		enqueueErr = a.enqueueInput(sarah.NewAbortInput(input))
	} else {
		enqueueErr = a.enqueueInput(input)
	}
	if enqueueErr != nil {
		logger.Errorf("Failed to enqueue input: %+v", enqueueErr)
	}
}

// SendMessage sends the given message to Discord.
func (a *Adapter) SendMessage(_ context.Context, output sarah.Output) {
	destination, ok := output.Destination().(ChannelID)
	if !ok {
		logger.Errorf("Destination is not instance of ChannelID. %#v.", output.Destination())
		return
	}

	channelID := string(destination)

	switch content := output.Content().(type) {
	case string:
		a.bridge.SendMessage(&Message{ChannelID: channelID, Content: content}, nil)

	case *Message:
		msg := *content
		msg.ChannelID = channelID
		a.bridge.SendMessage(&msg, nil)

	case *sarah.CommandHelps:
		lines := make([]string, 0, len(*content))
		for _, h := range *content {
			lines = append(lines, fmt.Sprintf("**%s**: %s", h.Identifier, h.Instruction))
		}
		a.bridge.SendMessage(&Message{ChannelID: channelID, Content: strings.Join(lines, "\n")}, nil)

	default:
		logger.Warnf("Unexpected output %#v", output)
	}
}

// Input is a sarah.Input implementation that represents a received Discord message.
type Input struct {
	Event     *MessageEvent
	senderKey string
	text      string
	sentAt    time.Time
	channelID ChannelID
}

var _ sarah.Input = (*Input)(nil)

// SenderKey returns a unique key representing the sender in the channel.
func (i *Input) SenderKey() string {
	return i.senderKey
}

// Message returns the received text.
func (i *Input) Message() string {
	return i.text
}

// SentAt returns when the message was sent.
func (i *Input) SentAt() time.Time {
	return i.sentAt
}

// ReplyTo returns the Discord channel where the message was received.
func (i *Input) ReplyTo() sarah.OutputDestination {
	return i.channelID
}

// EventToInput converts a *MessageEvent to *Input.
func EventToInput(event *MessageEvent) *Input {
	return &Input{
		Event:     event,
		senderKey: fmt.Sprintf("%s_%s", event.Message.ChannelID, event.CreatorID),
		text:      event.Message.Content,
		sentAt:    event.SentAt,
		channelID: ChannelID(event.Message.ChannelID),
	}
}

// NewResponse creates a *sarah.CommandResponse with the given message.
// Pass RespOption values to attach buttons or files, or to continue the conversation.
func NewResponse(input sarah.Input, message string, options ...RespOption) (*sarah.CommandResponse, error) {
	if _, ok := input.(*Input); !ok {
		return nil, fmt.Errorf("%T is not a *discord.Input", input)
	}

	stash := &respOptions{}
	for _, opt := range options {
		opt(stash)
	}

	var content interface{} = message
	if len(stash.rows) > 0 || stash.filePath != "" {
		content = &Message{
			Content:       message,
			FilePath:      stash.filePath,
			ComponentRows: stash.rows,
		}
	}

	return &sarah.CommandResponse{
		Content:     content,
		UserContext: stash.userContext,
	}, nil
}

// RespOption defines a function signature that NewResponse's functional options must satisfy.
type RespOption func(*respOptions)

type respOptions struct {
	userContext *sarah.UserContext
	rows        []ComponentRow
	filePath    string
}

// RespWithNext sets a given function as part of the response's *sarah.UserContext.
// The next input from the same user is passed to this function.
func RespWithNext(fnc sarah.ContextualFunc) RespOption {
	return func(options *respOptions) {
		options.userContext = &sarah.UserContext{
			Next: fnc,
		}
	}
}

// RespWithNextSerializable sets the given argument as part of the response's *sarah.UserContext.
func RespWithNextSerializable(arg *sarah.SerializableArgument) RespOption {
	return func(options *respOptions) {
		options.userContext = &sarah.UserContext{
			Serializable: arg,
		}
	}
}

// RespWithComponents appends button rows to the response.
// Clicks are delivered to the Bridge's button click handler, not to sarah.
func RespWithComponents(rows ...ComponentRow) RespOption {
	return func(options *respOptions) {
		options.rows = append(options.rows, rows...)
	}
}

// RespWithAttachment attaches the local file at path to the response.
func RespWithAttachment(path string) RespOption {
	return func(options *respOptions) {
		options.filePath = path
	}
}
