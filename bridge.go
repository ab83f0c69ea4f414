package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// State is the lifecycle stage of a Bridge.
type State int

const (
	// StateUninitialized is the state before a successful Create.
	StateUninitialized State = iota
	// StateConfigured means the session is built and handlers are wired.
	StateConfigured
	// StateStarting means the network goroutine runs but Ready was not observed yet.
	StateStarting
	// StateConnected means Ready was observed.
	StateConnected
	// StateStopping means Teardown is waiting for the network goroutine.
	StateStopping
	// StateTerminated is final. A terminated Bridge is never restarted.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateStarting:
		return "starting"
	case StateConnected:
		return "connected"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// BridgeOption defines a function signature for Bridge's functional options.
type BridgeOption func(bridge *Bridge)

// WithSession creates a BridgeOption with the given *discordgo.Session.
// Use this to inject a pre-configured session. Create still requires a token.
func WithSession(session *discordgo.Session) BridgeOption {
	return func(bridge *Bridge) {
		bridge.session = wrapSession(session)
	}
}

// WithLoop sets the consumer context that receives every event and completion callback.
func WithLoop(loop *Loop) BridgeOption {
	return func(bridge *Bridge) {
		bridge.loop = loop
	}
}

// WithRegistrationLatch replaces the process-wide command registration Latch.
func WithRegistrationLatch(latch *Latch) BridgeOption {
	return func(bridge *Bridge) {
		bridge.latch = latch
	}
}

// WithSlashCommandHandler sets the function that computes slash command replies.
func WithSlashCommandHandler(handler SlashCommandHandler) BridgeOption {
	return func(bridge *Bridge) {
		bridge.onSlashCommand = handler
	}
}

// WithReadyHandler sets the function notified on every Ready.
func WithReadyHandler(fnc func(*ReadyEvent)) BridgeOption {
	return func(bridge *Bridge) {
		bridge.onReady = fnc
	}
}

// WithMessageHandler sets the function notified on every message not sent by the bot itself.
func WithMessageHandler(fnc func(*MessageEvent)) BridgeOption {
	return func(bridge *Bridge) {
		bridge.onMessage = fnc
	}
}

// WithButtonClickHandler sets the function notified on every button click.
func WithButtonClickHandler(fnc func(*ButtonClickEvent)) BridgeOption {
	return func(bridge *Bridge) {
		bridge.onButtonClick = fnc
	}
}

// WithErrorHandler sets the function notified when the network goroutine fails to connect.
func WithErrorHandler(fnc func(error)) BridgeOption {
	return func(bridge *Bridge) {
		bridge.onError = fnc
	}
}

// WithDecoder sets the Decoder used by PlayAudio for sounds without PCM.
func WithDecoder(decoder Decoder) BridgeOption {
	return func(bridge *Bridge) {
		bridge.decoder = decoder
	}
}

// Bridge owns one Discord session and the goroutine that keeps it connected.
// Events are delivered on its Loop; every exported method may be called from the Loop.
type Bridge struct {
	loop     *Loop
	registry *CommandRegistry
	latch    *Latch
	decoder  Decoder

	onReady        func(*ReadyEvent)
	onSlashCommand SlashCommandHandler
	onMessage      func(*MessageEvent)
	onButtonClick  func(*ButtonClickEvent)
	onError        func(error)

	newSession func(*Config) (session, error)
	warnf      func(format string, args ...interface{})

	// ctx is canceled on teardown to abandon in-flight decoding.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	config  *Config
	session session
	state   State
	botID   string
	stop    chan struct{}
	done    chan struct{}
}

// NewBridge creates an uninitialized Bridge with the given options.
func NewBridge(options ...BridgeOption) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	bridge := &Bridge{
		loop:           NewLoop(),
		registry:       NewCommandRegistry(),
		latch:          processLatch,
		onSlashCommand: DefaultSlashCommandReply,
		newSession:     newLiveSession,
		warnf:          logger.Warnf,
		ctx:            ctx,
		cancel:         cancel,
		state:          StateUninitialized,
	}

	for _, opt := range options {
		opt(bridge)
	}

	return bridge
}

// Loop returns the consumer context events are delivered on.
func (b *Bridge) Loop() *Loop {
	return b.loop
}

// State returns the current lifecycle stage.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Alive reports whether Ready has been observed and teardown has not begun.
func (b *Bridge) Alive() bool {
	return b.State() == StateConnected
}

// Create builds the session for the given Config and wires the event handlers.
// On error the Bridge stays uninitialized and no session is constructed.
func (b *Bridge) Create(config *Config) error {
	if config == nil || config.Token == "" {
		logger.Errorf("The token is empty. Aborting bot creation.")
		return ErrEmptyToken
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateUninitialized {
		return ErrAlreadyCreated
	}

	s := b.session
	if s == nil {
		var err error
		s, err = b.newSession(config)
		if err != nil {
			logger.Errorf("Failed to create bot: %+v", err)
			return err
		}
	}

	s.AddHandler(b.handleReady)
	s.AddHandler(b.handleInteraction)
	s.AddHandler(b.handleMessageCreate)

	b.config = config
	b.session = s
	b.state = StateConfigured
	return nil
}

// Start spawns the network goroutine. Calling Start on a running Bridge is a no-op.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateConfigured:
		// Proceed.

	case StateStarting, StateConnected:
		logger.Debugf("Bot is already %s. Ignoring start request.", b.state)
		return nil

	default:
		return fmt.Errorf("%w: bot is %s", ErrNotConfigured, b.state)
	}

	b.state = StateStarting
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.run(b.session, b.stop, b.done)

	return nil
}

// run is the network goroutine. It keeps the session open until stop is closed.
func (b *Bridge) run(s session, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if err := s.Open(); err != nil {
		logger.Errorf("Failed to open Discord session: %+v", err)
		b.reportError(fmt.Errorf("failed to open Discord session: %w", err))
		<-stop
		return
	}

	<-stop

	if err := s.Close(); err != nil {
		logger.Errorf("Failed to close Discord session: %+v", err)
	}
}

// Teardown stops the network goroutine and waits for it to exit before releasing the session.
// It is a no-op unless the Bridge was started, and is safe to call more than once.
func (b *Bridge) Teardown() {
	b.mu.Lock()
	if b.state != StateStarting && b.state != StateConnected {
		b.mu.Unlock()
		return
	}
	b.state = StateStopping
	stop, done := b.stop, b.done
	b.mu.Unlock()

	b.registry.Clear()
	b.cancel()

	close(stop)
	<-done

	b.mu.Lock()
	b.session = nil
	b.botID = ""
	b.state = StateTerminated
	b.mu.Unlock()

	logger.Infof("Discord session terminated.")
}

// CreateCommand queues a slash command for registration on the first Ready.
func (b *Bridge) CreateCommand(command CommandDescriptor) {
	b.warnIfRegistered()
	b.registry.Register(command)
}

// CreateCommands queues slash commands for registration on the first Ready.
func (b *Bridge) CreateCommands(commands []CommandDescriptor) {
	b.warnIfRegistered()
	b.registry.RegisterBatch(commands)
}

func (b *Bridge) warnIfRegistered() {
	if b.latch.Fired() {
		logger.Warnf("Slash commands were already registered. New commands are kept but not sent.")
	}
}

// SetPresence updates the bot's status. It fails with ErrNotConnected before Ready.
func (b *Bridge) SetPresence(status Status) error {
	s := b.connectedSession()
	if s == nil {
		return ErrNotConnected
	}

	return s.UpdateStatusComplex(status.toUpdateStatusData())
}

// SendMessage posts msg to msg.ChannelID without blocking.
// onComplete, when given, is called on the Loop with the outcome.
func (b *Bridge) SendMessage(msg *Message, onComplete func(success bool)) {
	complete := func(success bool) {
		if onComplete != nil {
			b.loop.Post(func() { onComplete(success) })
		}
	}

	if msg == nil {
		b.warnf("Cannot send a nil message.")
		complete(false)
		return
	}

	s := b.connectedSession()
	if s == nil {
		b.warnf("Cannot send message to %s: %s", msg.ChannelID, ErrNotConnected)
		complete(false)
		return
	}

	channelID, err := parseSnowflake(msg.ChannelID)
	if err != nil {
		b.warnf("Cannot send message: %+v", err)
		complete(false)
		return
	}

	outgoing := *msg
	go func() {
		defer recoverHandler("message send")

		_, err := s.ChannelMessageSendComplex(channelID, outgoing.toMessageSend())
		if err != nil {
			logger.Errorf("Failed to send message to %s: %+v", channelID, err)
		}
		complete(err == nil)
	}()
}

// ButtonClickReply answers a button click, either with a new message or by editing the clicked one.
func (b *Bridge) ButtonClickReply(event *ButtonClickEvent, reply *ButtonClickReply) error {
	if event == nil || event.interaction == nil {
		return ErrNoInteraction
	}

	if reply == nil {
		return fmt.Errorf("no reply given for button click %s", event.CustomID)
	}

	s := b.connectedSession()
	if s == nil {
		return ErrNotConnected
	}

	responseType := discordgo.InteractionResponseChannelMessageWithSource
	if reply.EditInteractedMessage {
		responseType = discordgo.InteractionResponseUpdateMessage
	}

	answer := reply.Reply
	go func() {
		defer recoverHandler("button reply")

		response := &discordgo.InteractionResponse{
			Type: responseType,
			Data: answer.toResponseData(),
		}
		if err := s.InteractionRespond(event.interaction, response); err != nil {
			logger.Errorf("Failed to reply to button click %s: %+v", event.CustomID, err)
		}
	}()

	return nil
}

// JoinVoiceChannel joins the voice channel the given user is connected to.
// Failures are logged and reported as false.
func (b *Bridge) JoinVoiceChannel(guildID, userID string) bool {
	gid, err := parseSnowflake(guildID)
	if err != nil {
		b.warnf("Passed an invalid guild id for joining a voice channel: %+v", err)
		return false
	}

	uid, err := parseSnowflake(userID)
	if err != nil {
		b.warnf("Passed an invalid user id for joining a voice channel: %+v", err)
		return false
	}

	s := b.connectedSession()
	if s == nil {
		b.warnf("Cannot join a voice channel: %s", ErrNotConnected)
		return false
	}

	channelID, err := s.userVoiceChannel(gid, uid)
	if err != nil {
		b.warnf("Failed to find the user's voice channel: %+v", err)
		return false
	}

	if err := s.joinVoice(gid, channelID); err != nil {
		b.warnf("Failed to connect to the user's voice channel: %+v", err)
		return false
	}

	return true
}

// LeaveVoiceChannel disconnects from the guild's voice channel.
func (b *Bridge) LeaveVoiceChannel(guildID string) bool {
	gid, err := parseSnowflake(guildID)
	if err != nil {
		b.warnf("Passed an invalid guild id for leaving a voice channel: %+v", err)
		return false
	}

	s := b.connectedSession()
	if s == nil {
		b.warnf("Cannot leave a voice channel: %s", ErrNotConnected)
		return false
	}

	vc := s.voice(gid)
	if vc == nil {
		b.warnf("Cannot leave the voice channel: %s: %s", ErrNoVoiceConnection, gid)
		return false
	}

	if err := vc.disconnect(); err != nil {
		b.warnf("Failed to leave the voice channel of guild %s: %+v", gid, err)
		return false
	}

	return true
}

// PlayAudio sends sound to the guild's ready voice connection.
// Sounds without PCM are decoded on a separate goroutine first; true then means decoding was scheduled.
func (b *Bridge) PlayAudio(guildID string, sound *Sound) bool {
	gid, err := parseSnowflake(guildID)
	if err != nil {
		b.warnf("Passed an invalid guild id for playing audio: %+v", err)
		return false
	}

	s := b.connectedSession()
	if s == nil {
		b.warnf("Cannot play audio: %s", ErrNotConnected)
		return false
	}

	vc := s.voice(gid)
	if vc == nil || !vc.ready() {
		b.warnf("Cannot play audio: %s: %s", ErrNoVoiceConnection, gid)
		return false
	}

	if sound == nil || sound.Procedural {
		b.warnf("There is currently no support for procedural sounds.")
		return false
	}

	if len(sound.PCM) > 0 {
		if err := vc.transmit(sound.PCM); err != nil {
			b.warnf("Failed to send audio to guild %s: %+v", gid, err)
			return false
		}
		return true
	}

	if b.decoder == nil || len(sound.Data) == 0 {
		b.warnf("Cannot play %s: %s", sound.Name, ErrDecodeUnavailable)
		return false
	}

	logger.Infof("Could not find any PCM data for sound %s. Decoding...", sound.Name)
	go b.decodeAndTransmit(vc, gid, sound)

	return true
}

func (b *Bridge) decodeAndTransmit(vc voiceConn, guildID string, sound *Sound) {
	defer recoverHandler("audio decode")

	started := time.Now()
	pcm, err := b.decoder.Decode(b.ctx, sound)
	if b.ctx.Err() != nil {
		logger.Debugf("Dropping decoded sound %s: bridge is shutting down.", sound.Name)
		return
	}
	if err != nil || len(pcm) == 0 {
		b.warnf("Cannot play %s: %s (%v)", sound.Name, ErrDecodeUnavailable, err)
		return
	}

	logger.Infof("Finished decoding %s in %s.", sound.Name, time.Since(started))

	if err := vc.transmit(pcm); err != nil {
		b.warnf("Failed to send audio to guild %s: %+v", guildID, err)
	}
}

func (b *Bridge) connectedSession() session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateConnected {
		return nil
	}
	return b.session
}

func (b *Bridge) reportError(err error) {
	if b.onError != nil {
		b.loop.Post(func() { b.onError(err) })
	}
}
