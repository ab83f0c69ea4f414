package discord

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// session is an internal interface that abstracts the discordgo.Session calls
// used by the Bridge. This allows mocking the session in tests.
// *liveSession satisfies this interface.
type session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error

	// userVoiceChannel resolves the voice channel the user is connected to in the guild.
	userVoiceChannel(guildID, userID string) (string, error)
	joinVoice(guildID, channelID string) error
	// voice returns nil when the session holds no voice connection for the guild.
	voice(guildID string) voiceConn
}

// voiceConn is the part of a voice connection the Bridge queries. The Bridge never owns it.
type voiceConn interface {
	ready() bool
	// transmit queues 16-bit interleaved stereo PCM for sending and returns without waiting for playback.
	transmit(pcm []int16) error
	disconnect() error
}

// liveSession adapts *discordgo.Session, resolving guilds and voice states from its State cache.
type liveSession struct {
	*discordgo.Session
}

var _ session = (*liveSession)(nil)

func newLiveSession(config *Config) (session, error) {
	s, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	s.Identify.Intents = config.Intents
	return wrapSession(s), nil
}

func wrapSession(s *discordgo.Session) *liveSession {
	routeLibraryLogs()
	return &liveSession{Session: s}
}

func (s *liveSession) userVoiceChannel(guildID, userID string) (string, error) {
	if s.State == nil {
		return "", ErrUnknownGuild
	}

	if _, err := s.State.Guild(guildID); err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownGuild, guildID)
	}

	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", fmt.Errorf("%w: user %s in guild %s", ErrNotInVoice, userID, guildID)
	}

	return vs.ChannelID, nil
}

func (s *liveSession) joinVoice(guildID, channelID string) error {
	_, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
	return err
}

func (s *liveSession) voice(guildID string) voiceConn {
	s.RLock()
	vc, ok := s.VoiceConnections[guildID]
	s.RUnlock()
	if !ok || vc == nil {
		return nil
	}

	return &liveVoice{conn: vc}
}

var routeLogsOnce sync.Once

// routeLibraryLogs sends discordgo's own log lines through the package logger.
// discordgo.Logger is process-wide, so this is done once.
func routeLibraryLogs() {
	routeLogsOnce.Do(func() {
		discordgo.Logger = func(msgL, _ int, format string, a ...interface{}) {
			format = "[discordgo] " + format
			switch msgL {
			case discordgo.LogError:
				logger.Errorf(format, a...)
			case discordgo.LogWarning:
				logger.Warnf(format, a...)
			case discordgo.LogInformational:
				logger.Infof(format, a...)
			default:
				logger.Debugf(format, a...)
			}
		}
	})
}
