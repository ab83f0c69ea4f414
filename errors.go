package discord

import "errors"

// ErrEmptyToken indicates that no token was provided on bot creation.
var ErrEmptyToken = errors.New("token must be set")

// ErrAlreadyCreated indicates that Create was called on a Bridge that already holds a session.
var ErrAlreadyCreated = errors.New("bridge already holds a session")

// ErrNotConfigured indicates that Start was called before a successful Create or after teardown.
var ErrNotConfigured = errors.New("bridge is not configured")

// ErrNotConnected indicates that an action requires a session that has observed Ready.
var ErrNotConnected = errors.New("bot is not connected")

// ErrNoAuthor indicates that the given message has no author.
var ErrNoAuthor = errors.New("message has no author")

// ErrInvalidSnowflake indicates that an id is not a non-negative decimal number.
var ErrInvalidSnowflake = errors.New("id is not a valid snowflake")

// ErrUnknownGuild indicates that the guild is not known to the session.
var ErrUnknownGuild = errors.New("guild is not known to the session")

// ErrNotInVoice indicates that the user is not connected to any voice channel of the guild.
var ErrNotInVoice = errors.New("user is not in a voice channel")

// ErrNoVoiceConnection indicates that there is no ready voice connection for the guild.
var ErrNoVoiceConnection = errors.New("no ready voice connection for guild")

// ErrDecodeUnavailable indicates that no 16-bit PCM buffer could be obtained for a sound.
var ErrDecodeUnavailable = errors.New("no decodable sample buffer")

// ErrNoInteraction indicates that a button click event does not carry its originating interaction.
var ErrNoInteraction = errors.New("event carries no interaction")
