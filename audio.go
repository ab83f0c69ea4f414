package discord

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"layeh.com/gopus"
)

const (
	sampleRate = 48000
	channels   = 2
	// frameSize is the number of samples per channel in one 20ms Opus frame.
	frameSize    = 960
	maxFrameSize = frameSize * channels * 2
)

// frameSendTimeout bounds how long a frame may wait for the voice connection to accept it.
var frameSendTimeout = time.Second

// Sound is an audio asset to play in a voice channel.
type Sound struct {
	Name string

	// PCM is 16-bit interleaved stereo at 48kHz. When empty, Data is handed to the Bridge's Decoder.
	PCM []int16

	// Data is the compressed source of the sound.
	Data []byte

	// Procedural sounds are generated while playing and cannot be decoded up front.
	Procedural bool
}

// Decoder turns a compressed Sound into 16-bit interleaved stereo PCM at 48kHz.
// Decode runs on its own goroutine, never on the gateway or consumer side.
type Decoder interface {
	Decode(ctx context.Context, sound *Sound) ([]int16, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, sound *Sound) ([]int16, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, sound *Sound) ([]int16, error) {
	return f(ctx, sound)
}

// PCMFromBytes reinterprets little-endian 16-bit PCM bytes as samples. A trailing odd byte is dropped.
func PCMFromBytes(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples
}

// liveVoice wraps a *discordgo.VoiceConnection owned by the discordgo session.
type liveVoice struct {
	conn *discordgo.VoiceConnection
}

var _ voiceConn = (*liveVoice)(nil)

// voicePlayer holds the clips waiting behind the one currently streamed to a connection.
type voicePlayer struct {
	queue [][]int16
}

var (
	playersMu sync.Mutex
	// players has an entry while a connection is streaming. One goroutine per entry sends frames.
	players = map[*discordgo.VoiceConnection]*voicePlayer{}
)

func (v *liveVoice) ready() bool {
	v.conn.RLock()
	defer v.conn.RUnlock()
	return v.conn.Ready
}

// transmit queues pcm behind whatever the connection is already playing.
func (v *liveVoice) transmit(pcm []int16) error {
	playersMu.Lock()
	defer playersMu.Unlock()

	if player, ok := players[v.conn]; ok {
		player.queue = append(player.queue, pcm)
		return nil
	}

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("failed to create opus encoder: %w", err)
	}

	player := &voicePlayer{queue: [][]int16{pcm}}
	players[v.conn] = player
	go v.play(encoder, player)

	return nil
}

// play streams queued clips one after another until the queue is empty or the connection stalls.
func (v *liveVoice) play(encoder *gopus.Encoder, player *voicePlayer) {
	if err := v.conn.Speaking(true); err != nil {
		logger.Warnf("Failed to set speaking state for guild %s: %+v", v.conn.GuildID, err)
	}

	for {
		playersMu.Lock()
		if len(player.queue) == 0 {
			v.finish()
			playersMu.Unlock()
			return
		}
		pcm := player.queue[0]
		player.queue = player.queue[1:]
		playersMu.Unlock()

		if !v.stream(encoder, pcm) {
			playersMu.Lock()
			if dropped := len(player.queue); dropped > 0 {
				logger.Warnf("Dropping %d queued sound(s) for guild %s.", dropped, v.conn.GuildID)
			}
			v.finish()
			playersMu.Unlock()
			return
		}
	}
}

// finish clears the speaking state and releases the connection's entry. playersMu must be held.
func (v *liveVoice) finish() {
	if err := v.conn.Speaking(false); err != nil {
		logger.Debugf("Failed to clear speaking state for guild %s: %+v", v.conn.GuildID, err)
	}
	delete(players, v.conn)
}

// stream sends one clip frame by frame and reports whether every frame was accepted.
func (v *liveVoice) stream(encoder *gopus.Encoder, pcm []int16) bool {
	for _, frame := range splitFrames(pcm) {
		opus, err := encoder.Encode(frame, frameSize, maxFrameSize)
		if err != nil {
			logger.Errorf("Failed to encode audio frame for guild %s: %+v", v.conn.GuildID, err)
			return false
		}

		select {
		case v.conn.OpusSend <- opus:
		case <-time.After(frameSendTimeout):
			logger.Warnf("Voice connection for guild %s stopped accepting audio.", v.conn.GuildID)
			return false
		}
	}
	return true
}

func (v *liveVoice) disconnect() error {
	return v.conn.Disconnect()
}

// splitFrames cuts pcm into full 20ms stereo frames, zero-padding the last one.
func splitFrames(pcm []int16) [][]int16 {
	const samplesPerFrame = frameSize * channels

	frames := make([][]int16, 0, (len(pcm)+samplesPerFrame-1)/samplesPerFrame)
	for start := 0; start < len(pcm); start += samplesPerFrame {
		end := start + samplesPerFrame
		if end <= len(pcm) {
			frames = append(frames, pcm[start:end])
			continue
		}

		last := make([]int16, samplesPerFrame)
		copy(last, pcm[start:])
		frames = append(frames, last)
	}
	return frames
}
