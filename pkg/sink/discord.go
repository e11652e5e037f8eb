package sink

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/kestrelfm/spindle/pkg/config"
	"layeh.com/gopus"
)

const discordChannels = 2

// discordOutput implements Output by Opus-encoding 20ms PCM frames and
// pushing them onto a discordgo voice connection's send channel. Discord
// fixes the frame geometry at 48kHz/stereo/960 samples (20ms); buffers
// smaller or larger than one frame are accumulated across calls.
type discordOutput struct {
	encoder   *gopus.Encoder
	voiceConn *discordgo.VoiceConnection
	frameSize int // samples per channel, always 960 for Discord

	mu      sync.Mutex
	pending []byte // leftover raw PCM bytes shorter than one frame
}

// frameBytes is the number of raw PCM bytes in one 20ms Discord frame:
// 960 samples/channel * 2 channels * 2 bytes/sample.
func frameBytes(frameSize int) int {
	return frameSize * discordChannels * 2
}

// NewDiscordOutput builds an Output that encodes to Opus at the configured
// bitrate and writes frames to voiceConn. cfg.FrameSize must be 960 (the
// Discord-fixed 20ms frame), enforced by config.Validate at startup.
func NewDiscordOutput(cfg *config.OpusConfig, voiceConn *discordgo.VoiceConnection) (Output, error) {
	encoder, err := gopus.NewEncoder(48000, discordChannels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("sink: create opus encoder: %w", err)
	}
	encoder.SetBitrate(cfg.Bitrate)
	encoder.SetVbr(true)

	return &discordOutput{
		encoder:   encoder,
		voiceConn: voiceConn,
		frameSize: cfg.FrameSize,
	}, nil
}

// WritePCM accumulates raw little-endian s16 stereo PCM and emits one Opus
// frame to the voice connection for every complete 960-sample frame formed.
func (d *discordOutput) WritePCM(buffer []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = append(d.pending, buffer...)

	fb := frameBytes(d.frameSize)
	for len(d.pending) >= fb {
		frame := d.pending[:fb]
		d.pending = d.pending[fb:]

		pcm := bytesToInt16(frame)
		opusFrame, err := d.encoder.Encode(pcm, d.frameSize, 4000)
		if err != nil {
			return fmt.Errorf("sink: opus encode: %w", err)
		}

		if d.voiceConn == nil || d.voiceConn.OpusSend == nil {
			return fmt.Errorf("sink: voice connection unavailable")
		}
		d.voiceConn.OpusSend <- opusFrame
	}

	return nil
}

// Flush discards any partial frame left over at end-of-track: a sub-frame
// remainder is not enough samples to encode and does not carry over to the
// next track.
func (d *discordOutput) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	return nil
}

// Close releases the encoder. The voice connection itself is owned by the
// caller and is not closed here.
func (d *discordOutput) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.encoder = nil
	return nil
}

func bytesToInt16(buf []byte) []int16 {
	samples := make([]int16, len(buf)/2)
	for i := range samples {
		samples[i] = int16(buf[i*2]) | int16(buf[i*2+1])<<8
	}
	return samples
}
