package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"voice-relay-go/internal/types"
)

const (
	DefaultPadding = time.Second
	wavFormatPCM   = 1
)

var ErrUnsupportedAudio = errors.New("unsupported audio: expected PCM WAV")

// Padder surrounds a clip with silence so that speech at the edges of short
// IVR recordings is not clipped.
type Padder struct {
	pad time.Duration
}

func NewPadder(pad time.Duration) *Padder {
	if pad < 0 {
		pad = 0
	}
	return &Padder{pad: pad}
}

// Pad returns a new clip with p.pad of silence before and after the input,
// keeping sample rate, bit depth and channel count.
func (p *Padder) Pad(clip types.AudioClip) (types.AudioClip, error) {
	dec := wav.NewDecoder(bytes.NewReader(clip.Data))
	if !dec.IsValidFile() {
		return types.AudioClip{}, ErrUnsupportedAudio
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return types.AudioClip{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedAudio, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return types.AudioClip{}, fmt.Errorf("decode wav: %w", err)
	}

	sampleRate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if sampleRate <= 0 || channels <= 0 {
		return types.AudioClip{}, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedAudio, sampleRate, channels)
	}

	padSamples := int(int64(sampleRate)*int64(p.pad)/int64(time.Second)) * channels
	silence := silenceValue(bitDepth)

	samples := make([]int, 0, len(buf.Data)+2*padSamples)
	for i := 0; i < padSamples; i++ {
		samples = append(samples, silence)
	}
	samples = append(samples, buf.Data...)
	for i := 0; i < padSamples; i++ {
		samples = append(samples, silence)
	}

	data, err := p.encode(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}, sampleRate, bitDepth, channels)
	if err != nil {
		return types.AudioClip{}, err
	}

	frames := len(samples) / channels
	return types.AudioClip{
		Data:       data,
		Format:     "wav",
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
		Duration:   time.Duration(frames) * time.Second / time.Duration(sampleRate),
	}, nil
}

// encode needs an io.WriteSeeker, so the clip goes through a temp file.
func (p *Padder) encode(buf *goaudio.IntBuffer, sampleRate, bitDepth, channels int) ([]byte, error) {
	f, err := os.CreateTemp("", "padded-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read padded wav: %w", err)
	}
	return out.Bytes(), nil
}

// 8-bit PCM is unsigned with its midpoint at 128.
func silenceValue(bitDepth int) int {
	if bitDepth == 8 {
		return 128
	}
	return 0
}
