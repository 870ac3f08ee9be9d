package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

const (
	// sampleRate of synthesized clips.
	sampleRate = 22050
	// bitsPerSample of synthesized clips.
	bitsPerSample = 16
	// fadeDuration smooths tone edges to avoid clicks.
	fadeDuration = 5 * time.Millisecond
	// wavHeaderSize is the size of a canonical PCM WAV header.
	wavHeaderSize = 44
)

// Tone is a sine tone; a zero Frequency is silence.
type Tone struct {
	// Frequency in Hz.
	Frequency float64
	// Duration of the tone.
	Duration time.Duration
}

// Clip is a sound resource owned by the surface.
type Clip struct {
	// Name is used for the synthesized file name and in logs.
	Name string
	// Path is the WAV file to play. Empty until Materialize runs, unless set by the user.
	Path string
	// Tones describe the synthesized sound and drive the beeper fallback.
	Tones []Tone
	// Volume scales the synthesized samples (0..1]. For an External clip it is
	// passed to players that take a volume flag.
	Volume float64
	// External marks a user-supplied file whose samples were not scaled by Volume.
	External bool
}

// NotificationClip returns the default one-shot clip: a short rising chime.
func NotificationClip(volume float64) Clip {
	return Clip{
		Name: "notification",
		Tones: []Tone{
			{Frequency: 880, Duration: 150 * time.Millisecond},
			{Frequency: 0, Duration: 40 * time.Millisecond},
			{Frequency: 1318.5, Duration: 260 * time.Millisecond},
		},
		Volume: volume,
	}
}

// LoopClip returns the default looping clip: a double beep followed by a pause.
func LoopClip(volume float64) Clip {
	return Clip{
		Name: "notify",
		Tones: []Tone{
			{Frequency: 660, Duration: 250 * time.Millisecond},
			{Frequency: 0, Duration: 150 * time.Millisecond},
			{Frequency: 660, Duration: 250 * time.Millisecond},
			{Frequency: 0, Duration: 850 * time.Millisecond},
		},
		Volume: volume,
	}
}

// Duration is the total length of the clip's tones.
func (c *Clip) Duration() time.Duration {
	var total time.Duration
	for _, tone := range c.Tones {
		total += tone.Duration
	}

	return total
}

// Materialize writes the synthesized clip into dir unless Path already points to a file.
func (c *Clip) Materialize(dir string) error {
	if c.Path != "" {
		if _, err := os.Stat(c.Path); err != nil {
			return fmt.Errorf("clip %s: %w", c.Name, err)
		}

		c.External = true

		return nil
	}

	path := filepath.Join(dir, c.Name+".wav")
	if err := os.WriteFile(path, EncodeWAV(c.Tones, c.Volume), 0o600); err != nil {
		return fmt.Errorf("write clip %s: %w", c.Name, err)
	}

	c.Path = path

	return nil
}

// EncodeWAV renders tones as 16-bit mono PCM wrapped in a WAV container.
func EncodeWAV(tones []Tone, volume float64) []byte {
	samples := renderSamples(tones, volume)
	dataSize := len(samples) * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))

	// RIFF header.
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize)) //nolint:gosec // Clips are seconds long.
	buf.WriteString("WAVE")

	// fmt subchunk.
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	// data subchunk.
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize)) //nolint:gosec // Clips are seconds long.
	_ = binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// renderSamples synthesizes the tones with short linear fades.
func renderSamples(tones []Tone, volume float64) []int16 {
	volume = math.Max(0, math.Min(1, volume))
	fade := int(fadeDuration.Seconds() * sampleRate)

	var samples []int16

	for _, tone := range tones {
		n := int(tone.Duration.Seconds() * sampleRate)
		for i := range n {
			if tone.Frequency == 0 {
				samples = append(samples, 0)
				continue
			}

			envelope := 1.0
			if i < fade {
				envelope = float64(i) / float64(fade)
			} else if n-i < fade {
				envelope = float64(n-i) / float64(fade)
			}

			v := math.Sin(2*math.Pi*tone.Frequency*float64(i)/sampleRate) * volume * envelope
			samples = append(samples, int16(v*math.MaxInt16))
		}
	}

	return samples
}
