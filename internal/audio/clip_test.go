package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestEncodeWAV verifies the RIFF/WAVE header and the data size of a synthesized clip.
func TestEncodeWAV(t *testing.T) {
	t.Parallel()

	tones := []Tone{
		{Frequency: 440, Duration: 100 * time.Millisecond},
		{Frequency: 0, Duration: 100 * time.Millisecond},
	}

	data := EncodeWAV(tones, 0.5)

	samples := int(0.2 * sampleRate)
	require.Len(t, data, wavHeaderSize+samples*2)
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, "fmt ", string(data[12:16]))
	require.Equal(t, "data", string(data[36:40]))
	require.Equal(t, uint32(samples*2), binary.LittleEndian.Uint32(data[40:44]))
	require.Equal(t, uint32(sampleRate), binary.LittleEndian.Uint32(data[24:28]))

	// The rest is silent.
	last := data[len(data)-2:]
	require.Equal(t, []byte{0, 0}, last)
}

// TestRenderSamples_Volume keeps peaks within the requested volume.
func TestRenderSamples_Volume(t *testing.T) {
	t.Parallel()

	samples := renderSamples([]Tone{{Frequency: 1000, Duration: 50 * time.Millisecond}}, 0.5)

	var peak int16
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}

	require.Positive(t, peak)
	require.LessOrEqual(t, int(peak), 16384)
}

// TestClip_Materialize writes synthesized clips and checks user-provided files.
func TestClip_Materialize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	clip := NotificationClip(0.7)
	require.NoError(t, clip.Materialize(dir))
	require.Equal(t, filepath.Join(dir, "notification.wav"), clip.Path)

	data, err := os.ReadFile(clip.Path)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[0:4]))

	custom := LoopClip(0.5)
	custom.Path = clip.Path
	require.NoError(t, custom.Materialize(dir))
	require.Equal(t, clip.Path, custom.Path)
	require.True(t, custom.External)
	require.False(t, clip.External)

	missing := LoopClip(0.5)
	missing.Path = filepath.Join(dir, "missing.wav")
	require.Error(t, missing.Materialize(dir))
}

// TestClip_Duration sums tone durations including rests.
func TestClip_Duration(t *testing.T) {
	t.Parallel()

	clip := LoopClip(0.5)
	require.Equal(t, 1500*time.Millisecond, clip.Duration())
}
