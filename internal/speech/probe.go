package speech

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// Info describes decoded MP3 audio.
type Info struct {
	SampleRate int
	Duration   time.Duration
}

// go-mp3 always decodes to 16-bit stereo.
const bytesPerSample = 4

// Probe decodes audio far enough to report its sample rate and length.
func Probe(audio []byte) (Info, error) {
	if !IsMP3(audio) {
		return Info{}, errors.New("not an MP3 stream")
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode mp3: %w", err)
	}

	info := Info{SampleRate: dec.SampleRate()}
	n := dec.Length()
	if n < 0 || info.SampleRate <= 0 {
		return info, errors.New("mp3 length unknown")
	}
	samples := n / bytesPerSample
	info.Duration = time.Duration(samples) * time.Second / time.Duration(info.SampleRate)
	return info, nil
}

// IsMP3 sniffs for an ID3v2 tag or an MPEG audio frame sync.
func IsMP3(audio []byte) bool {
	if len(audio) >= 3 && string(audio[:3]) == "ID3" {
		return true
	}
	return len(audio) >= 2 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0
}
