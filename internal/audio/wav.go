package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned for files that are not PCM WAV.
var ErrNotWAV = errors.New("not a PCM WAV file")

// Info describes a WAV file.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
	Size       int64
}

// Probe reads the header of the WAV file at path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close() //nolint:errcheck

	st, err := f.Stat()
	if err != nil {
		return Info{}, err
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}

	info := Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Size:       st.Size(),
	}
	info.Duration = pcmDuration(d.PCMLen(), info)
	return info, nil
}

// pcmDuration converts a PCM payload length in bytes into play time.
func pcmDuration(pcmBytes int64, info Info) time.Duration {
	frameSize := int64(info.Channels) * int64(info.BitDepth/8)
	if frameSize <= 0 || info.SampleRate <= 0 {
		return 0
	}
	frames := pcmBytes / frameSize
	return time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
}

// decodePCM16 decodes a PCM WAV file into signed 16-bit little endian
// samples, the format oto plays.
func decodePCM16(path string) ([]byte, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, err
	}
	defer f.Close() //nolint:errcheck

	d := wav.NewDecoder(f)
	if !d.IsValidFile() || d.WavAudioFormat != 1 {
		return nil, Info{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode %s: %w", path, err)
	}

	info := Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}
	if info.SampleRate > 0 && info.Channels > 0 {
		frames := len(buf.Data) / info.Channels
		info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
	}

	out := make([]byte, 2*len(buf.Data))
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(to16(s, info.BitDepth))) //nolint:gosec
	}
	return out, info, nil
}

// to16 rescales a sample of the given bit depth to 16 bits. 8-bit WAV
// samples are unsigned.
func to16(s, depth int) int16 {
	switch {
	case depth == 8:
		return int16((s - 128) << 8) //nolint:gosec
	case depth > 16:
		return int16(s >> (depth - 16)) //nolint:gosec
	default:
		return int16(s) //nolint:gosec
	}
}
