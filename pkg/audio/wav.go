package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a buffer is not a decodable WAV file.
var ErrInvalidWAV = errors.New("audio: invalid wav")

// EncodeWAV writes samples as a 16-bit PCM WAV file.
func EncodeWAV(samples []int16, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		channels = 1
	}

	ws := &writeSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, BitDepth, channels, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalize wav: %w", err)
	}
	return ws.Bytes(), nil
}

// DecodeWAV reads a WAV file into mono 16-bit samples at its native rate.
// Multi-channel input is downmixed.
func DecodeWAV(data []byte) ([]int16, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decode wav: %w", err)
	}
	if pb == nil {
		return nil, 0, ErrInvalidWAV
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = BitDepth
	}
	shift := bitDepth - BitDepth

	samples := make([]int16, len(pb.Data))
	for i, v := range pb.Data {
		switch {
		case shift > 0:
			v >>= uint(shift)
		case shift < 0:
			// 8-bit WAV is unsigned.
			v = (v - 128) << uint(-shift)
		}
		samples[i] = int16(v)
	}

	rate := int(dec.SampleRate)
	if pb.Format != nil && pb.Format.SampleRate > 0 {
		rate = pb.Format.SampleRate
	}
	channels := int(dec.NumChans)
	if pb.Format != nil && pb.Format.NumChannels > 0 {
		channels = pb.Format.NumChannels
	}
	return Downmix(samples, channels), rate, nil
}

// DecodeUtteranceWAV decodes data and resamples it to the capture rate.
func DecodeUtteranceWAV(data []byte) ([]int16, error) {
	samples, rate, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	return Resample(samples, rate, SampleRate), nil
}

// writeSeeker is an in-memory io.WriteSeeker for the WAV encoder,
// which seeks back to patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.buf) {
		if end > cap(w.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, w.buf)
			w.buf = grown
		} else {
			w.buf = w.buf[:end]
		}
	}
	copy(w.buf[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = w.pos
	case io.SeekEnd:
		base = len(w.buf)
	default:
		return 0, errors.New("audio: invalid whence")
	}
	next := base + int(offset)
	if next < 0 {
		return 0, errors.New("audio: negative seek")
	}
	w.pos = next
	return int64(next), nil
}

func (w *writeSeeker) Bytes() []byte {
	return w.buf
}
