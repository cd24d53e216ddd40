// Package file decodes recordings for replay as an audio source. It is
// kept apart from package audio because the opus decoder needs cgo.
package file

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/pekim/opus"

	"vaani/internal/audio"
)

// NewSource decodes a wav, mp3, ogg/vorbis or ogg/opus file to 16 kHz mono
// and replays it.
func NewSource(path string) (*audio.SampleSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &audio.DeviceError{Op: "open", Err: err}
	}
	defer f.Close()

	samples, err := decode(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, &audio.DeviceError{Op: "decode", Err: fmt.Errorf("%s: %w", path, err)}
	}

	return audio.NewSampleSource(samples), nil
}

func decode(f io.ReadSeeker, ext string) ([]int16, error) {
	switch ext {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga":
		return decodeOgg(f)
	case ".opus":
		return decodeOpus(f)
	}

	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch string(magic) {
	case "RIFF":
		return decodeWAV(f)
	case "OggS":
		return decodeOgg(f)
	default:
		return nil, fmt.Errorf("unsupported format %q (want wav, mp3, ogg/vorbis or opus)", ext)
	}
}

func decodeWAV(r io.ReadSeeker) ([]int16, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	scale := 1.0 / float64(int64(1)<<(depth-1))

	x := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		x[i] = float32(float64(v) * scale)
	}

	return toMono16k(x, int(dec.NumChans), int(dec.SampleRate)), nil
}

func decodeMP3(r io.Reader) ([]int16, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}

	// go-mp3 always produces interleaved stereo PCM16.
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(&raw, binary.LittleEndian, ints); err != nil {
		return nil, err
	}

	return toMono16k(audio.Int16ToFloat32(ints), 2, dec.SampleRate()), nil
}

func decodeVorbis(r io.Reader) ([]int16, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}

	return toMono16k(pcm, format.Channels, format.SampleRate), nil
}

// decodeOgg tries vorbis first and falls back to opus.
func decodeOgg(f io.ReadSeeker) ([]int16, error) {
	samples, err := decodeVorbis(f)
	if err == nil {
		return samples, nil
	}
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	samples, oerr := decodeOpus(f)
	if oerr != nil {
		return nil, fmt.Errorf("ogg: vorbis: %v, opus: %w", err, oerr)
	}
	return samples, nil
}

// opusRate is the rate libopusfile always decodes at.
const opusRate = 48000

func decodeOpus(r io.ReadSeeker) ([]int16, error) {
	dec, err := opus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)
	buf := make([]int16, opusRate*ch/2)
	var pcm []int16
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, buf[:n*ch]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("empty opus stream")
	}

	return toMono16k(audio.Int16ToFloat32(pcm), ch, opusRate), nil
}

func toMono16k(x []float32, channels, rate int) []int16 {
	if channels > 1 {
		x = downmix(x, channels)
	}
	if rate > 0 && rate != audio.SampleRate {
		x = resample(x, rate, audio.SampleRate)
	}
	return audio.Float32ToInt16(x)
}

func downmix(in []float32, channels int) []float32 {
	n := len(in) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(in[i*channels+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resample does linear interpolation, which is plenty for speech models.
func resample(in []float32, from, to int) []float32 {
	if from == to || len(in) == 0 {
		return in
	}

	ratio := float64(to) / float64(from)
	n := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, n)

	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}

	return out
}
