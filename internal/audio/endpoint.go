package audio

import "time"

const (
	// DefaultThreshold is the RMS level above which a frame counts as speech
	// before any calibration.
	DefaultThreshold = 0.015
	DefaultSilence   = 800 * time.Millisecond
	DefaultMaxLength = 10 * time.Second

	calibrationFactor = 1.5
)

// Endpointer is an energy based voice activity detector. Frames are pushed
// one by one; once speech has started and is followed by enough silence
// (or the utterance hits MaxLength) the accumulated samples are returned.
type Endpointer struct {
	Threshold float64
	Silence   time.Duration
	MaxLength time.Duration

	speaking bool
	silent   time.Duration
	length   time.Duration
	buf      []int16
}

// NewEndpointer returns an endpointer with the default tuning.
func NewEndpointer() *Endpointer {
	return &Endpointer{
		Threshold: DefaultThreshold,
		Silence:   DefaultSilence,
		MaxLength: DefaultMaxLength,
	}
}

// Calibrate raises the speech threshold above the ambient level measured
// over the given frames. The threshold never drops below DefaultThreshold.
func (e *Endpointer) Calibrate(frames []Frame) {
	if len(frames) == 0 {
		return
	}

	var sum float64
	for _, f := range frames {
		sum += f.RMS()
	}
	ambient := sum / float64(len(frames))

	th := ambient * calibrationFactor
	if th < DefaultThreshold {
		th = DefaultThreshold
	}
	e.Threshold = th
}

// Speaking reports whether an utterance is in progress.
func (e *Endpointer) Speaking() bool {
	return e.speaking
}

// Push feeds one frame. It returns the finished utterance and true when an
// endpoint was found; the endpointer is reset afterwards.
func (e *Endpointer) Push(f Frame) ([]int16, bool) {
	d := f.Duration()

	if f.RMS() > e.Threshold {
		e.speaking = true
		e.silent = 0
	} else {
		if !e.speaking {
			return nil, false
		}
		e.silent += d
	}

	e.buf = append(e.buf, f...)
	e.length += d

	if e.silent >= e.Silence || (e.MaxLength > 0 && e.length >= e.MaxLength) {
		out := e.buf
		e.Reset()
		return out, true
	}

	return nil, false
}

// Reset drops any partial utterance.
func (e *Endpointer) Reset() {
	e.speaking = false
	e.silent = 0
	e.length = 0
	e.buf = nil
}

// Flush returns whatever speech has been buffered and resets.
func (e *Endpointer) Flush() []int16 {
	if !e.speaking {
		e.Reset()
		return nil
	}
	out := e.buf
	e.Reset()
	return out
}
