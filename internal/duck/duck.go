// Package duck lowers the playback volume of other applications while the
// assistant is listening and restores it afterwards. Volumes are driven
// through PulseAudio's pactl.
package duck

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultFactor = 0.3
	DefaultFloor  = 10
	DefaultFade   = 300 * time.Millisecond

	maxVolume = 150
	fadeStep  = 10 * time.Millisecond
)

// Input is one playback stream.
type Input struct {
	ID     int
	Volume int // percent
	App    string
}

// Mixer lists and adjusts playback streams.
type Mixer interface {
	Inputs(ctx context.Context) ([]Input, error)
	SetVolume(ctx context.Context, id, percent int) error
}

// Ducker fades every stream not owned by an ignored application down to
// Factor of its volume, never below Floor.
type Ducker struct {
	Factor float64
	Floor  int
	Fade   time.Duration

	mixer  Mixer
	ignore []string
	sleep  func(time.Duration)

	mu       sync.Mutex
	active   bool
	original map[int]int
}

// New returns a Ducker that leaves streams of the ignore applications alone.
func New(mixer Mixer, ignore ...string) *Ducker {
	return &Ducker{
		Factor: DefaultFactor,
		Floor:  DefaultFloor,
		Fade:   DefaultFade,
		mixer:  mixer,
		ignore: ignore,
		sleep:  time.Sleep,
	}
}

// Duck lowers the other streams. Calling it twice is a no-op.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	inputs, err := d.mixer.Inputs(ctx)
	if err != nil {
		return fmt.Errorf("list inputs: %w", err)
	}

	d.original = make(map[int]int)
	var targets []fadeTarget
	for _, in := range inputs {
		if d.ignored(in) {
			continue
		}
		to := int(math.Round(float64(in.Volume) * d.Factor))
		to = min(max(to, d.Floor), maxVolume)
		if to > in.Volume {
			to = in.Volume
		}

		d.original[in.ID] = in.Volume
		targets = append(targets, fadeTarget{id: in.ID, from: in.Volume, to: to})
	}

	// Originals are recorded before any volume moves so Restore can undo
	// a fade that was cut short.
	d.active = true
	slog.Debug("ducking playback", "streams", len(targets))
	return d.fade(ctx, targets)
}

// Restore fades ducked streams back to their original volume. Streams
// that appeared after Duck are left alone.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	inputs, err := d.mixer.Inputs(ctx)
	if err != nil {
		return fmt.Errorf("list inputs: %w", err)
	}

	// Streams that ended while ducked are simply absent from inputs.
	var targets []fadeTarget
	for _, in := range inputs {
		orig, ok := d.original[in.ID]
		if !ok || d.ignored(in) {
			continue
		}
		targets = append(targets, fadeTarget{id: in.ID, from: in.Volume, to: orig})
	}

	if err := d.fade(ctx, targets); err != nil {
		return err
	}
	d.original = nil
	d.active = false
	return nil
}

func (d *Ducker) ignored(in Input) bool {
	for _, name := range d.ignore {
		if in.App == name {
			return true
		}
	}
	return false
}

type fadeTarget struct {
	id, from, to int
}

// fade moves every target to its volume in steps spread over d.Fade. A
// stream that rejects a volume change, usually because it just ended, is
// dropped from the rest of the fade.
func (d *Ducker) fade(ctx context.Context, targets []fadeTarget) error {
	if len(targets) == 0 {
		return nil
	}

	steps := max(int(d.Fade/fadeStep), 1)
	pause := d.Fade / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		live := targets[:0]
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := d.mixer.SetVolume(ctx, t.id, v); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Debug("set volume failed, skipping stream", "id", t.id, "err", err)
				continue
			}
			live = append(live, t)
		}
		targets = live
		if len(targets) == 0 {
			return nil
		}

		if i < steps && pause > 0 {
			d.sleep(pause)
		}
	}
	return nil
}

// Pactl talks to PulseAudio (or PipeWire's pulse shim) via the pactl CLI.
type Pactl struct{}

func (Pactl) Inputs(ctx context.Context) ([]Input, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseInputs(string(out)), nil
}

func (Pactl) SetVolume(ctx context.Context, id, percent int) error {
	percent = min(max(percent, 0), maxVolume)
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent)).Run()
}

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

// parseInputs reads the output of `pactl list sink-inputs`.
func parseInputs(out string) []Input {
	blocks := strings.Split(out, "Sink Input #")
	var inputs []Input

	for _, block := range blocks[1:] {
		head, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}

		in := Input{ID: id, Volume: -1}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && in.Volume < 0 {
				if m := percentRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			}
			if v, ok := strings.CutPrefix(line, "application.name = "); ok && in.App == "" {
				in.App = strings.Trim(v, `"`)
			}
		}

		if in.Volume < 0 {
			continue
		}
		inputs = append(inputs, in)
	}
	return inputs
}
