package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Kind names a recognition strategy.
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
)

func (k Kind) String() string {
	if k == KindRemote {
		return "remote"
	}
	return "local"
}

// Policy is the pure selection rule: English with a working connection goes
// remote, everything else stays on device.
func Policy(lang Language, online bool) Kind {
	if lang == EN && online {
		return KindRemote
	}
	return KindLocal
}

// Prober reports network reachability.
type Prober interface {
	Available(ctx context.Context) bool
}

// Selector applies Policy once per cycle. After a remote transport failure
// it forces exactly one local cycle before probing again.
type Selector struct {
	local  map[Language]*Local
	remote *Remote
	probe  Prober

	mu       sync.Mutex
	degraded bool
}

// NewSelector wires the strategies. remote may be nil when no backend is
// configured, in which case every cycle is local.
func NewSelector(engines map[Language]Streamer, remote *Remote, probe Prober) *Selector {
	local := make(map[Language]*Local, len(engines))
	for lang, e := range engines {
		local[lang] = NewLocal(lang, e)
	}
	return &Selector{local: local, remote: remote, probe: probe}
}

// Local returns the on-device recognizer for lang.
func (s *Selector) Local(lang Language) (Recognizer, error) {
	l, ok := s.local[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoModel, lang)
	}
	return l, nil
}

// Supports reports whether lang has a local model loaded.
func (s *Selector) Supports(lang Language) bool {
	_, ok := s.local[lang]
	return ok
}

// Choose picks the recognizer for the next cycle. The network is only
// probed when the choice depends on it.
func (s *Selector) Choose(ctx context.Context, lang Language) (Recognizer, Kind, error) {
	if lang == EN && s.remote != nil && s.probe != nil && !s.takeDegraded() {
		if Policy(lang, s.probe.Available(ctx)) == KindRemote {
			return s.remote, KindRemote, nil
		}
	}

	l, err := s.Local(lang)
	if err != nil {
		return nil, KindLocal, err
	}
	return l, KindLocal, nil
}

// Degrade records a remote transport failure.
func (s *Selector) Degrade() {
	s.mu.Lock()
	s.degraded = true
	s.mu.Unlock()
	slog.Warn("remote recognizer unreachable, next cycle runs locally")
}

func (s *Selector) takeDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.degraded
	s.degraded = false
	return d
}

// Close releases every local engine.
func (s *Selector) Close() error {
	var first error
	for _, l := range s.local {
		if err := l.engine.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
