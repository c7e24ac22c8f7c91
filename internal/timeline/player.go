// Package timeline drives time-based dashboard state: the animation player
// that steps through report timestamps, and the date-range picker that
// sets the time filter.
package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/himark-dashboard/internal/state"
)

// Play states written to the store.
const (
	Playing = "playing"
	Paused  = "paused"
)

// Default store keys and frame interval.
const (
	DefaultTimeKey  = "visualizationStates.animationGraph.currentTime"
	DefaultPlayKey  = "visualizationStates.animationGraph.playState"
	DefaultInterval = time.Second
)

// ErrNoTimestamps is returned when a player is built without timestamps.
var ErrNoTimestamps = errors.New("timeline requires at least one timestamp")

// Player steps through timestamps, wrapping to the first after the last,
// and mirrors the current time and play state into a store.
type Player struct {
	store    *state.Store
	clock    clockwork.Clock
	logger   *slog.Logger
	times    []time.Time
	interval time.Duration
	timeKey  string
	playKey  string
	onChange func(t time.Time, index int)

	mu    sync.Mutex
	index int
	stop  chan struct{}
	done  chan struct{}
	// inCallback is the done channel of the loop whose OnTimeChange
	// callback is running, nil otherwise.
	inCallback chan struct{}
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithPlayerClock sets the clock the frame ticker runs on.
func WithPlayerClock(c clockwork.Clock) PlayerOption {
	return func(p *Player) { p.clock = c }
}

// WithPlayerLogger sets the logger.
func WithPlayerLogger(l *slog.Logger) PlayerOption {
	return func(p *Player) { p.logger = l }
}

// WithInterval sets the time between frames.
func WithInterval(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithKeys overrides the store paths for the current time and play state.
func WithKeys(timeKey, playKey string) PlayerOption {
	return func(p *Player) {
		p.timeKey = timeKey
		p.playKey = playKey
	}
}

// OnTimeChange registers fn to run after every frame change.
func OnTimeChange(fn func(t time.Time, index int)) PlayerOption {
	return func(p *Player) { p.onChange = fn }
}

// NewPlayer creates a paused player positioned on the first timestamp.
func NewPlayer(store *state.Store, times []time.Time, opts ...PlayerOption) (*Player, error) {
	if len(times) == 0 {
		return nil, ErrNoTimestamps
	}
	p := &Player{
		store:    store,
		times:    append([]time.Time(nil), times...),
		interval: DefaultInterval,
		timeKey:  DefaultTimeKey,
		playKey:  DefaultPlayKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if err := p.show(0); err != nil {
		return nil, err
	}
	return p, nil
}

// Play starts stepping one frame per interval. Playing again restarts the
// frame timer.
func (p *Player) Play() error {
	p.mu.Lock()
	wait := p.detachLocked()
	stop, done := make(chan struct{}), make(chan struct{})
	p.stop, p.done = stop, done
	ticker := p.clock.NewTicker(p.interval)
	p.mu.Unlock()

	wait()
	go p.run(ticker, stop, done)
	return p.setPlayState(Playing)
}

// Pause stops stepping and waits for an in-flight frame to finish. Called
// from an OnTimeChange callback it returns without waiting.
func (p *Player) Pause() error {
	p.halt()
	return p.setPlayState(Paused)
}

// Toggle plays when paused and pauses when playing.
func (p *Player) Toggle() error {
	if p.Playing() {
		return p.Pause()
	}
	return p.Play()
}

// Playing reports whether the frame timer is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Seek jumps to the frame with exactly t. It reports whether t was found.
func (p *Player) Seek(t time.Time) (bool, error) {
	for i, ts := range p.times {
		if ts.Equal(t) {
			return true, p.show(i)
		}
	}
	return false, nil
}

// SetIndex jumps to frame i. Out-of-range indexes are ignored.
func (p *Player) SetIndex(i int) (bool, error) {
	if i < 0 || i >= len(p.times) {
		return false, nil
	}
	return true, p.show(i)
}

// Index returns the current frame.
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Current returns the current timestamp.
func (p *Player) Current() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.times[p.index]
}

// Close stops the frame timer without touching the store.
func (p *Player) Close() {
	p.halt()
}

func (p *Player) run(ticker clockwork.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			select {
			case <-stop:
				return
			default:
			}
			p.mu.Lock()
			next := (p.index + 1) % len(p.times)
			p.mu.Unlock()
			if err := p.frame(next, done); err != nil {
				p.logger.Warn("timeline frame update failed", "index", next, "error", err)
			}
		}
	}
}

// halt stops the frame loop if one is running and waits for it to exit.
func (p *Player) halt() {
	p.mu.Lock()
	wait := p.detachLocked()
	p.mu.Unlock()
	wait()
}

// detachLocked signals the running loop to stop and returns a func that
// waits for it to exit. The wait is skipped when the loop is inside its own
// OnTimeChange callback, which could not return otherwise. p.mu must be held.
func (p *Player) detachLocked() (wait func()) {
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	if stop == nil {
		return func() {}
	}
	close(stop)
	if done == p.inCallback {
		return func() {}
	}
	return func() { <-done }
}

func (p *Player) show(i int) error {
	return p.frame(i, nil)
}

// frame moves to frame i. loop is the done channel of the frame loop making
// the call, nil for direct calls.
func (p *Player) frame(i int, loop chan struct{}) error {
	p.mu.Lock()
	p.index = i
	t := p.times[i]
	p.mu.Unlock()

	if err := p.store.Set(p.timeKey, t); err != nil {
		return fmt.Errorf("set timeline time: %w", err)
	}
	if p.onChange == nil {
		return nil
	}

	if loop != nil {
		p.mu.Lock()
		p.inCallback = loop
		p.mu.Unlock()
		defer func() {
			p.mu.Lock()
			if p.inCallback == loop {
				p.inCallback = nil
			}
			p.mu.Unlock()
		}()
	}
	p.onChange(t, i)
	return nil
}

func (p *Player) setPlayState(v string) error {
	if err := p.store.Set(p.playKey, v); err != nil {
		return fmt.Errorf("set timeline play state: %w", err)
	}
	return nil
}
