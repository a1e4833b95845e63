// Package transition schedules time-based updates of rendered elements.
//
// A Transition has a duration and an easing. Renderers register tweens on it: functions
// of eased progress that write one slot (an attribute, a style, the text, a property) of
// one node. Progress is driven either by Run, which follows the wall clock, or manually by
// Seek. Every (node, slot) pair is owned by the transition that registered a tween for it
// last; older transitions stop updating a slot once a newer one claims it.
package transition

import (
	"context"
	"sync"
	"time"

	"golang.org/x/net/html"
)

type slotKey struct {
	node *html.Node
	slot string
}

// Scheduler hands out transitions and tracks slot ownership
type Scheduler struct {
	mu     sync.Mutex
	owners map[slotKey]*Transition
	locker sync.Locker
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithLocker makes the scheduler hold l while tweens write to the tree. Share the lock
// guarding the tree so frames never interleave with renders.
func WithLocker(l sync.Locker) SchedulerOption {
	return func(s *Scheduler) {
		s.locker = l
	}
}

// NewScheduler creates a scheduler
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		owners: make(map[slotKey]*Transition),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a Transition
type Option func(*Transition)

// WithEase sets the easing function
func WithEase(ease Ease) Option {
	return func(t *Transition) {
		if ease != nil {
			t.ease = ease
		}
	}
}

// WithName names the transition, for logging
func WithName(name string) Option {
	return func(t *Transition) {
		t.name = name
	}
}

// New creates a transition of the given duration. It does nothing until started.
func (s *Scheduler) New(duration time.Duration, opts ...Option) *Transition {
	t := &Transition{
		scheduler: s,
		duration:  duration,
		ease:      CubicInOut,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Owner answers the transition currently owning a slot
func (s *Scheduler) Owner(node *html.Node, slot string) *Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners[slotKey{node, slot}]
}

func (s *Scheduler) claim(t *Transition, key slotKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[key] = t
}

func (s *Scheduler) owns(t *Transition, key slotKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners[key] == t
}

func (s *Scheduler) release(t *Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, owner := range s.owners {
		if owner == t {
			delete(s.owners, key)
		}
	}
}

func (s *Scheduler) lock() {
	if s.locker != nil {
		s.locker.Lock()
	}
}

func (s *Scheduler) unlock() {
	if s.locker != nil {
		s.locker.Unlock()
	}
}

type phase int

const (
	phaseCreated phase = iota
	phaseRunning
	phaseEnded
	phaseInterrupted
)

type tween struct {
	key slotKey
	fn  func(t float64)
}

// Transition animates registered tweens from progress 0 to 1
type Transition struct {
	scheduler *Scheduler
	duration  time.Duration
	ease      Ease
	name      string

	mu       sync.Mutex
	phase    phase
	progress float64
	tweens   []tween
	onStart  []func(*Transition)
	onFrame  []func(*Transition)
	onEnd    []func(*Transition)
	onStop   []func(*Transition)
}

// Name answers the name given with WithName
func (t *Transition) Name() string {
	return t.name
}

// Duration answers the duration of the transition
func (t *Transition) Duration() time.Duration {
	return t.duration
}

// Progress answers the linear progress in [0,1]
func (t *Transition) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Active reports whether the transition has started and not yet finished
func (t *Transition) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase == phaseRunning
}

// Done reports whether the transition has ended or was interrupted
func (t *Transition) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase == phaseEnded || t.phase == phaseInterrupted
}

// OnStart registers fn to run when the transition starts
func (t *Transition) OnStart(fn func(*Transition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = append(t.onStart, fn)
}

// OnFrame registers fn to run after every applied frame
func (t *Transition) OnFrame(fn func(*Transition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFrame = append(t.onFrame, fn)
}

// OnEnd registers fn to run when the transition reaches progress 1. Interrupted
// transitions do not call it.
func (t *Transition) OnEnd(fn func(*Transition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnd = append(t.onEnd, fn)
}

// OnInterrupt registers fn to run when a started transition is interrupted before it ends
func (t *Transition) OnInterrupt(fn func(*Transition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = append(t.onStop, fn)
}

// Tween registers fn to update slot of node on every frame and claims the slot. A tween
// registered again for the same slot replaces the earlier one.
func (t *Transition) Tween(node *html.Node, slot string, fn func(t float64)) {
	key := slotKey{node, slot}
	t.mu.Lock()
	replaced := false
	for i := range t.tweens {
		if t.tweens[i].key == key {
			t.tweens[i].fn = fn
			replaced = true
			break
		}
	}
	if !replaced {
		t.tweens = append(t.tweens, tween{key: key, fn: fn})
	}
	t.mu.Unlock()
	t.scheduler.claim(t, key)
}

// Start runs the start callbacks and applies the first frame. Starting a transition
// that already started does nothing.
func (t *Transition) Start() {
	t.mu.Lock()
	if t.phase != phaseCreated {
		t.mu.Unlock()
		return
	}
	t.phase = phaseRunning
	callbacks := append([]func(*Transition){}, t.onStart...)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn(t)
	}
	t.apply(0)
}

// Seek moves the transition to the given linear progress and applies the frame. Seeking
// to 1 or beyond ends the transition.
func (t *Transition) Seek(progress float64) {
	t.Start()
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	t.apply(progress)
	if progress >= 1 {
		t.finish(phaseEnded)
	}
}

// End jumps to the final frame
func (t *Transition) End() {
	t.Seek(1)
}

// Interrupt stops the transition where it is and releases its slots
func (t *Transition) Interrupt() {
	t.finish(phaseInterrupted)
}

// Run starts the transition and advances it every frame interval until it ends or ctx is
// cancelled. A cancelled run interrupts the transition and answers ctx.Err().
func (t *Transition) Run(ctx context.Context, frame time.Duration) error {
	t.Start()
	if t.duration <= 0 {
		t.End()
		return nil
	}
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}

	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	begin := time.Now()
	for {
		select {
		case <-ctx.Done():
			t.Interrupt()
			return ctx.Err()
		case now := <-ticker.C:
			if t.Done() {
				return nil
			}
			t.Seek(float64(now.Sub(begin)) / float64(t.duration))
			if t.Done() {
				return nil
			}
		}
	}
}

// apply runs the tweens whose slots this transition still owns
func (t *Transition) apply(progress float64) {
	t.mu.Lock()
	if t.phase != phaseRunning {
		t.mu.Unlock()
		return
	}
	t.progress = progress
	tweens := append([]tween{}, t.tweens...)
	frameCallbacks := append([]func(*Transition){}, t.onFrame...)
	eased := t.ease(progress)
	t.mu.Unlock()

	t.scheduler.lock()
	for _, tw := range tweens {
		if t.scheduler.owns(t, tw.key) {
			tw.fn(eased)
		}
	}
	t.scheduler.unlock()

	for _, fn := range frameCallbacks {
		fn(t)
	}
}

func (t *Transition) finish(final phase) {
	t.mu.Lock()
	if t.phase == phaseEnded || t.phase == phaseInterrupted {
		t.mu.Unlock()
		return
	}
	started := t.phase == phaseRunning
	t.phase = final
	var callbacks []func(*Transition)
	switch {
	case final == phaseEnded:
		callbacks = append(callbacks, t.onEnd...)
	case started:
		callbacks = append(callbacks, t.onStop...)
	}
	t.mu.Unlock()

	t.scheduler.release(t)
	for _, fn := range callbacks {
		fn(t)
	}
}
