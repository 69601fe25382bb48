// Package arbiter decides which data source owns the channel buffer.
//
// The arbiter is not safe for concurrent use; the pipeline engine serialises
// every call under its own lock so that a claim and the buffer write that
// follows it happen as one step.
package arbiter

import "time"

// Source is a producer that may own the channel buffer.
type Source uint8

const (
	Network Source = iota // E1.31, Art-Net and raw UDP.
	Control               // Remote message bus.
	Manual                // Effect started from the control surface.
	Idle                  // Fallback effect after the idle timeout.
)

func (s Source) String() string {
	switch s {
	case Network:
		return "NETWORK_PROTOCOL"
	case Control:
		return "CONTROL_CHANNEL"
	case Manual:
		return "MANUAL_EFFECT"
	case Idle:
		return "IDLE_EFFECT"
	}
	return "UNKNOWN"
}

// Effect reports whether the effect engine produces frames in this state.
func (s Source) Effect() bool {
	return s == Manual || s == Idle
}

// Options configure the idle watchdog and control bucket.
type Options struct {
	IdleTimeout time.Duration
	IdleEnabled bool
	// ShareControl puts control-bus frames in the Network bucket.
	ShareControl bool
}

// Arbiter is the data source state machine.
type Arbiter struct {
	opts        Options
	state       Source
	armed       bool
	deadline    time.Time
	transitions map[Source]uint64
}

// New returns an arbiter in the Network state with the watchdog armed at now.
func New(opts Options, now time.Time) *Arbiter {
	a := &Arbiter{opts: opts, transitions: map[Source]uint64{}}
	a.Reset(now)
	return a
}

// Reset returns to Network and rearms the watchdog.
func (a *Arbiter) Reset(now time.Time) {
	a.state = Network
	a.arm(now)
}

// Active returns the current owner.
func (a *Arbiter) Active() Source {
	return a.state
}

// Armed reports whether the idle watchdog is running, and its deadline.
func (a *Arbiter) Armed() (bool, time.Time) {
	return a.armed, a.deadline
}

// Transitions returns how many times each state has been entered.
func (a *Arbiter) Transitions() map[Source]uint64 {
	out := make(map[Source]uint64, len(a.transitions))
	for k, v := range a.transitions {
		out[k] = v
	}
	return out
}

// ClaimNetwork is called for every accepted network frame. It reports whether
// the frame may be written to the buffer.
func (a *Arbiter) ClaimNetwork(now time.Time) bool {
	switch a.state {
	case Network, Idle:
		a.enter(Network)
		a.arm(now)
		return true
	}
	return false
}

// ClaimControl is called for every control-bus frame.
func (a *Arbiter) ClaimControl(now time.Time) bool {
	if a.opts.ShareControl {
		return a.ClaimNetwork(now)
	}
	switch a.state {
	case Network, Control, Idle:
		a.enter(Control)
		a.arm(now)
		return true
	}
	return false
}

// StartManual switches to a manual effect regardless of the current owner.
func (a *Arbiter) StartManual() {
	a.enter(Manual)
	a.armed = false
}

// StopManual hands the buffer back to the network.
func (a *Arbiter) StopManual(now time.Time) {
	a.enter(Network)
	a.arm(now)
}

// Expire fires the idle watchdog if its deadline has passed. It reports
// whether the state changed to Idle. With idle disabled a quiet control
// source hands the buffer back to the network.
func (a *Arbiter) Expire(now time.Time) bool {
	if !a.armed || now.Before(a.deadline) {
		return false
	}
	if a.state != Network && a.state != Control {
		return false
	}
	a.armed = false
	if !a.opts.IdleEnabled {
		a.enter(Network)
		return false
	}
	a.enter(Idle)
	return true
}

func (a *Arbiter) arm(now time.Time) {
	a.armed = true
	a.deadline = now.Add(a.opts.IdleTimeout)
}

func (a *Arbiter) enter(s Source) {
	if a.state != s {
		a.transitions[s]++
	}
	a.state = s
}
