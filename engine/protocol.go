package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// EventMarker writes a numeric tag to the acquisition channel so recorded
// brain signals can be aligned with stimulus events. Emission is fire and
// forget: implementations log transport failures and never raise them into
// the protocol.
type EventMarker interface {
	Emit(eventID uint8)
}

// NullMarker discards tags. Used when no trigger hardware is attached.
type NullMarker struct{}

// Emit does nothing.
func (NullMarker) Emit(uint8) {}

// Mode selects the experiment paradigm.
type Mode int

const (
	// ModeOfflineCued runs a fixed number of cued trials for training data:
	// REST -> CUE (red border on target) -> FLICKER (tag = target+1) -> REST.
	ModeOfflineCued Mode = iota
	// ModeOnlineDiscrete runs trials that wait for a classifier result:
	// REST -> FLICKER (tag 100) -> WAIT -> FEEDBACK (green border) -> REST.
	ModeOnlineDiscrete
	// ModeOnlineContinuous flickers everything indefinitely and emits tag 100
	// at a fixed interval.
	ModeOnlineContinuous
)

func (m Mode) String() string {
	switch m {
	case ModeOfflineCued:
		return "offline"
	case ModeOnlineDiscrete:
		return "online_discrete"
	case ModeOnlineContinuous:
		return "online_continuous"
	}
	return "unknown"
}

// ParseMode maps a config-file mode name to its tag.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "offline":
		return ModeOfflineCued, nil
	case "online_discrete":
		return ModeOnlineDiscrete, nil
	case "online_continuous":
		return ModeOnlineContinuous, nil
	}
	return 0, fmt.Errorf("unknown experiment mode %q", s)
}

// State is the protocol phase. Transitions are total functions of
// (mode, state, elapsed time in state), except WAIT which is exited only by
// SubmitResult.
type State int

const (
	StateIdle State = iota
	StateRest
	StateCue
	StateFlicker
	StateFeedback
	StateWait
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRest:
		return "REST"
	case StateCue:
		return "CUE"
	case StateFlicker:
		return "FLICKER"
	case StateFeedback:
		return "FEEDBACK"
	case StateWait:
		return "WAIT"
	}
	return "UNKNOWN"
}

// TagTrialStart is the generic tag for trial starts that carry no target
// identity (online modes).
const TagTrialStart uint8 = 100

// Timing holds the protocol phase lengths.
type Timing struct {
	Rest        time.Duration
	Cue         time.Duration
	Flicker     time.Duration
	Feedback    time.Duration
	TagInterval time.Duration // online continuous tag period
	TrialCount  int           // offline rounds
}

// DefaultTiming returns the standard session timing.
func DefaultTiming() Timing {
	return Timing{
		Rest:        time.Second,
		Cue:         time.Second,
		Flicker:     2 * time.Second,
		Feedback:    500 * time.Millisecond,
		TagInterval: 2 * time.Second,
		TrialCount:  5,
	}
}

// Protocol sequences the experiment phases and drives the stimuli. All calls
// happen on the single frame-update path; there is no internal locking.
//
// target indexes stimuli: it is the cued target during CUE and FLICKER in
// offline mode, and the classifier result during FEEDBACK in online discrete
// mode. Both phases highlight stimuli[target].
type Protocol struct {
	mode    Mode
	stimuli []*Stimulus
	marker  EventMarker
	timing  Timing
	rng     *rand.Rand
	events  *EventLog

	state           State
	stateStart      time.Time
	stateStartFrame int64
	target          int
	sequence        []int
	round           int
	lastTag         time.Time
}

// ProtocolOption configures a Protocol.
type ProtocolOption func(*Protocol)

// WithRand substitutes the RNG used to draw the offline cue sequence.
func WithRand(rng *rand.Rand) ProtocolOption {
	return func(p *Protocol) {
		p.rng = rng
	}
}

// WithEventLog records state transitions and emitted tags into l.
func WithEventLog(l *EventLog) ProtocolOption {
	return func(p *Protocol) {
		p.events = l
	}
}

// NewProtocol validates the session setup and returns a protocol in IDLE.
// A nil marker is replaced by NullMarker.
func NewProtocol(mode Mode, stimuli []*Stimulus, marker EventMarker, timing Timing, opts ...ProtocolOption) (*Protocol, error) {
	switch mode {
	case ModeOfflineCued, ModeOnlineDiscrete, ModeOnlineContinuous:
	default:
		return nil, fmt.Errorf("unknown experiment mode %d", int(mode))
	}
	if len(stimuli) == 0 {
		return nil, errors.New("protocol needs at least one stimulus")
	}
	for i, s := range stimuli {
		if s.FlickerFreq <= 0 {
			return nil, fmt.Errorf("stimulus %d: flicker frequency must be positive, got %g", i, s.FlickerFreq)
		}
	}
	if marker == nil {
		marker = NullMarker{}
	}
	p := &Protocol{
		mode:    mode,
		stimuli: stimuli,
		marker:  marker,
		timing:  timing,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		state:   StateIdle,
		target:  -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Mode returns the experiment mode.
func (p *Protocol) Mode() Mode { return p.mode }

// State returns the current phase.
func (p *Protocol) State() State { return p.state }

// Target returns the index highlighted by the current or most recent CUE or
// FEEDBACK phase, or -1 before the first trial.
func (p *Protocol) Target() int { return p.target }

// Sequence returns a copy of the offline cue sequence.
func (p *Protocol) Sequence() []int {
	return append([]int(nil), p.sequence...)
}

// Done reports whether an offline session has finished all its trials.
// Online modes run until the host ends the session.
func (p *Protocol) Done() bool {
	return p.mode == ModeOfflineCued && p.state == StateIdle && p.sequence != nil
}

// Start enters the mode's initial phase. Offline mode draws its cue sequence
// here; online continuous starts all flicker immediately.
func (p *Protocol) Start(now time.Time, frame int64) {
	Log.Info().Stringer("mode", p.mode).Msg("starting experiment")
	switch p.mode {
	case ModeOfflineCued:
		p.sequence = make([]int, p.timing.TrialCount)
		for i := range p.sequence {
			p.sequence[i] = p.rng.Intn(len(p.stimuli))
		}
		p.round = 0
		Log.Info().Ints("sequence", p.sequence).Msg("generated cue sequence")
		p.enterState(StateRest, now, frame)
	case ModeOnlineDiscrete:
		p.enterState(StateRest, now, frame)
	case ModeOnlineContinuous:
		p.enterState(StateFlicker, now, frame)
		p.lastTag = now
	}
}

// Update advances the state machine. Call exactly once per rendered frame,
// before sampling the stimuli, so this frame's mutations are visible to this
// frame's render.
func (p *Protocol) Update(now time.Time, frame int64) {
	elapsed := now.Sub(p.stateStart)
	switch p.mode {
	case ModeOfflineCued:
		p.updateOffline(elapsed, now, frame)
	case ModeOnlineDiscrete:
		p.updateOnlineDiscrete(elapsed, now, frame)
	case ModeOnlineContinuous:
		p.updateOnlineContinuous(now, frame)
	}
}

func (p *Protocol) updateOffline(elapsed time.Duration, now time.Time, frame int64) {
	switch p.state {
	case StateRest:
		if elapsed > p.timing.Rest {
			if p.round < len(p.sequence) {
				p.target = p.sequence[p.round]
				p.enterState(StateCue, now, frame)
			} else {
				p.enterState(StateIdle, now, frame)
				Log.Info().Msg("offline session complete")
			}
		}
	case StateCue:
		if elapsed > p.timing.Cue {
			p.enterState(StateFlicker, now, frame)
		}
	case StateFlicker:
		if elapsed > p.timing.Flicker {
			p.round++
			p.enterState(StateRest, now, frame)
		}
	}
}

func (p *Protocol) updateOnlineDiscrete(elapsed time.Duration, now time.Time, frame int64) {
	switch p.state {
	case StateRest:
		if elapsed > p.timing.Rest {
			p.enterState(StateFlicker, now, frame)
		}
	case StateFlicker:
		if elapsed > p.timing.Flicker {
			p.stopAllFlicker()
			p.enterState(StateWait, now, frame)
			Log.Info().Msg("waiting for classifier result")
		}
	case StateWait:
		// Exited only by SubmitResult.
	case StateFeedback:
		if elapsed > p.timing.Feedback {
			p.enterState(StateRest, now, frame)
		}
	}
}

func (p *Protocol) updateOnlineContinuous(now time.Time, frame int64) {
	if now.Sub(p.lastTag) > p.timing.TagInterval {
		p.emit(TagTrialStart, now, frame)
		p.lastTag = now
	}
}

// SubmitResult feeds a classifier decision into an online discrete session.
// Valid only in WAIT with an in-range index; anything else is logged and
// ignored without touching protocol state.
func (p *Protocol) SubmitResult(result int, now time.Time, frame int64) {
	if p.mode != ModeOnlineDiscrete || p.state != StateWait {
		Log.Warn().Int("result", result).Stringer("state", p.state).Msg("result ignored outside WAIT")
		return
	}
	if result < 0 || result >= len(p.stimuli) {
		Log.Warn().Int("result", result).Msg("result index out of range")
		return
	}
	p.target = result
	p.enterState(StateFeedback, now, frame)
}

func (p *Protocol) enterState(next State, now time.Time, frame int64) {
	p.state = next
	p.stateStart = now
	p.stateStartFrame = frame
	Log.Debug().Stringer("state", next).Int64("frame", frame).Msg("state change")
	if p.events != nil {
		p.events.Log(now, frame, "STATE", next.String())
	}

	switch next {
	case StateRest:
		p.stopAllFlicker()
	case StateCue:
		target := p.stimuli[p.target]
		target.StartBorderFlash(ColorCue, now)
		target.BorderDuration = p.timing.Cue
	case StateFlicker:
		for _, s := range p.stimuli {
			if err := s.StartFlicker(s.FlickerFreq, s.FlickerPhase, 0, frame, now); err != nil {
				Log.Error().Err(err).Msg("start flicker")
			}
		}
		switch p.mode {
		case ModeOfflineCued:
			// 1-based tag identifies the cued target.
			p.emit(uint8(p.target+1), now, frame)
		case ModeOnlineDiscrete:
			p.emit(TagTrialStart, now, frame)
		}
	case StateFeedback:
		p.stopAllFlicker()
		result := p.stimuli[p.target]
		result.StartBorderFlash(ColorFeedback, now)
		result.BorderDuration = p.timing.Feedback
	}
}

func (p *Protocol) emit(tag uint8, now time.Time, frame int64) {
	p.marker.Emit(tag)
	if p.events != nil {
		p.events.Log(now, frame, "TAG", strconv.Itoa(int(tag)))
	}
}

func (p *Protocol) stopAllFlicker() {
	for _, s := range p.stimuli {
		s.StopFlicker()
	}
}
