package sim

import (
	"errors"
	"fmt"
	"math"
)

// State is the race lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateRacing
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountdown:
		return "countdown"
	case StateRacing:
		return "racing"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// DefaultTrackLength is one lap of the reference oval: two 40-unit
	// straights joined by two semicircular turns of radius 15.
	DefaultTrackLength = 40*2 + math.Pi*15*2

	// DecelerationDistance is how far past the finish line a runner keeps
	// rolling while it eases out to a stop. Cosmetic only; ranking never
	// reads anything past the line.
	DecelerationDistance = 30.0

	// finalStretchStart is the normalized distance at which the final kick
	// starts blending in.
	finalStretchStart = 0.85
)

// countdownPhase is one step of the pre-race sequence.
type countdownPhase struct {
	Label    string
	Duration float64
}

var countdownSequence = []countdownPhase{
	{Label: "3", Duration: 0.8},
	{Label: "2", Duration: 0.8},
	{Label: "1", Duration: 0.8},
	{Label: "GO", Duration: 0.5},
}

// PhotoFinish describes the moment the leading runner first reaches the
// finish distance. The registered handler sees it exactly once per race.
type PhotoFinish struct {
	HorseID  string
	Name     string
	RaceTime float64
}

// Race owns the authoritative simulation state for one session. It is the
// sole writer of runner state; every accessor returns copies. Callers must
// not re-enter Update while a tick is running and must not swap the roster
// mid-tick; the hub serializes both.
type Race struct {
	seed        int64
	trackLength float64
	state       State
	raceTime    float64
	runners     []*runnerState

	countdownIndex     int
	countdownRemaining float64

	photoFired   bool
	photoHandler func(PhotoFinish)
}

var (
	ErrRosterEmpty = errors.New("sim: roster must have at least one horse")
	ErrNotIdle     = errors.New("sim: race can only start from idle")
)

// NewRace creates an idle race for the given seed and track length. A
// non-positive track length falls back to the reference oval.
func NewRace(seed int64, trackLength float64) *Race {
	if trackLength <= 0 {
		trackLength = DefaultTrackLength
	}
	return &Race{seed: seed, trackLength: trackLength}
}

// LoadRoster replaces the field wholesale and resets the race to idle.
// Horses without an explicit base speed get one rolled from the race seed
// and their roster index. Attributes are clamped, never rejected.
func (r *Race) LoadRoster(horses []Horse) error {
	if len(horses) == 0 {
		return ErrRosterEmpty
	}

	runners := make([]*runnerState, 0, len(horses))
	for i, h := range horses {
		h.Stats = clampAttributes(h.Stats)
		if h.BaseSpeed <= 0 {
			h.BaseSpeed = RollBaseSpeed(r.seed, i)
		}
		run := &runnerState{
			Horse: h,
			index: i,
			curve: CalculateSpeedCurve(h.Stats, h.BaseSpeed, r.trackLength),
			// The closing kick is fixed for the whole race: up to +25%,
			// drawn from the seed and roster index alone.
			finalKick: 1 + unit(uint64(r.seed), uint64(i), saltKick)*0.25,
		}
		run.resetForRace()
		runners = append(runners, run)
	}

	r.runners = runners
	r.Reset()
	return nil
}

// Seed returns the race seed.
func (r *Race) Seed() int64 { return r.seed }

// TrackLength returns the lap distance in simulation units.
func (r *Race) TrackLength() float64 { return r.trackLength }

// State returns the current lifecycle phase.
func (r *Race) State() State { return r.state }

// IsRacing reports whether the field is actively running.
func (r *Race) IsRacing() bool { return r.state == StateRacing }

// RaceTime returns elapsed race seconds; it only advances while racing.
func (r *Race) RaceTime() float64 { return r.raceTime }

// CountdownLabel returns the current countdown display ("3", "2", "1",
// "GO") while the race is in countdown.
func (r *Race) CountdownLabel() (string, bool) {
	if r.state != StateCountdown || r.countdownIndex >= len(countdownSequence) {
		return "", false
	}
	return countdownSequence[r.countdownIndex].Label, true
}

// Horses returns the static roster in lane order.
func (r *Race) Horses() []Horse {
	horses := make([]Horse, 0, len(r.runners))
	for _, run := range r.runners {
		horses = append(horses, run.Horse)
	}
	return horses
}

// Runners returns read-only snapshots of the live field in lane order.
func (r *Race) Runners() []RunnerSnapshot {
	snaps := make([]RunnerSnapshot, 0, len(r.runners))
	for _, run := range r.runners {
		snaps = append(snaps, run.snapshot())
	}
	return snaps
}

// EstimatedTime returns the pre-race time estimate for one horse,
// integrated from its speed curve. Display only.
func (r *Race) EstimatedTime(horseID string) (float64, bool) {
	for _, run := range r.runners {
		if run.ID == horseID {
			if t, err := RaceTime(run.curve); err == nil {
				return t, true
			}
			return 0, false
		}
	}
	return 0, false
}

// OnPhotoFinish registers the single photo-finish observer. It fires at
// most once per race, at the tick the leading runner first reaches the
// finish distance. Registering replaces any previous handler.
func (r *Race) OnPhotoFinish(fn func(PhotoFinish)) {
	r.photoHandler = fn
}

// Start begins the countdown. Only valid from idle; call Reset first to
// rerun a finished race.
func (r *Race) Start() error {
	if r.state != StateIdle {
		return fmt.Errorf("%w (current state %s)", ErrNotIdle, r.state)
	}
	if len(r.runners) == 0 {
		return ErrRosterEmpty
	}
	r.state = StateCountdown
	r.countdownIndex = 0
	r.countdownRemaining = countdownSequence[0].Duration
	return nil
}

// Stop cuts the race to finished from countdown or racing. Runners keep
// whatever state they had at the last completed tick; unfinished runners
// simply stop advancing.
func (r *Race) Stop() {
	if r.state == StateCountdown || r.state == StateRacing {
		r.state = StateFinished
	}
}

// Reset returns the race to idle with the same roster and seed. Finish
// data, variance state, and the photo-finish latch all clear.
func (r *Race) Reset() {
	r.state = StateIdle
	r.raceTime = 0
	r.countdownIndex = 0
	r.countdownRemaining = 0
	r.photoFired = false
	for _, run := range r.runners {
		run.resetForRace()
	}
}

// Update advances the simulation by dt seconds. It is a no-op while idle
// and while dt is not positive; during countdown only the phase clock
// moves. Finished races still tick so runners past the line can ease out.
func (r *Race) Update(dt float64) {
	if r == nil || dt <= 0 || math.IsNaN(dt) {
		return
	}

	switch r.state {
	case StateCountdown:
		r.advanceCountdown(dt)
		return
	case StateRacing, StateFinished:
	default:
		return
	}

	if len(r.runners) == 0 {
		return
	}

	racing := r.state == StateRacing
	if racing {
		r.raceTime += dt
	}

	for _, run := range r.runners {
		if run.hasFinished {
			run.currentSpeed = r.decelerationSpeed(run)
			continue
		}
		if !racing {
			// Race was stopped with this runner still on course.
			run.currentSpeed = 0
			continue
		}
		run.currentSpeed = r.runnerSpeed(run, dt)
	}

	allFinished := true
	for _, run := range r.runners {
		run.progress += run.currentSpeed * dt
		if !run.hasFinished && run.progress >= r.trackLength {
			run.hasFinished = true
			run.finishTime = r.raceTime
			run.finishSpeed = run.currentSpeed
		}
		if !run.hasFinished {
			allFinished = false
		}
	}

	r.firePhotoFinish()

	if allFinished && r.state == StateRacing {
		r.state = StateFinished
	}
}

// runnerSpeed computes this tick's speed for a runner still on course:
// curve sample, periodic variance re-roll, then the final-stretch blend.
func (r *Race) runnerSpeed(run *runnerState, dt float64) float64 {
	speed := run.curve.SpeedAt(run.progress)

	run.varianceTimer -= dt
	if run.varianceTimer <= 0 {
		seed, idx := uint64(r.seed), uint64(run.index)
		pw := progressWord(run.progress)
		run.varianceTimer = 1 + unit(seed, idx, saltInterval, pw)*2

		varianceRange := 0.15 * (1 - run.Stats.Stamina*0.5)
		run.varianceMultiplier = 1 + (unit(seed, idx, saltVariance, pw)-0.5)*2*varianceRange
	}
	speed *= run.varianceMultiplier

	ratio := run.progress / r.trackLength
	if ratio > finalStretchStart {
		blend := (ratio - finalStretchStart) / (1 - finalStretchStart)
		if blend > 1 {
			blend = 1
		}
		speed *= 1 + (run.finalKick-1)*blend
	}

	if speed < 0 {
		speed = 0
	}
	return speed
}

// decelerationSpeed eases a finished runner from its crossing speed down to
// zero over DecelerationDistance, with a quadratic ease-out.
func (r *Race) decelerationSpeed(run *runnerState) float64 {
	past := run.progress - r.trackLength
	if past >= DecelerationDistance {
		return 0
	}
	if past < 0 {
		past = 0
	}
	t := past / DecelerationDistance
	remaining := 1 - t
	return run.finishSpeed * remaining * remaining
}

func (r *Race) advanceCountdown(dt float64) {
	r.countdownRemaining -= dt
	for r.countdownRemaining <= 0 {
		r.countdownIndex++
		if r.countdownIndex >= len(countdownSequence) {
			r.state = StateRacing
			r.countdownRemaining = 0
			return
		}
		r.countdownRemaining += countdownSequence[r.countdownIndex].Duration
	}
}

func (r *Race) firePhotoFinish() {
	if r.photoFired {
		return
	}
	var leader *runnerState
	for _, run := range r.runners {
		if run.progress < r.trackLength {
			continue
		}
		// Several runners can cross on the same tick; the leader is the
		// earliest finisher, falling back to roster order on exact ties.
		if leader == nil || run.finishTime < leader.finishTime {
			leader = run
		}
	}
	if leader == nil {
		return
	}
	r.photoFired = true
	if r.photoHandler != nil {
		r.photoHandler(PhotoFinish{HorseID: leader.ID, Name: leader.Name, RaceTime: r.raceTime})
	}
}
