package sim

import "github.com/segmentio/ksuid"

// Base speed bounds for freshly rolled rosters, in distance units per second.
const (
	BaseSpeedMin = 6.0
	BaseSpeedMax = 10.0
)

// Attributes are a runner's three normalized traits. All are clamped to
// [0,1] when a roster is built.
type Attributes struct {
	Speed        float64 `json:"speed"`
	Stamina      float64 `json:"stamina"`
	Acceleration float64 `json:"acceleration"`
}

// Horse is the static description of a competitor. It never changes during
// a race; the mutable per-race state lives in runnerState, joined by ID, so
// nothing render-facing ever leaks into the simulation.
type Horse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Stats     Attributes `json:"stats"`
	BaseSpeed float64    `json:"baseSpeed"`
	Color     uint32     `json:"color"`
	Hat       string     `json:"hat"`
	Face      string     `json:"face"`
}

// NewHorse creates a horse with a generated id and clamped attributes.
// BaseSpeed is left at zero; the race rolls it from the seed and roster
// index when the roster is loaded.
func NewHorse(name string, stats Attributes) Horse {
	return Horse{
		ID:    ksuid.New().String(),
		Name:  name,
		Stats: clampAttributes(stats),
	}
}

// RollBaseSpeed derives a runner's base speed from the race seed and its
// roster index. Same inputs always yield the same speed.
func RollBaseSpeed(seed int64, index int) float64 {
	u := unit(uint64(seed), uint64(index), saltBaseSpeed)
	return unitInRange(u, BaseSpeedMin, BaseSpeedMax)
}

// RollTrait derives a normalized trait in [0,1) from the seed, roster
// index, and a trait label, for generating reproducible fresh rosters.
func RollTrait(seed int64, index int, trait string) float64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(trait); i++ {
		h ^= uint64(trait[i])
		h *= 1099511628211
	}
	return unit(uint64(seed), uint64(index), h)
}

func clampAttributes(a Attributes) Attributes {
	return Attributes{
		Speed:        clamp01(a.Speed),
		Stamina:      clamp01(a.Stamina),
		Acceleration: clamp01(a.Acceleration),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// runnerState is the simulation-owned record for one horse. The race loop
// is its only writer; everything handed outside is a copied snapshot.
type runnerState struct {
	Horse

	index int
	curve SpeedCurve

	progress     float64
	currentSpeed float64
	hasFinished  bool
	finishTime   float64
	finishSpeed  float64

	varianceMultiplier float64
	varianceTimer      float64
	finalKick          float64
}

// RunnerSnapshot is the read-only view of a runner handed to the ranking
// engine and the presentation layer.
type RunnerSnapshot struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Progress     float64 `json:"progress"`
	CurrentSpeed float64 `json:"currentSpeed"`
	HasFinished  bool    `json:"hasFinished"`
	FinishTime   float64 `json:"finishTime,omitempty"`
}

func (r *runnerState) snapshot() RunnerSnapshot {
	snap := RunnerSnapshot{
		ID:           r.ID,
		Name:         r.Name,
		Progress:     r.progress,
		CurrentSpeed: r.currentSpeed,
		HasFinished:  r.hasFinished,
	}
	if r.hasFinished {
		snap.FinishTime = r.finishTime
	}
	return snap
}

// resetForRace returns the runner to the start line. The speed curve and
// final kick stay: both are functions of static attributes and the race
// seed, not of elapsed race state.
func (r *runnerState) resetForRace() {
	r.progress = 0
	r.currentSpeed = 0
	r.hasFinished = false
	r.finishTime = 0
	r.finishSpeed = 0
	r.varianceMultiplier = 1
	r.varianceTimer = 0
}
