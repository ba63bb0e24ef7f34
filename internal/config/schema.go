package config

import (
	"github.com/ThatsOurJake/simhorse-racing/internal/sim"
)

// Version is the only accepted race-file format version.
const Version = "1.0"

// Roster bounds. Eight lanes is a presentation constraint inherited from
// the track layout; the engine itself does not care.
const (
	MinHorses = 1
	MaxHorses = 8
)

// MaxColor is the largest accepted 24-bit RGB value.
const MaxColor = 0xFFFFFF

// Hats and Faces are the closed cosmetic tag sets. Anything outside them is
// a validation error, not a clamp; cosmetics have no safe nearest value.
var (
	Hats  = []string{"none", "top-hat", "cowboy", "party", "crown", "beanie"}
	Faces = []string{"happy", "determined", "sleepy", "silly", "grumpy", "starry"}
)

// RaceFile is the persisted race configuration: a seed and a roster. It is
// the exchange format for replays, so exporting and re-importing one must
// reproduce an identical race.
type RaceFile struct {
	Version  string       `json:"version" jsonschema:"title=Format version,description=Race file format version; always 1.0.,pattern=^1\\.0$,required"`
	RaceSeed int64        `json:"raceSeed" jsonschema:"title=Race seed,description=Integer seed driving every random draw of the race.,required"`
	Horses   []HorseEntry `json:"horses" jsonschema:"title=Roster,description=Competing horses in lane order; 1 to 8 entries.,minItems=1,maxItems=8,required"`
}

// HorseEntry is one roster slot of a race file.
type HorseEntry struct {
	ID        string     `json:"id" jsonschema:"title=Horse id,description=Stable unique identifier.,minLength=1,required"`
	Name      string     `json:"name" jsonschema:"title=Display name,minLength=1,required"`
	Stats     StatsEntry `json:"stats" jsonschema:"title=Traits,description=Normalized traits in [0 1].,required"`
	BaseSpeed float64    `json:"baseSpeed" jsonschema:"title=Base speed,description=Assigned base speed in distance units per second.,minimum=6,maximum=10,required"`
	Color     uint32     `json:"color" jsonschema:"title=Coat color,description=24-bit RGB integer.,maximum=16777215"`
	Hat       string     `json:"hat" jsonschema:"title=Hat,enum=none,enum=top-hat,enum=cowboy,enum=party,enum=crown,enum=beanie"`
	Face      string     `json:"face" jsonschema:"title=Face,enum=happy,enum=determined,enum=sleepy,enum=silly,enum=grumpy,enum=starry"`
}

// StatsEntry mirrors sim.Attributes on the wire.
type StatsEntry struct {
	Speed        float64 `json:"speed" jsonschema:"minimum=0,maximum=1,required"`
	Stamina      float64 `json:"stamina" jsonschema:"minimum=0,maximum=1,required"`
	Acceleration float64 `json:"acceleration" jsonschema:"minimum=0,maximum=1,required"`
}

// Roster converts the file's entries into simulation horses.
func (f RaceFile) Roster() []sim.Horse {
	horses := make([]sim.Horse, 0, len(f.Horses))
	for _, e := range f.Horses {
		horses = append(horses, sim.Horse{
			ID:   e.ID,
			Name: e.Name,
			Stats: sim.Attributes{
				Speed:        e.Stats.Speed,
				Stamina:      e.Stats.Stamina,
				Acceleration: e.Stats.Acceleration,
			},
			BaseSpeed: e.BaseSpeed,
			Color:     e.Color,
			Hat:       e.Hat,
			Face:      e.Face,
		})
	}
	return horses
}

// FromRoster builds the canonical race file for the given seed and horses.
func FromRoster(seed int64, horses []sim.Horse) RaceFile {
	entries := make([]HorseEntry, 0, len(horses))
	for _, h := range horses {
		entries = append(entries, HorseEntry{
			ID:   h.ID,
			Name: h.Name,
			Stats: StatsEntry{
				Speed:        h.Stats.Speed,
				Stamina:      h.Stats.Stamina,
				Acceleration: h.Stats.Acceleration,
			},
			BaseSpeed: h.BaseSpeed,
			Color:     h.Color,
			Hat:       h.Hat,
			Face:      h.Face,
		})
	}
	return RaceFile{Version: Version, RaceSeed: seed, Horses: entries}
}
