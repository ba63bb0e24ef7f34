package server

import "github.com/ThatsOurJake/simhorse-racing/internal/sim"

var defaultHorseNames = []string{
	"Thunderbolt",
	"Sir Trots-a-Lot",
	"Hay There",
	"Neigh Sayer",
	"Photo Finish",
	"Galloping Gus",
	"Oat Cuisine",
	"Mane Event",
}

var defaultCoatColors = []uint32{
	0x8B4513, 0x2F4F4F, 0xCD853F, 0x1E90FF, 0xB22222, 0x228B22, 0x9932CC, 0xDAA520,
}

// defaultRoster builds a fresh field of horses with attribute spreads drawn
// from the seed. Base speeds are left unset so the race rolls them from the
// same seed at load, keeping the whole roster reproducible.
func defaultRoster(seed int64) []sim.Horse {
	count := defaultRosterSize
	if count > len(defaultHorseNames) {
		count = len(defaultHorseNames)
	}
	horses := make([]sim.Horse, 0, count)
	for i := 0; i < count; i++ {
		h := sim.NewHorse(defaultHorseNames[i], sim.Attributes{
			Speed:        sim.RollTrait(seed, i, "speed"),
			Stamina:      sim.RollTrait(seed, i, "stamina"),
			Acceleration: sim.RollTrait(seed, i, "acceleration"),
		})
		h.Color = defaultCoatColors[i%len(defaultCoatColors)]
		h.Hat = "none"
		h.Face = "happy"
		horses = append(horses, h)
	}
	return horses
}
