package server

import (
	"github.com/ThatsOurJake/simhorse-racing/internal/config"
	"github.com/ThatsOurJake/simhorse-racing/internal/sim"
)

// horseView is the static roster entry sent to presentation clients,
// including the pre-race time estimate.
type horseView struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Stats         sim.Attributes `json:"stats"`
	BaseSpeed     float64        `json:"baseSpeed"`
	Color         uint32         `json:"color"`
	Hat           string         `json:"hat"`
	Face          string         `json:"face"`
	EstimatedTime float64        `json:"estimatedTime,omitempty"`
}

// stateMessage is the per-tick broadcast: everything a renderer needs to
// draw the field and the leaderboard.
type stateMessage struct {
	Type        string               `json:"type"`
	Tick        uint64               `json:"tick"`
	ServerTime  int64                `json:"serverTime"`
	RaceState   string               `json:"raceState"`
	RaceTime    float64              `json:"raceTime"`
	TrackLength float64              `json:"trackLength"`
	Countdown   string               `json:"countdown,omitempty"`
	Seed        int64                `json:"raceSeed"`
	Horses      []horseView          `json:"horses"`
	Runners     []sim.RunnerSnapshot `json:"runners"`
	Leaderboard []sim.Standing       `json:"leaderboard"`
}

// photoFinishMessage is broadcast once per race, on the tick the leader
// first reaches the finish line.
type photoFinishMessage struct {
	Type     string  `json:"type"`
	Tick     uint64  `json:"tick"`
	HorseID  string  `json:"horseId"`
	Name     string  `json:"name"`
	RaceTime float64 `json:"raceTime"`
}

// importResponse reports the outcome of a config import.
type importResponse struct {
	Valid  bool           `json:"valid"`
	Errors []config.Issue `json:"errors,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
