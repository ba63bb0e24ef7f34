package logging

import "context"

// EventType tags a race lifecycle event.
type EventType string

const (
	EventRosterLoaded     EventType = "roster_loaded"
	EventCountdownStarted EventType = "countdown_started"
	EventRaceStarted      EventType = "race_started"
	EventRunnerFinished   EventType = "runner_finished"
	EventPhotoFinish      EventType = "photo_finish"
	EventRaceFinished     EventType = "race_finished"
	EventRaceStopped      EventType = "race_stopped"
	EventRaceReset        EventType = "race_reset"
)

// Event is one structured race lifecycle record. The simulation core never
// publishes; only the hub around it does.
type Event struct {
	Type      EventType      `json:"type"`
	Tick      uint64         `json:"tick"`
	RaceState string         `json:"raceState"`
	HorseID   string         `json:"horseId,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Publisher receives race lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

// NopPublisher discards every event.
func NopPublisher() Publisher {
	return nopPublisher{}
}
