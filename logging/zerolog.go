package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type zerologPublisher struct {
	log zerolog.Logger
}

// NewZerologPublisher emits events through the given zerolog logger.
func NewZerologPublisher(log zerolog.Logger) Publisher {
	return &zerologPublisher{log: log}
}

func (p *zerologPublisher) Publish(ctx context.Context, event Event) {
	entry := p.log.Info().
		Str("event", string(event.Type)).
		Uint64("tick", event.Tick).
		Str("raceState", event.RaceState)
	if event.HorseID != "" {
		entry = entry.Str("horseId", event.HorseID)
	}
	if len(event.Fields) > 0 {
		entry = entry.Fields(event.Fields)
	}
	entry.Msg("race event")
}
