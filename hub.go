package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ThatsOurJake/simhorse-racing/internal/config"
	"github.com/ThatsOurJake/simhorse-racing/internal/sim"
	"github.com/ThatsOurJake/simhorse-racing/internal/store"
	"github.com/ThatsOurJake/simhorse-racing/logging"
)

// ResultSink records completed race outcomes. *store.Store satisfies it;
// tests plug in their own.
type ResultSink interface {
	SaveResult(result store.RaceResult) (string, error)
}

// HubConfig carries the hub's collaborators and tunables.
type HubConfig struct {
	Seed        int64
	TrackLength float64
	Publisher   logging.Publisher
	Results     ResultSink
	Logger      zerolog.Logger
}

// Hub owns the race and its subscribers. Its mutex is what upholds the
// single-writer rule: a tick and a roster swap can never interleave.
type Hub struct {
	mu          sync.Mutex
	race        *sim.Race
	trackLength float64

	subscribers map[uint64]*subscriber
	nextSub     atomic.Uint64
	tick        atomic.Uint64

	publisher logging.Publisher
	results   ResultSink
	log       zerolog.Logger

	announcedFinish map[string]bool
	resultSaved     bool
	stoppedEarly    bool
	pendingPhoto    *photoFinishMessage
}

type subscriber struct {
	id   uint64
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewHub constructs a hub with a freshly generated roster for the given
// seed. A zero TrackLength selects the reference oval.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	h := &Hub{
		trackLength:     cfg.TrackLength,
		subscribers:     make(map[uint64]*subscriber),
		publisher:       cfg.Publisher,
		results:         cfg.Results,
		log:             cfg.Logger,
		announcedFinish: make(map[string]bool),
	}
	h.installRace(cfg.Seed, defaultRoster(cfg.Seed))
	return h
}

// installRace swaps in a new race wholesale. Callers hold no lock only
// during construction; every later call happens under h.mu.
func (h *Hub) installRace(seed int64, horses []sim.Horse) {
	race := sim.NewRace(seed, h.trackLength)
	if err := race.LoadRoster(horses); err != nil {
		// Only reachable with an empty roster, which both callers rule out.
		h.log.Error().Err(err).Msg("failed to load roster")
		return
	}
	race.OnPhotoFinish(func(pf sim.PhotoFinish) {
		h.pendingPhoto = &photoFinishMessage{
			Type:     "photoFinish",
			Tick:     h.tick.Load(),
			HorseID:  pf.HorseID,
			Name:     pf.Name,
			RaceTime: pf.RaceTime,
		}
		h.publish(logging.Event{
			Type:      logging.EventPhotoFinish,
			RaceState: race.State().String(),
			HorseID:   pf.HorseID,
			Fields:    map[string]any{"raceTime": pf.RaceTime},
		})
	})
	h.race = race
	h.announcedFinish = make(map[string]bool)
	h.resultSaved = false
	h.stoppedEarly = false
	h.pendingPhoto = nil
	h.publish(logging.Event{
		Type:      logging.EventRosterLoaded,
		RaceState: race.State().String(),
		Fields:    map[string]any{"seed": seed, "horses": len(horses)},
	})
}

func (h *Hub) publish(event logging.Event) {
	event.Tick = h.tick.Load()
	h.publisher.Publish(context.Background(), event)
}

// ImportConfig validates a raw race file and, when valid, replaces the
// active race wholesale. The current race is untouched on any failure.
func (h *Hub) ImportConfig(raw []byte) []config.Issue {
	file, issues := config.Validate(raw)
	if len(issues) > 0 {
		return issues
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.installRace(file.RaceSeed, file.Roster())
	return nil
}

// LoadFile replaces the active race with an already-validated race file.
func (h *Hub) LoadFile(file config.RaceFile) error {
	if issues := config.CheckFile(file); len(issues) > 0 {
		return &config.IssueError{Issues: issues}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.installRace(file.RaceSeed, file.Roster())
	return nil
}

// ExportConfig serializes the active seed and roster as a race file.
func (h *Hub) ExportConfig() ([]byte, error) {
	h.mu.Lock()
	seed := h.race.Seed()
	horses := h.race.Horses()
	h.mu.Unlock()
	return config.Export(seed, horses)
}

// CurrentFile returns the active configuration as a race file value.
func (h *Hub) CurrentFile() config.RaceFile {
	h.mu.Lock()
	defer h.mu.Unlock()
	return config.FromRoster(h.race.Seed(), h.race.Horses())
}

// StartRace begins the countdown. It fails unless the race is idle.
func (h *Hub) StartRace() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.race.Start(); err != nil {
		return err
	}
	h.publish(logging.Event{Type: logging.EventCountdownStarted, RaceState: h.race.State().String()})
	return nil
}

// StopRace cuts the race to finished. Safe in any state.
func (h *Hub) StopRace() {
	h.mu.Lock()
	defer h.mu.Unlock()
	before := h.race.State()
	h.race.Stop()
	if before != h.race.State() {
		h.stoppedEarly = true
		h.publish(logging.Event{Type: logging.EventRaceStopped, RaceState: h.race.State().String()})
	}
}

// ResetRace returns the race to idle with the same roster and seed.
func (h *Hub) ResetRace() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.race.Reset()
	h.announcedFinish = make(map[string]bool)
	h.resultSaved = false
	h.stoppedEarly = false
	h.pendingPhoto = nil
	h.publish(logging.Event{Type: logging.EventRaceReset, RaceState: h.race.State().String()})
}

// Snapshot returns the current state message without advancing anything.
func (h *Hub) Snapshot() stateMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

// Leaderboard returns the current standings.
func (h *Hub) Leaderboard() []sim.Standing {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.race.Leaderboard()
}

// RaceState returns the current lifecycle phase.
func (h *Hub) RaceState() sim.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.race.State()
}

func (h *Hub) snapshotLocked() stateMessage {
	horses := h.race.Horses()
	views := make([]horseView, 0, len(horses))
	for _, horse := range horses {
		view := horseView{
			ID:        horse.ID,
			Name:      horse.Name,
			Stats:     horse.Stats,
			BaseSpeed: horse.BaseSpeed,
			Color:     horse.Color,
			Hat:       horse.Hat,
			Face:      horse.Face,
		}
		if eta, ok := h.race.EstimatedTime(horse.ID); ok {
			view.EstimatedTime = eta
		}
		views = append(views, view)
	}

	msg := stateMessage{
		Type:        "state",
		Tick:        h.tick.Load(),
		ServerTime:  time.Now().UnixMilli(),
		RaceState:   h.race.State().String(),
		RaceTime:    h.race.RaceTime(),
		TrackLength: h.race.TrackLength(),
		Seed:        h.race.Seed(),
		Horses:      views,
		Runners:     h.race.Runners(),
		Leaderboard: h.race.Leaderboard(),
	}
	if label, ok := h.race.CountdownLabel(); ok {
		msg.Countdown = label
	}
	return msg
}

// advance runs one tick and returns the messages to broadcast.
func (h *Hub) advance(dt float64) (stateMessage, *photoFinishMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	before := h.race.State()
	h.race.Update(dt)
	h.tick.Add(1)

	if before == sim.StateCountdown && h.race.State() == sim.StateRacing {
		h.publish(logging.Event{Type: logging.EventRaceStarted, RaceState: h.race.State().String()})
	}

	for _, snap := range h.race.Runners() {
		if snap.HasFinished && !h.announcedFinish[snap.ID] {
			h.announcedFinish[snap.ID] = true
			h.publish(logging.Event{
				Type:      logging.EventRunnerFinished,
				RaceState: h.race.State().String(),
				HorseID:   snap.ID,
				Fields:    map[string]any{"finishTime": snap.FinishTime},
			})
		}
	}

	if before == sim.StateRacing && h.race.State() == sim.StateFinished {
		h.publish(logging.Event{Type: logging.EventRaceFinished, RaceState: h.race.State().String()})
		h.recordResultLocked()
	}

	photo := h.pendingPhoto
	h.pendingPhoto = nil

	return h.snapshotLocked(), photo
}

// recordResultLocked persists the finished race exactly once. Races cut
// short by StopRace are not recorded.
func (h *Hub) recordResultLocked() {
	if h.results == nil || h.resultSaved || h.stoppedEarly {
		return
	}
	h.resultSaved = true
	id, err := h.results.SaveResult(store.RaceResult{
		Seed:        h.race.Seed(),
		TrackLength: h.race.TrackLength(),
		RaceTime:    h.race.RaceTime(),
		Standings:   h.race.Leaderboard(),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to record race result")
		return
	}
	h.log.Info().Str("resultId", id).Msg("race result recorded")
}

// RunSimulation drives the race at the fixed tick rate until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(tickRate)
			}
			last = now

			state, photo := h.advance(dt)
			h.broadcast(state)
			if photo != nil {
				h.broadcast(*photo)
			}
		}
	}
}

// Subscribe registers a websocket connection and sends it the current
// state so late joiners render immediately.
func (h *Hub) Subscribe(conn *websocket.Conn) (*subscriber, error) {
	sub := &subscriber{id: h.nextSub.Add(1), conn: conn}

	h.mu.Lock()
	initial := h.snapshotLocked()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	if err := sub.send(initial); err != nil {
		h.Unsubscribe(sub)
		return nil, err
	}
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its connection.
func (h *Hub) Unsubscribe(sub *subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	delete(h.subscribers, sub.id)
	h.mu.Unlock()
	sub.conn.Close()
}

func (sub *subscriber) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sub.conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) broadcast(payload any) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.send(payload); err != nil {
			h.log.Debug().Err(err).Uint64("subscriber", sub.id).Msg("dropping subscriber")
			h.Unsubscribe(sub)
		}
	}
}
