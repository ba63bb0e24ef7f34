package store

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ThatsOurJake/simhorse-racing/internal/config"
	"github.com/ThatsOurJake/simhorse-racing/internal/sim"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return s
}

func testRaceFile() config.RaceFile {
	return config.RaceFile{
		Version:  config.Version,
		RaceSeed: 42,
		Horses: []config.HorseEntry{
			{
				ID:        "h-1",
				Name:      "Thunderbolt",
				Stats:     config.StatsEntry{Speed: 0.9, Stamina: 0.4, Acceleration: 0.7},
				BaseSpeed: 9.1,
				Color:     0xAA33CC,
				Hat:       "top-hat",
				Face:      "determined",
			},
		},
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)

	file := testRaceFile()
	if err := s.SaveConfig("friday-night", file); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	saved, err := s.GetConfig("friday-night")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if saved.Name != "friday-night" {
		t.Fatalf("name mangled: %q", saved.Name)
	}
	if !reflect.DeepEqual(saved.File, file) {
		t.Fatalf("race file mangled in storage:\nsaved: %+v\nwant:  %+v", saved.File, file)
	}
}

func TestGetConfigMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetConfig("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveConfigRejectsInvalid(t *testing.T) {
	s := openTestStore(t)

	bad := testRaceFile()
	bad.Horses[0].Hat = "sombrero"
	if err := s.SaveConfig("bad", bad); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}

	if err := s.SaveConfig("", testRaceFile()); err == nil {
		t.Fatal("expected empty name to be rejected")
	}
}

func TestSaveConfigOverwrites(t *testing.T) {
	s := openTestStore(t)

	first := testRaceFile()
	if err := s.SaveConfig("slot", first); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	second := testRaceFile()
	second.RaceSeed = 1337
	if err := s.SaveConfig("slot", second); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}

	saved, err := s.GetConfig("slot")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if saved.File.RaceSeed != 1337 {
		t.Fatalf("overwrite lost: seed %d", saved.File.RaceSeed)
	}

	configs, err := s.ListConfigs()
	if err != nil {
		t.Fatalf("failed to list configs: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected one config after overwrite, got %d", len(configs))
	}
}

func TestResultsListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.SaveResult(RaceResult{
			RecordedAt:  base.Add(time.Duration(i) * time.Minute),
			Seed:        int64(i),
			TrackLength: 134,
			RaceTime:    15.5,
			Standings: []sim.Standing{
				{Position: 1, HorseID: "h-1", Name: "Thunderbolt", Progress: 134, HasFinished: true, FinishTime: 15.5},
			},
		})
		if err != nil {
			t.Fatalf("failed to save result %d: %v", i, err)
		}
	}

	results, err := s.ListResults()
	if err != nil {
		t.Fatalf("failed to list results: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i := 0; i < len(results)-1; i++ {
		if results[i].RecordedAt.Before(results[i+1].RecordedAt) {
			t.Fatalf("results not newest-first at %d", i)
		}
	}
	if results[0].Seed != 2 {
		t.Fatalf("newest result should be seed 2, got %d", results[0].Seed)
	}
}

func TestSaveResultAssignsID(t *testing.T) {
	s := openTestStore(t)

	id, err := s.SaveResult(RaceResult{Seed: 7, TrackLength: 134})
	if err != nil {
		t.Fatalf("failed to save result: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated id")
	}

	results, err := s.ListResults()
	if err != nil {
		t.Fatalf("failed to list results: %v", err)
	}
	if len(results) != 1 || results[0].ID != id {
		t.Fatalf("stored result id mismatch: %v", results)
	}
	if results[0].RecordedAt.IsZero() {
		t.Fatal("expected RecordedAt to be stamped")
	}
}
