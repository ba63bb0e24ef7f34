package sim

import "sort"

// Standing is one leaderboard row.
type Standing struct {
	Position    int     `json:"position"`
	HorseID     string  `json:"horseId"`
	Name        string  `json:"name"`
	Progress    float64 `json:"progress"`
	HasFinished bool    `json:"hasFinished"`
	FinishTime  float64 `json:"finishTime,omitempty"`
}

// Leaderboard derives the current standings from runner state. It holds no
// state of its own and is safe to call at any phase of the race.
//
// Ordering: finished runners first, ascending finish time; then unfinished
// runners, descending progress. The sort is stable, so exact progress ties
// keep roster order rather than inventing a tie-break.
func (r *Race) Leaderboard() []Standing {
	if r == nil {
		return nil
	}
	standings := make([]Standing, 0, len(r.runners))
	for _, run := range r.runners {
		s := Standing{
			HorseID:     run.ID,
			Name:        run.Name,
			Progress:    run.progress,
			HasFinished: run.hasFinished,
		}
		if run.hasFinished {
			s.FinishTime = run.finishTime
		}
		standings = append(standings, s)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.HasFinished != b.HasFinished {
			return a.HasFinished
		}
		if a.HasFinished {
			return a.FinishTime < b.FinishTime
		}
		return a.Progress > b.Progress
	})

	for i := range standings {
		standings[i].Position = i + 1
	}
	return standings
}
