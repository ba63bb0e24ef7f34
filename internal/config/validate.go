package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ThatsOurJake/simhorse-racing/internal/sim"
)

// Issue is one field-level validation failure. Path is JSON-path style
// ("horses[2].stats.speed") so a form can highlight the offending input.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// IssueError carries validation issues through an error return.
type IssueError struct {
	Issues []Issue
}

func (e *IssueError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "config: invalid race file"
	}
	msg := "config: invalid race file: " + e.Issues[0].String()
	if len(e.Issues) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Issues)-1)
	}
	return msg
}

func issuef(path, format string, args ...any) Issue {
	return Issue{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Validate parses and checks a raw race file. It never panics past its
// boundary: any failure, including malformed JSON, comes back as issues,
// and the returned file is only meaningful when issues is empty.
func Validate(raw []byte) (RaceFile, []Issue) {
	var file RaceFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return RaceFile{}, []Issue{decodeIssue(err)}
	}
	if issues := CheckFile(file); len(issues) > 0 {
		return RaceFile{}, issues
	}
	return file, nil
}

// decodeIssue turns a json decoding error into a path-qualified issue.
func decodeIssue(err error) Issue {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := "$"
		if typeErr.Field != "" {
			path = typeErr.Field
		}
		return issuef(path, "expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return issuef("$", "malformed JSON at offset %d: %v", syntaxErr.Offset, syntaxErr)
	}
	return issuef("$", "malformed JSON: %v", err)
}

// CheckFile validates an already-decoded race file against the schema.
func CheckFile(file RaceFile) []Issue {
	var issues []Issue

	if file.Version != Version {
		issues = append(issues, issuef("version", "must be %q, got %q", Version, file.Version))
	}

	switch {
	case len(file.Horses) < MinHorses:
		issues = append(issues, issuef("horses", "need at least %d horse", MinHorses))
	case len(file.Horses) > MaxHorses:
		issues = append(issues, issuef("horses", "at most %d horses allowed, got %d", MaxHorses, len(file.Horses)))
	}

	seen := make(map[string]int, len(file.Horses))
	for i, h := range file.Horses {
		prefix := fmt.Sprintf("horses[%d]", i)

		if strings.TrimSpace(h.ID) == "" {
			issues = append(issues, issuef(prefix+".id", "must not be empty"))
		} else if prev, dup := seen[h.ID]; dup {
			issues = append(issues, issuef(prefix+".id", "duplicates horses[%d].id %q", prev, h.ID))
		} else {
			seen[h.ID] = i
		}

		if strings.TrimSpace(h.Name) == "" {
			issues = append(issues, issuef(prefix+".name", "must not be empty"))
		}

		issues = appendStatIssue(issues, prefix+".stats.speed", h.Stats.Speed)
		issues = appendStatIssue(issues, prefix+".stats.stamina", h.Stats.Stamina)
		issues = appendStatIssue(issues, prefix+".stats.acceleration", h.Stats.Acceleration)

		if h.BaseSpeed < sim.BaseSpeedMin || h.BaseSpeed > sim.BaseSpeedMax {
			issues = append(issues, issuef(prefix+".baseSpeed", "must be within [%v, %v], got %v", sim.BaseSpeedMin, sim.BaseSpeedMax, h.BaseSpeed))
		}

		if h.Color > MaxColor {
			issues = append(issues, issuef(prefix+".color", "must be a 24-bit RGB value (0..%d), got %d", MaxColor, h.Color))
		}

		if !containsTag(Hats, h.Hat) {
			issues = append(issues, issuef(prefix+".hat", "unknown hat %q, expected one of %s", h.Hat, strings.Join(Hats, ", ")))
		}
		if !containsTag(Faces, h.Face) {
			issues = append(issues, issuef(prefix+".face", "unknown face %q, expected one of %s", h.Face, strings.Join(Faces, ", ")))
		}
	}

	return issues
}

func appendStatIssue(issues []Issue, path string, v float64) []Issue {
	if v < 0 || v > 1 || v != v {
		return append(issues, issuef(path, "must be within [0, 1], got %v", v))
	}
	return issues
}

func containsTag(set []string, tag string) bool {
	for _, s := range set {
		if s == tag {
			return true
		}
	}
	return false
}

// ClampStat forces an interactively edited trait back into [0,1]. NaN maps
// to 0 so form input never poisons a roster.
func ClampStat(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampBaseSpeed forces a base speed into the legal range; NaN maps to the
// minimum.
func ClampBaseSpeed(v float64) float64 {
	if v != v || v < sim.BaseSpeedMin {
		return sim.BaseSpeedMin
	}
	if v > sim.BaseSpeedMax {
		return sim.BaseSpeedMax
	}
	return v
}
