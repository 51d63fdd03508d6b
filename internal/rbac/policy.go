package rbac

import (
	"fmt"
	"strings"
)

// Level is the kind of capability a resource requires.
type Level string

const (
	// LevelAuthenticated admits any resolved user.
	LevelAuthenticated Level = "authenticated"
	// LevelAreas admits users whose effective areas intersect the required set.
	LevelAreas Level = "areas"
	// LevelDirector admits only users carrying the director sentinel area.
	LevelDirector Level = "director"
)

// ParseLevel validates a requirement level name.
func ParseLevel(raw string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelAuthenticated:
		return LevelAuthenticated, nil
	case LevelAreas:
		return LevelAreas, nil
	case LevelDirector:
		return LevelDirector, nil
	}
	return "", fmt.Errorf("rbac: unknown requirement %q", raw)
}

// Requirement is the capability attached to a resource.
type Requirement struct {
	Level Level
	Areas AreaSet
}

// Authenticated requires any resolved user.
func Authenticated() Requirement {
	return Requirement{Level: LevelAuthenticated}
}

// AnyArea requires membership in at least one of the given areas.
func AnyArea(areas ...Area) Requirement {
	return Requirement{Level: LevelAreas, Areas: NewAreaSet(areas...)}
}

// DirectorOnly requires the director sentinel area.
func DirectorOnly() Requirement {
	return Requirement{Level: LevelDirector}
}

func (r Requirement) String() string {
	if r.Level != LevelAreas {
		return string(r.Level)
	}
	parts := make([]string, 0, len(r.Areas))
	for _, a := range r.Areas.Slice() {
		parts = append(parts, string(a))
	}
	return "areas{" + strings.Join(parts, ",") + "}"
}

// Outcome classifies a decision.
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeUnauthenticated
	OutcomeForbidden
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// Decision is the result of one policy evaluation.
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Allowed reports whether access is granted.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

func allow(reason string) Decision {
	return Decision{Outcome: OutcomeAllow, Reason: reason}
}

func forbid(reason string) Decision {
	return Decision{Outcome: OutcomeForbidden, Reason: reason}
}

// Evaluate decides whether user may access a resource with the given requirement.
// It is a pure function of its arguments.
func Evaluate(user *User, req Requirement) Decision {
	if user == nil {
		return Decision{Outcome: OutcomeUnauthenticated, Reason: "no user"}
	}
	effective := user.EffectiveAreas()
	switch req.Level {
	case LevelAuthenticated:
		return allow("authenticated")
	case LevelAreas:
		if effective.Has(AreaDiretoria) {
			return allow("director")
		}
		if effective.Intersects(req.Areas) {
			return allow("area match")
		}
		return forbid("no matching area")
	case LevelDirector:
		if effective.Has(AreaDiretoria) {
			return allow("director")
		}
		return forbid("director only")
	}
	return forbid("unknown requirement")
}
