package rbac

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Area is an organizational category drawn from a closed enumeration.
type Area string

// Known areas. AreaDiretoria is the director sentinel.
const (
	AreaDiretoria  Area = "DIRETORIA"
	AreaGeral      Area = "GERAL"
	AreaOperacoes  Area = "OPERACOES"
	AreaFinanceiro Area = "FINANCEIRO"
	AreaPessoas    Area = "PESSOAS"
	AreaMercado    Area = "MERCADO"
	AreaProjetos   Area = "PROJETOS"
)

var knownAreas = map[Area]struct{}{
	AreaDiretoria:  {},
	AreaGeral:      {},
	AreaOperacoes:  {},
	AreaFinanceiro: {},
	AreaPessoas:    {},
	AreaMercado:    {},
	AreaProjetos:   {},
}

// normalize strips diacritics and upper-cases input, so "Operações" becomes
// "OPERACOES". Transformers are stateful, so a chain is built per call.
func normalize(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Upper(language.Und))
	out, _, err := transform.String(t, strings.TrimSpace(raw))
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(raw))
	}
	return out
}

// Areas lists every known area in a stable order.
func Areas() []Area {
	out := make([]Area, 0, len(knownAreas))
	for a := range knownAreas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseArea normalises raw input into a known Area.
func ParseArea(raw string) (Area, error) {
	area := Area(normalize(raw))
	if _, ok := knownAreas[area]; !ok {
		return "", fmt.Errorf("rbac: unknown area %q", raw)
	}
	return area, nil
}

// Valid reports whether a is part of the enumeration.
func (a Area) Valid() bool {
	_, ok := knownAreas[a]
	return ok
}

// AreaSet is an unordered set of areas.
type AreaSet map[Area]struct{}

// NewAreaSet builds a set from the provided areas, skipping unknown values.
func NewAreaSet(areas ...Area) AreaSet {
	set := make(AreaSet, len(areas))
	for _, a := range areas {
		if a.Valid() {
			set[a] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s AreaSet) Has(a Area) bool {
	_, ok := s[a]
	return ok
}

// Intersects reports whether s and other share at least one area.
func (s AreaSet) Intersects(other AreaSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for a := range small {
		if large.Has(a) {
			return true
		}
	}
	return false
}

// Slice returns the areas sorted alphabetically.
func (s AreaSet) Slice() []Area {
	out := make([]Area, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MembershipStatus tracks whether a user still belongs to the organization.
type MembershipStatus string

const (
	StatusActive   MembershipStatus = "ATIVO"
	StatusExMember MembershipStatus = "EX_MEMBRO"
)

// ParseMembershipStatus validates a status value.
func ParseMembershipStatus(raw string) (MembershipStatus, error) {
	switch MembershipStatus(normalize(raw)) {
	case StatusActive:
		return StatusActive, nil
	case StatusExMember:
		return StatusExMember, nil
	}
	return "", fmt.Errorf("rbac: unknown membership status %q", raw)
}

// Role is a named permission group spanning one or more areas.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Areas       []Area `json:"areas"`
}

// User is the identity resolved for a request.
type User struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Role         Role             `json:"role"`
	Status       MembershipStatus `json:"status"`
	LastActiveAt time.Time        `json:"lastActiveAt"`
}

// EffectiveAreas returns the union of the current role's areas. A nil user has none.
func (u *User) EffectiveAreas() AreaSet {
	if u == nil {
		return AreaSet{}
	}
	return NewAreaSet(u.Role.Areas...)
}

// IsDirector reports whether the user carries the director sentinel area.
func (u *User) IsDirector() bool {
	return u.EffectiveAreas().Has(AreaDiretoria)
}
