package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the mode of an allow-list dimension.
type Kind uint8

const (
	All Kind = iota
	None
	Subset
)

func (k Kind) String() string {
	switch k {
	case All:
		return "all"
	case None:
		return "none"
	case Subset:
		return "subset"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Set is a tri-state allow-list: everything, nothing, or the named subset.
type Set struct {
	Kind  Kind
	Names []string
}

// AllOf returns a set that allows every name.
func AllOf() Set {
	return Set{Kind: All}
}

// NoneOf returns a set that allows nothing.
func NoneOf() Set {
	return Set{Kind: None}
}

// SubsetOf returns a set allowing only names. An empty subset is None.
func SubsetOf(names ...string) Set {
	var out []string
	seen := make(map[string]bool)
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return NoneOf()
	}
	return Set{Kind: Subset, Names: out}
}

// Contains reports whether name is allowed by exact, case-insensitive
// comparison. Used for closed vocabularies such as sport names.
func (s Set) Contains(name string) bool {
	switch s.Kind {
	case All:
		return true
	case None:
		return false
	}
	for _, n := range s.Names {
		if strings.EqualFold(strings.TrimSpace(n), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// Allows reports whether name fuzzily matches any allowed name.
// See NameMatches for the rule.
func (s Set) Allows(name string) bool {
	switch s.Kind {
	case All:
		return true
	case None:
		return false
	}
	for _, n := range s.Names {
		if NameMatches(n, name) {
			return true
		}
	}
	return false
}

// Toggle flips name within universe. Removing a name from All expands to
// the universe minus that name, removing the last name yields None and
// selecting the whole universe collapses back to All.
func (s Set) Toggle(name string, universe []string) Set {
	var current []string
	switch s.Kind {
	case All:
		current = append(current, universe...)
	case Subset:
		current = append(current, s.Names...)
	}

	idx := -1
	for i, n := range current {
		if strings.EqualFold(n, name) {
			idx = i
			break
		}
	}
	if idx >= 0 {
		current = append(current[:idx], current[idx+1:]...)
	} else {
		current = append(current, name)
	}

	next := SubsetOf(current...)
	if next.Kind == Subset && len(universe) > 0 && coversUniverse(next, universe) {
		return AllOf()
	}
	return next
}

func coversUniverse(s Set, universe []string) bool {
	for _, u := range universe {
		if !s.Contains(u) {
			return false
		}
	}
	return true
}

// Label renders the set for humans, e.g. in /status.
func (s Set) Label(all, none string) string {
	switch s.Kind {
	case All:
		return all
	case None:
		return none
	}
	return strings.Join(s.Names, ", ")
}

// NameMatches is the fuzzy name rule shared by league and bookmaker checks:
// both sides are trimmed and lower-cased, then either one must contain the
// other. Empty names never match.
func NameMatches(a, b string) bool {
	a = normalizeName(a)
	b = normalizeName(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// --- Stored encodings ---

const (
	allSentinel  = "ALL"
	noneSentinel = "__NONE__"
)

// Encoding selects how a Set maps onto a stored JSON list.
type Encoding uint8

const (
	// EmptyMeansAll stores All as [] and None as ["__NONE__"] (sports, leagues).
	EmptyMeansAll Encoding = iota
	// EmptyMeansNone stores All as the bare string ALL and None as [] (bookmakers).
	EmptyMeansNone
)

// Encode renders s in the column format of e.
func (e Encoding) Encode(s Set) (string, error) {
	var list []string
	switch s.Kind {
	case All:
		if e == EmptyMeansNone {
			return allSentinel, nil
		}
		list = []string{}
	case None:
		if e == EmptyMeansNone {
			list = []string{}
		} else {
			list = []string{noneSentinel}
		}
	case Subset:
		list = s.Names
	default:
		return "", fmt.Errorf("encode set: unknown kind %d", s.Kind)
	}

	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode set: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored column value. Blank values decode to the
// encoding's empty meaning.
func (e Encoding) Decode(raw string) (Set, error) {
	raw = strings.TrimSpace(raw)
	if raw == allSentinel {
		return AllOf(), nil
	}
	if raw == "" {
		raw = "[]"
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return Set{}, fmt.Errorf("decode set: %w", err)
	}
	return e.fromList(list), nil
}

func (e Encoding) fromList(list []string) Set {
	for _, n := range list {
		if n == noneSentinel {
			return NoneOf()
		}
	}
	if len(list) == 0 {
		if e == EmptyMeansAll {
			return AllOf()
		}
		return NoneOf()
	}
	return SubsetOf(list...)
}

// EncodeLeagues renders the per-sport league map. Sports set to All are
// dropped since a missing entry already means All.
func EncodeLeagues(leagues map[string]Set) (string, error) {
	out := make(map[string][]string, len(leagues))
	for sport, s := range leagues {
		if s.Kind == All {
			continue
		}
		raw, err := EmptyMeansAll.Encode(s)
		if err != nil {
			return "", err
		}
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return "", fmt.Errorf("encode leagues: %w", err)
		}
		out[sport] = list
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode leagues: %w", err)
	}
	return string(data), nil
}

// DecodeLeagues parses the stored per-sport league map.
func DecodeLeagues(raw string) (map[string]Set, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}

	var stored map[string][]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode leagues: %w", err)
	}

	out := make(map[string]Set, len(stored))
	for sport, list := range stored {
		out[sport] = EmptyMeansAll.fromList(list)
	}
	return out, nil
}
