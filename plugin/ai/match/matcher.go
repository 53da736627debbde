// Package match resolves spoken name fragments against records.
//
// Rules are applied in a fixed order and the first rule that matches any
// candidate wins. Within a rule the first candidate in iteration order is
// returned; there is no similarity ranking.
package match

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/hrygo/coworkr/store"
)

// MinQueryLength is the shortest query that is matched at all.
const MinQueryLength = 2

var (
	// ErrQueryTooShort means the name fragment was too short to resolve.
	ErrQueryTooShort = errors.New("query too short")
	// ErrNoMatch means no candidate satisfied any rule.
	ErrNoMatch = errors.New("no match")
)

// Rule identifies which rule produced a match.
type Rule int

const (
	RuleNone Rule = iota
	RuleExact
	RuleSubstring
	RulePrefix
)

func (r Rule) String() string {
	switch r {
	case RuleExact:
		return "exact"
	case RuleSubstring:
		return "substring"
	case RulePrefix:
		return "prefix"
	default:
		return "none"
	}
}

// Names describes the name-bearing fields of a candidate. Full is the text
// used for exact and substring matching; Parts are the components checked
// by the prefix rule. When Parts is empty, Full is split on whitespace.
type Names struct {
	Full  string
	Parts []string
}

// Find returns the first candidate matched by the highest-precedence rule.
func Find[T any](query string, candidates []T, names func(T) Names) (T, Rule, error) {
	var zero T
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < MinQueryLength {
		return zero, RuleNone, ErrQueryTooShort
	}

	normalized := make([]Names, len(candidates))
	for i, c := range candidates {
		n := names(c)
		n.Full = strings.ToLower(strings.TrimSpace(n.Full))
		if len(n.Parts) == 0 {
			n.Parts = strings.Fields(n.Full)
		}
		parts := make([]string, len(n.Parts))
		for j, p := range n.Parts {
			parts[j] = strings.ToLower(strings.TrimSpace(p))
		}
		n.Parts = parts
		normalized[i] = n
	}

	for i, n := range normalized {
		if n.Full != "" && n.Full == q {
			return candidates[i], RuleExact, nil
		}
	}
	for i, n := range normalized {
		if n.Full == "" {
			continue
		}
		if strings.Contains(n.Full, q) || (utf8.RuneCountInString(n.Full) >= MinQueryLength && strings.Contains(q, n.Full)) {
			return candidates[i], RuleSubstring, nil
		}
	}
	for i, n := range normalized {
		for _, p := range n.Parts {
			if p != "" && strings.HasPrefix(p, q) {
				return candidates[i], RulePrefix, nil
			}
		}
	}
	return zero, RuleNone, ErrNoMatch
}

// Member matches a person's name against a team roster. The query is compared
// with the full name, the first name and the last name.
func Member(query string, members []*store.TeamMember) (*store.TeamMember, error) {
	m, _, err := Find(query, members, func(m *store.TeamMember) Names {
		return Names{Full: m.FullName(), Parts: []string{m.FirstName, m.LastName}}
	})
	return m, err
}

// Task matches a title fragment against tasks.
func Task(query string, tasks []*store.Task) (*store.Task, error) {
	t, _, err := Find(query, tasks, func(t *store.Task) Names {
		return Names{Full: t.Title}
	})
	return t, err
}

// Event matches a title fragment against events.
func Event(query string, events []*store.Event) (*store.Event, Rule, error) {
	return Find(query, events, func(e *store.Event) Names {
		return Names{Full: e.Title}
	})
}
