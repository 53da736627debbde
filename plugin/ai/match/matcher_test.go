package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/coworkr/store"
)

func members(names ...[2]string) []*store.TeamMember {
	out := make([]*store.TeamMember, 0, len(names))
	for i, n := range names {
		out = append(out, &store.TeamMember{ID: string(rune('a' + i)), FirstName: n[0], LastName: n[1]})
	}
	return out
}

func TestMember_FirstMatchWins(t *testing.T) {
	roster := members([2]string{"David", "Lee"}, [2]string{"David", "Kim"})

	for i := 0; i < 5; i++ {
		m, err := Member("david", roster)
		require.NoError(t, err)
		assert.Equal(t, "David Lee", m.FullName())
	}

	_, rule, err := Find("david", roster, func(m *store.TeamMember) Names {
		return Names{Full: m.FullName(), Parts: []string{m.FirstName, m.LastName}}
	})
	require.NoError(t, err)
	assert.Equal(t, RuleSubstring, rule)
}

func TestMember_Precedence(t *testing.T) {
	roster := members(
		[2]string{"Anna", "Bell"},
		[2]string{"Ann", ""},
		[2]string{"Sarah", "Connor"},
	)

	tests := []struct {
		name  string
		query string
		want  string
		rule  Rule
	}{
		{"exact beats earlier substring", "ann", "Ann", RuleExact},
		{"case insensitive exact", "SARAH CONNOR", "Sarah Connor", RuleExact},
		{"candidate inside query", "please ask sarah connor", "Sarah Connor", RuleSubstring},
		{"query inside candidate", "conn", "Sarah Connor", RuleSubstring},
		{"surrounding whitespace", "  bell ", "Anna Bell", RuleSubstring},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, rule, err := Find(tt.query, roster, func(m *store.TeamMember) Names {
				return Names{Full: m.FullName(), Parts: []string{m.FirstName, m.LastName}}
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.FullName())
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestFind_PrefixOnComponents(t *testing.T) {
	type person struct{ display, first, last string }
	people := []person{{"Dr. K", "Katherine", "Johnson"}}

	got, rule, err := Find("kath", people, func(p person) Names {
		return Names{Full: p.display, Parts: []string{p.first, p.last}}
	})
	require.NoError(t, err)
	assert.Equal(t, RulePrefix, rule)
	assert.Equal(t, "Katherine", got.first)
}

func TestFind_ShortQueryRejected(t *testing.T) {
	roster := members([2]string{"D", "Lee"}, [2]string{"David", "Kim"}, [2]string{"Émile", "Zola"})

	for _, q := range []string{"", " ", "d", "  D  ", "é", "É"} {
		t.Run(q, func(t *testing.T) {
			called := false
			_, rule, err := Find(q, roster, func(m *store.TeamMember) Names {
				called = true
				return Names{Full: m.FullName()}
			})
			assert.ErrorIs(t, err, ErrQueryTooShort)
			assert.Equal(t, RuleNone, rule)
			assert.False(t, called)
		})
	}
}

func TestFind_NoMatch(t *testing.T) {
	m, err := Member("zed", members([2]string{"David", "Lee"}))
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Nil(t, m)
}

func TestTaskAndEvent(t *testing.T) {
	tasks := []*store.Task{{Title: "Send invoice"}, {Title: "Review the proposal"}, {Title: "Proposal follow-up"}}
	task, err := Task("proposal", tasks)
	require.NoError(t, err)
	assert.Equal(t, "Review the proposal", task.Title)

	events := []*store.Event{{Title: "Standup"}, {Title: "Design review"}}
	event, rule, err := Event("design review", events)
	require.NoError(t, err)
	assert.Equal(t, RuleExact, rule)
	assert.Equal(t, "Design review", event.Title)
}
