package store

import "strings"

// TeamMember is a roster entry. A member's ID doubles as their caller
// identity, so records written for a member use it as the owner.
type TeamMember struct {
	ID        string `json:"id" yaml:"id"`
	TeamID    string `json:"teamId" yaml:"teamId"`
	FirstName string `json:"firstName" yaml:"firstName"`
	LastName  string `json:"lastName" yaml:"lastName"`
	Email     string `json:"email" yaml:"email"`
	Title     string `json:"title" yaml:"title"`
	Role      string `json:"role" yaml:"role"`
}

// FullName joins first and last name.
func (m *TeamMember) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// FindTeamMember selects roster entries. Nil fields are ignored.
type FindTeamMember struct {
	ID     *string
	TeamID *string
}
