package model

import "strings"

// Actor is a performer that can be cast in many plays.
type Actor struct {
	ID        uint64 // actors.id
	FirstName string // actors.first_name
	LastName  string // actors.last_name
}

// FullName is "first last", used in list views and event payloads.
func (a Actor) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
