package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTicketBounds(t *testing.T) {
	hall := TheatreHall{Rows: 10, SeatsInRow: 15}

	tests := []struct {
		name      string
		row, seat int
		field     string
	}{
		{"first seat", 1, 1, ""},
		{"last seat", 10, 15, ""},
		{"middle", 5, 7, ""},
		{"row zero", 0, 1, "row"},
		{"row past end", 11, 1, "row"},
		{"negative row", -1, 1, "row"},
		{"seat zero", 1, 0, "seat"},
		{"seat past end", 1, 16, "seat"},
		{"both invalid reports row", 0, 0, "row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTicket(tt.row, tt.seat, hall)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var rangeErr *RangeError
			require.ErrorAs(t, err, &rangeErr)
			assert.Equal(t, tt.field, rangeErr.Field)
		})
	}
}

func TestRangeErrorMessage(t *testing.T) {
	hall := TheatreHall{Rows: 10, SeatsInRow: 20}

	assert.EqualError(t, ValidateTicket(11, 1, hall),
		"row number must be in available range: (1, rows): (1, 10)")
	assert.EqualError(t, ValidateTicket(1, 21, hall),
		"seat number must be in available range: (1, seats_in_row): (1, 20)")
}

func TestCapacityAndAvailability(t *testing.T) {
	hall := TheatreHall{Rows: 10, SeatsInRow: 15}
	assert.Equal(t, 150, hall.Capacity())

	summary := PerformanceSummary{Hall: hall, TicketsSold: 3}
	assert.Equal(t, 147, summary.TicketsAvailable())
}

func TestPlayNames(t *testing.T) {
	p := Play{
		Genres: []Genre{{Name: "Drama"}, {Name: "Tragedy"}},
		Actors: []Actor{{FirstName: "Ian", LastName: "McKellen"}},
	}

	assert.Equal(t, []string{"Drama", "Tragedy"}, p.GenreNames())
	assert.Equal(t, []string{"Ian McKellen"}, p.ActorNames())
	assert.Empty(t, Play{}.GenreNames())
}

func TestUserRole(t *testing.T) {
	assert.Equal(t, RoleUser, User{}.Role())
	assert.Equal(t, RoleStaff, User{IsStaff: true}.Role())
	assert.Equal(t, RoleAdmin, User{IsStaff: true, IsSuperuser: true}.Role())
	assert.Equal(t, RoleAdmin, User{IsSuperuser: true}.Role())

	assert.True(t, IsStaffRole(RoleAdmin))
	assert.True(t, IsStaffRole(RoleStaff))
	assert.False(t, IsStaffRole(RoleUser))
}
