package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

func TestPerformanceSummaryCountsTickets(t *testing.T) {
	f := newFixture(t)
	p := f.play("Hamlet", nil, nil)
	h := f.hall("Main", 10, 15)
	perf := f.performance(p.ID, h.ID, time.Date(2024, 12, 15, 19, 0, 0, 0, time.UTC))
	u := f.user("viewer@example.com")

	f.book(u.ID, perf.ID, time.Now(), model.Place{Row: 2, Seat: 3}, model.Place{Row: 1, Seat: 5}, model.Place{Row: 1, Seat: 2})

	sum, err := f.performances.GetSummary(f.ctx, perf.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, sum.Hall.Capacity())
	assert.Equal(t, 3, sum.TicketsSold)
	assert.Equal(t, 147, sum.TicketsAvailable())
	assert.Equal(t, "Hamlet", sum.PlayTitle)
	assert.True(t, sum.ShowTime.Equal(perf.ShowTime))

	places, err := f.performances.TakenPlaces(f.ctx, perf.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Place{{Row: 1, Seat: 2}, {Row: 1, Seat: 5}, {Row: 2, Seat: 3}}, places)
}

func TestPerformanceListFilters(t *testing.T) {
	f := newFixture(t)
	hamlet := f.play("Hamlet", nil, nil)
	lear := f.play("King Lear", nil, nil)
	h := f.hall("Main", 5, 5)

	early := f.performance(hamlet.ID, h.ID, time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC))
	late := f.performance(lear.ID, h.ID, time.Date(2024, 12, 15, 23, 30, 0, 0, time.UTC))
	next := f.performance(hamlet.ID, h.ID, time.Date(2024, 12, 16, 19, 0, 0, 0, time.UTC))
	// same instant expressed in another zone still lands on the UTC date
	other := f.performance(lear.ID, h.ID, time.Date(2024, 12, 14, 20, 0, 0, 0, time.FixedZone("EST", -5*3600)))

	day := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		filter repository.PerformanceFilter
		want   []uint64
	}{
		{"all, latest first", repository.PerformanceFilter{}, []uint64{next.ID, late.ID, other.ID, early.ID}},
		{"date", repository.PerformanceFilter{Date: &day}, []uint64{late.ID, other.ID, early.ID}},
		{"play", repository.PerformanceFilter{PlayID: hamlet.ID}, []uint64{next.ID, early.ID}},
		{"date and play", repository.PerformanceFilter{Date: &day, PlayID: lear.ID}, []uint64{late.ID, other.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, total, err := f.performances.List(f.ctx, tt.filter, firstPage)
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), total)
			got := make([]uint64, len(list))
			for i, ps := range list {
				got[i] = ps.ID
				assert.Equal(t, time.UTC, ps.ShowTime.Location())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPerformanceInvalidReference(t *testing.T) {
	f := newFixture(t)
	h := f.hall("Main", 5, 5)

	p := model.Performance{PlayID: 999, TheatreHallID: h.ID, ShowTime: time.Now()}
	assert.ErrorIs(t, f.performances.Create(f.ctx, &p), repository.ErrInvalidReference)

	_, err := f.performances.GetSummary(f.ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDuplicateTicketRejected(t *testing.T) {
	f := newFixture(t)
	p := f.play("Hamlet", nil, nil)
	h := f.hall("Main", 5, 5)
	perf := f.performance(p.ID, h.ID, time.Now())
	u := f.user("viewer@example.com")
	f.book(u.ID, perf.ID, time.Now(), model.Place{Row: 1, Seat: 1})

	tx, err := f.db.BeginTx(f.ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	taken, err := f.reservations.SeatTakenTx(f.ctx, tx, perf.ID, 1, 1)
	require.NoError(t, err)
	assert.True(t, taken)

	res := model.Reservation{UserID: u.ID, CreatedAt: time.Now()}
	require.NoError(t, f.reservations.CreateTx(f.ctx, tx, &res))
	tk := model.Ticket{Row: 1, Seat: 1, PerformanceID: perf.ID, ReservationID: res.ID}
	assert.ErrorIs(t, f.reservations.CreateTicketTx(f.ctx, tx, &tk), repository.ErrDuplicate)
}

func TestReservationsScopedToUser(t *testing.T) {
	f := newFixture(t)
	p := f.play("Hamlet", nil, nil)
	h := f.hall("Main", 5, 5)
	perf := f.performance(p.ID, h.ID, time.Date(2024, 12, 15, 19, 0, 0, 0, time.UTC))
	alice := f.user("alice@example.com")
	bob := f.user("bob@example.com")

	older := f.book(alice.ID, perf.ID, time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC), model.Place{Row: 1, Seat: 1})
	newer := f.book(alice.ID, perf.ID, time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC), model.Place{Row: 2, Seat: 2}, model.Place{Row: 1, Seat: 2})
	bobs := f.book(bob.ID, perf.ID, time.Date(2024, 12, 3, 10, 0, 0, 0, time.UTC), model.Place{Row: 3, Seat: 3})

	list, total, err := f.reservations.ListByUser(f.ctx, alice.ID, firstPage)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	require.Len(t, list[0].Tickets, 2)
	first := list[0].Tickets[0]
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, 2, first.Seat)
	require.NotNil(t, first.Performance)
	assert.Equal(t, "Hamlet", first.Performance.PlayTitle)
	assert.Equal(t, 4, first.Performance.TicketsSold)

	_, err = f.reservations.GetForUser(f.ctx, bobs.ID, alice.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := f.reservations.GetForUser(f.ctx, bobs.ID, bob.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tickets, 1)
}

func TestUserEmailUniqueCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	u := f.user("Alice@Example.com ")
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role())

	dup := model.User{Email: "ALICE@example.com"}
	assert.ErrorIs(t, f.users.Create(f.ctx, &dup, "password123", 4), repository.ErrDuplicate)

	got, err := f.users.GetByEmail(f.ctx, "  ALICE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)

	require.NoError(t, f.users.SetFlags(f.ctx, u.ID, true, false))
	got, err = f.users.GetByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, got.Role())

	_, err = f.users.GetByID(f.ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRefreshTokenRotation(t *testing.T) {
	f := newFixture(t)
	u := f.user("alice@example.com")
	exp := time.Now().Add(time.Hour)

	require.NoError(t, f.tokens.StoreRefresh(f.ctx, u.ID, "old", exp))
	id, err := f.tokens.ValidateRefresh(f.ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	require.NoError(t, f.tokens.RotateRefresh(f.ctx, u.ID, "old", "new", exp))
	_, err = f.tokens.ValidateRefresh(f.ctx, "old")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, f.tokens.RotateRefresh(f.ctx, u.ID, "old", "newer", exp), repository.ErrNotFound)

	require.NoError(t, f.tokens.StoreRefresh(f.ctx, u.ID, "expired", time.Now().Add(-time.Minute)))
	_, err = f.tokens.ValidateRefresh(f.ctx, "expired")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, f.tokens.RevokeAllForUser(f.ctx, u.ID))
	_, err = f.tokens.ValidateRefresh(f.ctx, "new")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
