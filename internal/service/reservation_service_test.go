package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/queue"
	"github.com/iliyamo/theatre-box-office/internal/repository"
	"github.com/iliyamo/theatre-box-office/internal/service"
	"github.com/iliyamo/theatre-box-office/internal/testutil"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

type env struct {
	ctx    context.Context
	db     *sql.DB
	svc    *service.ReservationService
	pub    *mockPublisher
	perfs  *repository.PerformanceRepo
	userID uint64
	perfID uint64
}

// setup creates one performance in a 10x15 hall and a user.
func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewDB(t)

	play := model.Play{Title: "Hamlet"}
	require.NoError(t, repository.NewPlayRepo(db).Create(ctx, &play, nil, nil))
	hall := model.TheatreHall{Name: "Main", Rows: 10, SeatsInRow: 15}
	require.NoError(t, repository.NewHallRepo(db).Create(ctx, &hall))
	perfs := repository.NewPerformanceRepo(db)
	perf := model.Performance{PlayID: play.ID, TheatreHallID: hall.ID, ShowTime: time.Date(2024, 12, 15, 19, 0, 0, 0, time.UTC)}
	require.NoError(t, perfs.Create(ctx, &perf))
	user := model.User{Email: "viewer@example.com"}
	require.NoError(t, repository.NewUserRepo(db).Create(ctx, &user, "password123", bcrypt.MinCost))

	pub := &mockPublisher{}
	svc := service.NewReservationService(db, repository.NewReservationRepo(db), perfs, pub, nil)
	return &env{ctx: ctx, db: db, svc: svc, pub: pub, perfs: perfs, userID: user.ID, perfID: perf.ID}
}

func (e *env) ticketCount(t *testing.T) int {
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM tickets`).Scan(&n))
	return n
}

func (e *env) reservationCount(t *testing.T) int {
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM reservations`).Scan(&n))
	return n
}

func TestCreateReservation(t *testing.T) {
	e := setup(t)
	e.pub.On("PublishReservationCreated", mock.Anything, mock.MatchedBy(func(ev queue.ReservationCreatedEvent) bool {
		return ev.UserID == e.userID && len(ev.Tickets) == 3 && ev.Tickets[0].PlayTitle == "Hamlet" && ev.EventID != ""
	})).Return(nil).Once()

	res, err := e.svc.Create(e.ctx, e.userID, []service.TicketRequest{
		{PerformanceID: e.perfID, Row: 1, Seat: 3},
		{PerformanceID: e.perfID, Row: 1, Seat: 1},
		{PerformanceID: e.perfID, Row: 10, Seat: 15},
	})
	require.NoError(t, err)
	assert.Equal(t, e.userID, res.UserID)
	require.Len(t, res.Tickets, 3)
	assert.Equal(t, 1, res.Tickets[0].Seat)
	assert.Equal(t, 147, res.Tickets[0].Performance.TicketsAvailable())
	e.pub.AssertExpectations(t)

	sum, err := e.perfs.GetSummary(e.ctx, e.perfID)
	require.NoError(t, err)
	assert.Equal(t, 150, sum.Hall.Capacity())
	assert.Equal(t, 147, sum.TicketsAvailable())
}

func TestCreateReservationRequiresTickets(t *testing.T) {
	e := setup(t)

	_, err := e.svc.Create(e.ctx, e.userID, nil)

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.TypeValidation, appErr.Type)
	assert.Contains(t, appErr.Fields, "tickets")
	assert.Zero(t, e.reservationCount(t))
}

func TestCreateReservationIsAtomic(t *testing.T) {
	tests := []struct {
		name    string
		tickets func(perfID uint64) []service.TicketRequest
		field   string
		message string
	}{
		{
			name: "row out of range",
			tickets: func(p uint64) []service.TicketRequest {
				return []service.TicketRequest{{p, 1, 1}, {p, 11, 1}}
			},
			field:   "tickets[1].row",
			message: "row number must be in available range: (1, rows): (1, 10)",
		},
		{
			name: "seat out of range",
			tickets: func(p uint64) []service.TicketRequest {
				return []service.TicketRequest{{p, 1, 1}, {p, 2, 2}, {p, 1, 0}}
			},
			field:   "tickets[2].seat",
			message: "seat number must be in available range: (1, seats_in_row): (1, 15)",
		},
		{
			name: "unknown performance",
			tickets: func(p uint64) []service.TicketRequest {
				return []service.TicketRequest{{p, 1, 1}, {p + 100, 1, 1}}
			},
			field: "tickets[1].performance",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)

			_, err := e.svc.Create(e.ctx, e.userID, tt.tickets(e.perfID))

			appErr, ok := apperror.From(err)
			require.True(t, ok, err)
			assert.Equal(t, apperror.TypeValidation, appErr.Type)
			require.Contains(t, appErr.Fields, tt.field)
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Fields[tt.field])
			}
			assert.Zero(t, e.ticketCount(t))
			assert.Zero(t, e.reservationCount(t))
			e.pub.AssertNotCalled(t, "PublishReservationCreated", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateReservationSeatConflicts(t *testing.T) {
	e := setup(t)
	e.pub.On("PublishReservationCreated", mock.Anything, mock.Anything).Return(nil)

	_, err := e.svc.Create(e.ctx, e.userID, []service.TicketRequest{{e.perfID, 5, 5}})
	require.NoError(t, err)

	_, err = e.svc.Create(e.ctx, e.userID, []service.TicketRequest{{e.perfID, 4, 4}, {e.perfID, 5, 5}})
	assert.True(t, apperror.IsConflict(err), err)
	assert.Contains(t, err.Error(), "seat row 5, seat 5")

	_, err = e.svc.Create(e.ctx, e.userID, []service.TicketRequest{{e.perfID, 6, 6}, {e.perfID, 6, 6}})
	assert.True(t, apperror.IsConflict(err), err)

	assert.Equal(t, 1, e.ticketCount(t))
	assert.Equal(t, 1, e.reservationCount(t))
}

func TestConcurrentIdenticalBookings(t *testing.T) {
	e := setup(t)
	e.pub.On("PublishReservationCreated", mock.Anything, mock.Anything).Return(nil)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.svc.Create(e.ctx, e.userID, []service.TicketRequest{{e.perfID, 3, 7}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperror.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, e.ticketCount(t))
}

func TestPublishFailureDoesNotFailReservation(t *testing.T) {
	e := setup(t)
	e.pub.On("PublishReservationCreated", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	res, err := e.svc.Create(e.ctx, e.userID, []service.TicketRequest{{e.perfID, 1, 1}})
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Equal(t, 1, e.ticketCount(t))
	e.pub.AssertExpectations(t)
}

func TestGetScopedToOwner(t *testing.T) {
	e := setup(t)
	e.pub.On("PublishReservationCreated", mock.Anything, mock.Anything).Return(nil)
	res, err := e.svc.Create(e.ctx, e.userID, []service.TicketRequest{{e.perfID, 1, 1}})
	require.NoError(t, err)

	got, err := e.svc.Get(e.ctx, res.ID, e.userID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = e.svc.Get(e.ctx, res.ID, e.userID+1)
	assert.True(t, apperror.IsNotFound(err))

	list, total, err := e.svc.List(e.ctx, e.userID, repository.NewPage(1, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}
