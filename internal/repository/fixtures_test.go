package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
	"github.com/iliyamo/theatre-box-office/internal/testutil"
)

type fixture struct {
	t            *testing.T
	ctx          context.Context
	db           *sql.DB
	genres       *repository.GenreRepo
	actors       *repository.ActorRepo
	plays        *repository.PlayRepo
	halls        *repository.HallRepo
	performances *repository.PerformanceRepo
	reservations *repository.ReservationRepo
	users        *repository.UserRepo
	tokens       *repository.TokenRepo
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	return &fixture{
		t:            t,
		ctx:          context.Background(),
		db:           db,
		genres:       repository.NewGenreRepo(db),
		actors:       repository.NewActorRepo(db),
		plays:        repository.NewPlayRepo(db),
		halls:        repository.NewHallRepo(db),
		performances: repository.NewPerformanceRepo(db),
		reservations: repository.NewReservationRepo(db),
		users:        repository.NewUserRepo(db),
		tokens:       repository.NewTokenRepo(db),
	}
}

func (f *fixture) genre(name string) model.Genre {
	g := model.Genre{Name: name}
	require.NoError(f.t, f.genres.Create(f.ctx, &g))
	return g
}

func (f *fixture) actor(first, last string) model.Actor {
	a := model.Actor{FirstName: first, LastName: last}
	require.NoError(f.t, f.actors.Create(f.ctx, &a))
	return a
}

func (f *fixture) play(title string, genres []uint64, actors []uint64) model.Play {
	p := model.Play{Title: title, Description: title + " description"}
	require.NoError(f.t, f.plays.Create(f.ctx, &p, genres, actors))
	return p
}

func (f *fixture) hall(name string, rows, seats int) model.TheatreHall {
	h := model.TheatreHall{Name: name, Rows: rows, SeatsInRow: seats}
	require.NoError(f.t, f.halls.Create(f.ctx, &h))
	return h
}

func (f *fixture) performance(playID, hallID uint64, at time.Time) model.Performance {
	p := model.Performance{PlayID: playID, TheatreHallID: hallID, ShowTime: at}
	require.NoError(f.t, f.performances.Create(f.ctx, &p))
	return p
}

func (f *fixture) user(email string) model.User {
	u := model.User{Email: email}
	require.NoError(f.t, f.users.Create(f.ctx, &u, "password123", bcrypt.MinCost))
	return u
}

// book stores a reservation with the given seats of one performance.
func (f *fixture) book(userID, performanceID uint64, at time.Time, seats ...model.Place) model.Reservation {
	tx, err := f.db.BeginTx(f.ctx, nil)
	require.NoError(f.t, err)
	defer func() { _ = tx.Rollback() }()

	res := model.Reservation{UserID: userID, CreatedAt: at}
	require.NoError(f.t, f.reservations.CreateTx(f.ctx, tx, &res))
	for _, s := range seats {
		tk := model.Ticket{Row: s.Row, Seat: s.Seat, PerformanceID: performanceID, ReservationID: res.ID}
		require.NoError(f.t, f.reservations.CreateTicketTx(f.ctx, tx, &tk))
		res.Tickets = append(res.Tickets, tk)
	}
	require.NoError(f.t, tx.Commit())
	return res
}

func titles(plays []model.Play) []string {
	out := make([]string, len(plays))
	for i, p := range plays {
		out[i] = p.Title
	}
	return out
}

var firstPage = repository.NewPage(1, 20)
