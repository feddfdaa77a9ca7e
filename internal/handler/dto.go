package handler

import (
	"time"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

// mediaURLer turns a stored image key into a public URL.
type mediaURLer interface {
	URL(key string) string
}

func imageURL(m mediaURLer, key *string) *string {
	if key == nil || *key == "" || m == nil {
		return nil
	}
	u := m.URL(*key)
	return &u
}

type GenreResponse struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func newGenreResponse(g model.Genre) GenreResponse {
	return GenreResponse{ID: g.ID, Name: g.Name}
}

type ActorResponse struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

func newActorResponse(a model.Actor) ActorResponse {
	return ActorResponse{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, FullName: a.FullName()}
}

type HallResponse struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SeatsInRow int    `json:"seats_in_row"`
	Capacity   int    `json:"capacity"`
}

func newHallResponse(h model.TheatreHall) HallResponse {
	return HallResponse{ID: h.ID, Name: h.Name, Rows: h.Rows, SeatsInRow: h.SeatsInRow, Capacity: h.Capacity()}
}

// PlayListItem is the compact play shape used in lists: related objects are
// flattened to their names.
type PlayListItem struct {
	ID     uint64   `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
	Actors []string `json:"actors"`
	Image  *string  `json:"image"`
}

func newPlayListItem(p model.Play, m mediaURLer) PlayListItem {
	return PlayListItem{
		ID:     p.ID,
		Title:  p.Title,
		Genres: p.GenreNames(),
		Actors: p.ActorNames(),
		Image:  imageURL(m, p.Image),
	}
}

type PlayDetail struct {
	ID          uint64          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Genres      []GenreResponse `json:"genres"`
	Actors      []ActorResponse `json:"actors"`
	Image       *string         `json:"image"`
}

func newPlayDetail(p model.Play, m mediaURLer) PlayDetail {
	out := PlayDetail{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Genres:      make([]GenreResponse, 0, len(p.Genres)),
		Actors:      make([]ActorResponse, 0, len(p.Actors)),
		Image:       imageURL(m, p.Image),
	}
	for _, g := range p.Genres {
		out.Genres = append(out.Genres, newGenreResponse(g))
	}
	for _, a := range p.Actors {
		out.Actors = append(out.Actors, newActorResponse(a))
	}
	return out
}

type PerformanceListItem struct {
	ID                  uint64    `json:"id"`
	PlayTitle           string    `json:"play_title"`
	PlayImage           *string   `json:"play_image"`
	TheatreHallName     string    `json:"theatre_hall_name"`
	TheatreHallCapacity int       `json:"theatre_hall_capacity"`
	TicketsAvailable    int       `json:"tickets_available"`
	ShowTime            time.Time `json:"show_time"`
}

func newPerformanceListItem(ps model.PerformanceSummary, m mediaURLer) PerformanceListItem {
	return PerformanceListItem{
		ID:                  ps.ID,
		PlayTitle:           ps.PlayTitle,
		PlayImage:           imageURL(m, ps.PlayImage),
		TheatreHallName:     ps.Hall.Name,
		TheatreHallCapacity: ps.Hall.Capacity(),
		TicketsAvailable:    ps.TicketsAvailable(),
		ShowTime:            ps.ShowTime.UTC(),
	}
}

type PlaceResponse struct {
	Row  int `json:"row"`
	Seat int `json:"seat"`
}

type PerformanceDetail struct {
	ID          uint64          `json:"id"`
	ShowTime    time.Time       `json:"show_time"`
	Play        PlayDetail      `json:"play"`
	TheatreHall HallResponse    `json:"theatre_hall"`
	TakenPlaces []PlaceResponse `json:"taken_places"`
}

func newPerformanceDetail(ps model.PerformanceSummary, play model.Play, taken []model.Place, m mediaURLer) PerformanceDetail {
	out := PerformanceDetail{
		ID:          ps.ID,
		ShowTime:    ps.ShowTime.UTC(),
		Play:        newPlayDetail(play, m),
		TheatreHall: newHallResponse(ps.Hall),
		TakenPlaces: make([]PlaceResponse, 0, len(taken)),
	}
	for _, p := range taken {
		out.TakenPlaces = append(out.TakenPlaces, PlaceResponse{Row: p.Row, Seat: p.Seat})
	}
	return out
}

type TicketResponse struct {
	ID          uint64               `json:"id"`
	Row         int                  `json:"row"`
	Seat        int                  `json:"seat"`
	Performance *PerformanceListItem `json:"performance"`
}

type ReservationResponse struct {
	ID        uint64           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Tickets   []TicketResponse `json:"tickets"`
}

func newReservationResponse(r model.Reservation, m mediaURLer) ReservationResponse {
	out := ReservationResponse{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.UTC(),
		Tickets:   make([]TicketResponse, 0, len(r.Tickets)),
	}
	for _, t := range r.Tickets {
		tr := TicketResponse{ID: t.ID, Row: t.Row, Seat: t.Seat}
		if t.Performance != nil {
			item := newPerformanceListItem(*t.Performance, m)
			tr.Performance = &item
		}
		out.Tickets = append(out.Tickets, tr)
	}
	return out
}

type UserResponse struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	Role        string `json:"role"`
}

func newUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		Role:        u.Role(),
	}
}
